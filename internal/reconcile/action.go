package reconcile

import (
	"context"
	"fmt"
)

// ActionKind names a PlannedAction variant.
type ActionKind string

// Action kinds.
const (
	ActionKindClone             ActionKind = "Clone"
	ActionKindInitRepository    ActionKind = "InitRepository"
	ActionKindAddRemote         ActionKind = "AddRemote"
	ActionKindUpdateRemoteURL   ActionKind = "UpdateRemoteUrl"
	ActionKindCreateWorktree    ActionKind = "CreateWorktree"
	ActionKindRemoveWorktree    ActionKind = "RemoveWorktree"
	ActionKindSetTrackingBranch ActionKind = "SetTrackingBranch"
)

// PlannedAction is one step of a repository plan. The set of implementations is closed.
type PlannedAction interface {
	Kind() ActionKind
	String() string
	apply(executionContext context.Context, backend Backend, repositoryPath string) error
}

// CloneAction creates the repository from its first configured remote.
type CloneAction struct {
	RemoteName string
	URL        string
	Branch     string
}

func (action CloneAction) Kind() ActionKind { return ActionKindClone }

func (action CloneAction) String() string {
	return fmt.Sprintf("%s(%s, %s)", ActionKindClone, action.RemoteName, action.URL)
}

func (action CloneAction) apply(executionContext context.Context, backend Backend, repositoryPath string) error {
	return backend.Clone(executionContext, CloneRequest{
		Path:       repositoryPath,
		RemoteName: action.RemoteName,
		URL:        action.URL,
		Branch:     action.Branch,
	})
}

// InitRepositoryAction creates an empty repository for a configuration without remotes.
type InitRepositoryAction struct{}

func (action InitRepositoryAction) Kind() ActionKind { return ActionKindInitRepository }

func (action InitRepositoryAction) String() string {
	return fmt.Sprintf("%s()", ActionKindInitRepository)
}

func (action InitRepositoryAction) apply(executionContext context.Context, backend Backend, repositoryPath string) error {
	return backend.InitRepository(executionContext, repositoryPath)
}

// AddRemoteAction adds a configured remote that is missing.
type AddRemoteAction struct {
	Remote Remote
}

func (action AddRemoteAction) Kind() ActionKind { return ActionKindAddRemote }

func (action AddRemoteAction) String() string {
	return fmt.Sprintf("%s(%s, %s)", ActionKindAddRemote, action.Remote.Name, action.Remote.URL)
}

func (action AddRemoteAction) apply(executionContext context.Context, backend Backend, repositoryPath string) error {
	return backend.AddRemote(executionContext, repositoryPath, action.Remote)
}

// UpdateRemoteURLAction points an existing remote at its configured URL.
type UpdateRemoteURLAction struct {
	RemoteName  string
	URL         string
	ObservedURL string
}

func (action UpdateRemoteURLAction) Kind() ActionKind { return ActionKindUpdateRemoteURL }

func (action UpdateRemoteURLAction) String() string {
	return fmt.Sprintf("%s(%s, %s)", ActionKindUpdateRemoteURL, action.RemoteName, action.URL)
}

func (action UpdateRemoteURLAction) apply(executionContext context.Context, backend Backend, repositoryPath string) error {
	return backend.SetRemoteURL(executionContext, repositoryPath, action.RemoteName, action.URL)
}

// CreateWorktreeAction creates a configured worktree that is missing. BranchExists records whether
// the branch was observed locally when the plan was built.
type CreateWorktreeAction struct {
	Branch       string
	Subdirectory string
	BranchExists bool
	StartPoint   string
}

func (action CreateWorktreeAction) Kind() ActionKind { return ActionKindCreateWorktree }

func (action CreateWorktreeAction) String() string {
	return fmt.Sprintf("%s(%s, %s)", ActionKindCreateWorktree, action.Branch, action.Subdirectory)
}

func (action CreateWorktreeAction) apply(executionContext context.Context, backend Backend, repositoryPath string) error {
	request := WorktreeRequest{Branch: action.Branch, Subdirectory: action.Subdirectory}
	if !action.BranchExists {
		request.CreateBranch = true
		request.StartPoint = action.StartPoint
	}
	return backend.AddWorktree(executionContext, repositoryPath, request)
}

// RemoveWorktreeAction removes an unmanaged worktree under the exclusive policy.
type RemoveWorktreeAction struct {
	Subdirectory string
}

func (action RemoveWorktreeAction) Kind() ActionKind { return ActionKindRemoveWorktree }

func (action RemoveWorktreeAction) String() string {
	return fmt.Sprintf("%s(%s)", ActionKindRemoveWorktree, action.Subdirectory)
}

func (action RemoveWorktreeAction) apply(executionContext context.Context, backend Backend, repositoryPath string) error {
	return backend.RemoveWorktree(executionContext, repositoryPath, action.Subdirectory)
}

// SetTrackingBranchAction sets the upstream of a worktree branch.
type SetTrackingBranchAction struct {
	Branch   string
	Upstream string
}

func (action SetTrackingBranchAction) Kind() ActionKind { return ActionKindSetTrackingBranch }

func (action SetTrackingBranchAction) String() string {
	return fmt.Sprintf("%s(%s, %s)", ActionKindSetTrackingBranch, action.Branch, action.Upstream)
}

func (action SetTrackingBranchAction) apply(executionContext context.Context, backend Backend, repositoryPath string) error {
	return backend.SetUpstream(executionContext, repositoryPath, action.Branch, action.Upstream)
}
