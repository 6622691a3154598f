package reconcile

import (
	"maps"
	"slices"

	"github.com/temirov/reposync/internal/repos/shared"
)

// FetchPolicy controls whether a newly added remote is fetched immediately.
type FetchPolicy int

const (
	// FetchOnAdd fetches the remote right after adding it so its branches can be referenced.
	FetchOnAdd FetchPolicy = iota
	// FetchManual adds the remote without fetching it.
	FetchManual
)

// Remote is a configured git remote.
type Remote struct {
	Name  string
	URL   string
	Fetch FetchPolicy
}

// WorktreeSpec is a configured linked worktree. Subdirectory is relative to the repository path.
// TrackingReference names the remote branch, such as origin/feature, the worktree branch should track;
// an empty value leaves tracking alone.
type WorktreeSpec struct {
	Branch            string
	Subdirectory      string
	TrackingReference string
}

// RepositoryConfig is the desired state of one repository.
type RepositoryConfig struct {
	Name           string
	Path           string
	Remotes        []Remote
	Worktrees      []WorktreeSpec
	WorktreePolicy shared.WorktreePolicy
	DefaultBranch  string
}

// Identity returns the name used to refer to the repository in logs and reports.
func (config RepositoryConfig) Identity() string {
	if len(config.Name) > 0 {
		return config.Name
	}
	return config.Path
}

// BranchState is an observed local branch.
type BranchState struct {
	Name     string
	Upstream string
}

// ActualRepositoryState is a snapshot of a repository read from disk. It is rebuilt on every pass.
// Worktrees maps a cleaned subdirectory relative to the repository to its checked-out branch,
// which is empty for detached worktrees. The main working tree is never listed.
type ActualRepositoryState struct {
	Exists    bool
	Path      string
	Remotes   map[string]string
	Branches  map[string]BranchState
	Worktrees map[string]string
	Head      string
}

// AbsentRepositoryState describes a path where no repository exists.
func AbsentRepositoryState(path string) ActualRepositoryState {
	return ActualRepositoryState{
		Path:      path,
		Remotes:   map[string]string{},
		Branches:  map[string]BranchState{},
		Worktrees: map[string]string{},
	}
}

// RemoteNames returns the observed remote names in lexical order.
func (state ActualRepositoryState) RemoteNames() []string {
	return slices.Sorted(maps.Keys(state.Remotes))
}

// WorktreeSubdirectories returns the observed worktree subdirectories in lexical order.
func (state ActualRepositoryState) WorktreeSubdirectories() []string {
	return slices.Sorted(maps.Keys(state.Worktrees))
}
