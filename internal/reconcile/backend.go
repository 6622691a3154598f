package reconcile

import "context"

// CloneRequest describes a clone into a path that does not hold a repository yet.
type CloneRequest struct {
	Path       string
	RemoteName string
	URL        string
	Branch     string
}

// WorktreeRequest describes a linked worktree to create. When CreateBranch is set the branch is
// created from StartPoint, or from HEAD when StartPoint is empty.
type WorktreeRequest struct {
	Branch       string
	Subdirectory string
	CreateBranch bool
	StartPoint   string
}

// StateReader reports the actual state of a repository path.
// A missing path, or a path that is not a repository, yields a state with Exists unset and no error.
// A path that exists but cannot be read as a repository yields an error wrapping ErrRepositoryUnreadable.
type StateReader interface {
	ReadState(executionContext context.Context, repositoryPath string) (ActualRepositoryState, error)
}

// Backend is the set of version-control capabilities the executor applies plans with.
// Implementations wrap ErrNetworkFailure, ErrFilesystemConflict or ErrBackendOperationFailed so failures classify.
// Clone must be atomic: on failure nothing it created may remain at the target path.
type Backend interface {
	Clone(executionContext context.Context, request CloneRequest) error
	InitRepository(executionContext context.Context, repositoryPath string) error
	AddRemote(executionContext context.Context, repositoryPath string, remote Remote) error
	SetRemoteURL(executionContext context.Context, repositoryPath string, remoteName string, remoteURL string) error
	AddWorktree(executionContext context.Context, repositoryPath string, request WorktreeRequest) error
	RemoveWorktree(executionContext context.Context, repositoryPath string, subdirectory string) error
	SetUpstream(executionContext context.Context, repositoryPath string, branch string, upstream string) error
}

// RemoteFetcher refreshes the remote-tracking references of every remote of a repository. It never
// moves local branches or touches worktree contents.
type RemoteFetcher interface {
	FetchRemotes(executionContext context.Context, repositoryPath string) error
}
