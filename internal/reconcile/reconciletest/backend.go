// Package reconciletest provides an in-memory repository backend for exercising reconciliation.
package reconciletest

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/temirov/reposync/internal/reconcile"
)

const (
	defaultBranchNameConstant = "main"
	upstreamSeparatorConstant = "/"
)

// FetchRemotesCallKind identifies recorded FetchRemotes calls, which are not plan actions.
const FetchRemotesCallKind reconcile.ActionKind = "FetchRemotes"

// Repository is the seeded or resulting state of one in-memory repository.
type Repository struct {
	Remotes   map[string]string
	Branches  map[string]reconcile.BranchState
	Worktrees map[string]string
	Head      string
}

// Call records one capability invocation.
type Call struct {
	Kind   reconcile.ActionKind
	Path   string
	Detail string
}

type failureKey struct {
	path string
	kind reconcile.ActionKind
}

// Backend implements reconcile.StateReader, reconcile.Backend and reconcile.RemoteFetcher in memory. It is safe for concurrent use.
type Backend struct {
	mutex           sync.Mutex
	repositories    map[string]*Repository
	unreadablePaths map[string]struct{}
	occupiedPaths   map[string]struct{}
	failures        map[failureKey]error
	calls           []Call
}

// NewBackend constructs an empty Backend.
func NewBackend() *Backend {
	return &Backend{
		repositories:    map[string]*Repository{},
		unreadablePaths: map[string]struct{}{},
		occupiedPaths:   map[string]struct{}{},
		failures:        map[failureKey]error{},
	}
}

// SeedRepository places a repository at repositoryPath.
func (backend *Backend) SeedRepository(repositoryPath string, repository Repository) {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	seeded := cloneRepository(repository)
	backend.repositories[repositoryPath] = &seeded
}

// MarkUnreadable makes ReadState fail for repositoryPath.
func (backend *Backend) MarkUnreadable(repositoryPath string) {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	backend.unreadablePaths[repositoryPath] = struct{}{}
}

// OccupyPath simulates a non-empty directory that is not a repository.
func (backend *Backend) OccupyPath(repositoryPath string) {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	backend.occupiedPaths[repositoryPath] = struct{}{}
}

// FailOn makes the capability behind kind fail with failure for repositoryPath.
func (backend *Backend) FailOn(repositoryPath string, kind reconcile.ActionKind, failure error) {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	backend.failures[failureKey{path: repositoryPath, kind: kind}] = failure
}

// Repository returns a copy of the repository at repositoryPath.
func (backend *Backend) Repository(repositoryPath string) (Repository, bool) {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	repository, exists := backend.repositories[repositoryPath]
	if !exists {
		return Repository{}, false
	}
	return cloneRepository(*repository), true
}

// Calls returns the capability invocations recorded for repositoryPath in order.
func (backend *Backend) Calls(repositoryPath string) []Call {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	var calls []Call
	for _, call := range backend.calls {
		if call.Path == repositoryPath {
			calls = append(calls, call)
		}
	}
	return calls
}

// ReadState implements reconcile.StateReader.
func (backend *Backend) ReadState(_ context.Context, repositoryPath string) (reconcile.ActualRepositoryState, error) {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	if _, unreadable := backend.unreadablePaths[repositoryPath]; unreadable {
		return reconcile.ActualRepositoryState{}, fmt.Errorf("%w: %s: corrupt object database", reconcile.ErrRepositoryUnreadable, repositoryPath)
	}
	repository, exists := backend.repositories[repositoryPath]
	if !exists {
		return reconcile.AbsentRepositoryState(repositoryPath), nil
	}
	snapshot := cloneRepository(*repository)
	return reconcile.ActualRepositoryState{
		Exists:    true,
		Path:      repositoryPath,
		Remotes:   snapshot.Remotes,
		Branches:  snapshot.Branches,
		Worktrees: snapshot.Worktrees,
		Head:      snapshot.Head,
	}, nil
}

// Clone implements reconcile.Backend.
func (backend *Backend) Clone(_ context.Context, request reconcile.CloneRequest) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	if failure := backend.begin(request.Path, reconcile.ActionKindClone, request.URL); failure != nil {
		return failure
	}
	if _, occupied := backend.occupiedPaths[request.Path]; occupied {
		return fmt.Errorf("%w: destination path %s already exists and is not an empty directory", reconcile.ErrFilesystemConflict, request.Path)
	}
	if _, exists := backend.repositories[request.Path]; exists {
		return fmt.Errorf("%w: destination path %s already exists and is not an empty directory", reconcile.ErrFilesystemConflict, request.Path)
	}
	branch := request.Branch
	if len(branch) == 0 {
		branch = defaultBranchNameConstant
	}
	backend.repositories[request.Path] = &Repository{
		Remotes:   map[string]string{request.RemoteName: request.URL},
		Branches:  map[string]reconcile.BranchState{branch: {Name: branch, Upstream: request.RemoteName + upstreamSeparatorConstant + branch}},
		Worktrees: map[string]string{},
		Head:      branch,
	}
	return nil
}

// InitRepository implements reconcile.Backend.
func (backend *Backend) InitRepository(_ context.Context, repositoryPath string) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	if failure := backend.begin(repositoryPath, reconcile.ActionKindInitRepository, ""); failure != nil {
		return failure
	}
	backend.repositories[repositoryPath] = &Repository{
		Remotes:   map[string]string{},
		Branches:  map[string]reconcile.BranchState{},
		Worktrees: map[string]string{},
		Head:      defaultBranchNameConstant,
	}
	return nil
}

// AddRemote implements reconcile.Backend.
func (backend *Backend) AddRemote(_ context.Context, repositoryPath string, remote reconcile.Remote) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	if failure := backend.begin(repositoryPath, reconcile.ActionKindAddRemote, remote.Name); failure != nil {
		return failure
	}
	repository, lookupError := backend.lookup(repositoryPath)
	if lookupError != nil {
		return lookupError
	}
	if _, exists := repository.Remotes[remote.Name]; exists {
		return fmt.Errorf("%w: remote %s already exists", reconcile.ErrBackendOperationFailed, remote.Name)
	}
	repository.Remotes[remote.Name] = remote.URL
	return nil
}

// SetRemoteURL implements reconcile.Backend.
func (backend *Backend) SetRemoteURL(_ context.Context, repositoryPath string, remoteName string, remoteURL string) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	if failure := backend.begin(repositoryPath, reconcile.ActionKindUpdateRemoteURL, remoteName); failure != nil {
		return failure
	}
	repository, lookupError := backend.lookup(repositoryPath)
	if lookupError != nil {
		return lookupError
	}
	if _, exists := repository.Remotes[remoteName]; !exists {
		return fmt.Errorf("%w: no such remote %s", reconcile.ErrBackendOperationFailed, remoteName)
	}
	repository.Remotes[remoteName] = remoteURL
	return nil
}

// AddWorktree implements reconcile.Backend.
func (backend *Backend) AddWorktree(_ context.Context, repositoryPath string, request reconcile.WorktreeRequest) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	if failure := backend.begin(repositoryPath, reconcile.ActionKindCreateWorktree, request.Subdirectory); failure != nil {
		return failure
	}
	repository, lookupError := backend.lookup(repositoryPath)
	if lookupError != nil {
		return lookupError
	}
	if _, exists := repository.Worktrees[request.Subdirectory]; exists {
		return fmt.Errorf("%w: %s already exists", reconcile.ErrFilesystemConflict, request.Subdirectory)
	}
	if repository.Head == request.Branch {
		return fmt.Errorf("%w: %s is already checked out", reconcile.ErrBackendOperationFailed, request.Branch)
	}
	for _, checkedOutBranch := range repository.Worktrees {
		if checkedOutBranch == request.Branch {
			return fmt.Errorf("%w: %s is already checked out", reconcile.ErrBackendOperationFailed, request.Branch)
		}
	}
	_, branchExists := repository.Branches[request.Branch]
	switch {
	case request.CreateBranch && branchExists:
		return fmt.Errorf("%w: a branch named %s already exists", reconcile.ErrBackendOperationFailed, request.Branch)
	case !request.CreateBranch && !branchExists:
		return fmt.Errorf("%w: invalid reference: %s", reconcile.ErrBackendOperationFailed, request.Branch)
	case request.CreateBranch:
		repository.Branches[request.Branch] = reconcile.BranchState{Name: request.Branch}
	}
	repository.Worktrees[request.Subdirectory] = request.Branch
	return nil
}

// RemoveWorktree implements reconcile.Backend.
func (backend *Backend) RemoveWorktree(_ context.Context, repositoryPath string, subdirectory string) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	if failure := backend.begin(repositoryPath, reconcile.ActionKindRemoveWorktree, subdirectory); failure != nil {
		return failure
	}
	repository, lookupError := backend.lookup(repositoryPath)
	if lookupError != nil {
		return lookupError
	}
	if _, exists := repository.Worktrees[subdirectory]; !exists {
		return fmt.Errorf("%w: %s is not a working tree", reconcile.ErrBackendOperationFailed, subdirectory)
	}
	delete(repository.Worktrees, subdirectory)
	return nil
}

// SetUpstream implements reconcile.Backend.
func (backend *Backend) SetUpstream(_ context.Context, repositoryPath string, branch string, upstream string) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	if failure := backend.begin(repositoryPath, reconcile.ActionKindSetTrackingBranch, branch); failure != nil {
		return failure
	}
	repository, lookupError := backend.lookup(repositoryPath)
	if lookupError != nil {
		return lookupError
	}
	branchState, branchExists := repository.Branches[branch]
	if !branchExists {
		return fmt.Errorf("%w: branch %s does not exist", reconcile.ErrBackendOperationFailed, branch)
	}
	remoteName, _, _ := strings.Cut(upstream, upstreamSeparatorConstant)
	if _, remoteExists := repository.Remotes[remoteName]; !remoteExists {
		return fmt.Errorf("%w: the requested upstream branch %s does not exist", reconcile.ErrBackendOperationFailed, upstream)
	}
	branchState.Upstream = upstream
	repository.Branches[branch] = branchState
	return nil
}

// FetchRemotes implements reconcile.RemoteFetcher. Remote URLs and branches are left as they are.
func (backend *Backend) FetchRemotes(_ context.Context, repositoryPath string) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	if failure := backend.begin(repositoryPath, FetchRemotesCallKind, ""); failure != nil {
		return failure
	}
	_, lookupError := backend.lookup(repositoryPath)
	return lookupError
}

func (backend *Backend) begin(repositoryPath string, kind reconcile.ActionKind, detail string) error {
	backend.calls = append(backend.calls, Call{Kind: kind, Path: repositoryPath, Detail: detail})
	return backend.failures[failureKey{path: repositoryPath, kind: kind}]
}

func (backend *Backend) lookup(repositoryPath string) (*Repository, error) {
	repository, exists := backend.repositories[repositoryPath]
	if !exists {
		return nil, fmt.Errorf("%w: %s is not a git repository", reconcile.ErrBackendOperationFailed, repositoryPath)
	}
	return repository, nil
}

func cloneRepository(repository Repository) Repository {
	cloned := Repository{
		Remotes:   maps.Clone(repository.Remotes),
		Branches:  maps.Clone(repository.Branches),
		Worktrees: maps.Clone(repository.Worktrees),
		Head:      repository.Head,
	}
	if cloned.Remotes == nil {
		cloned.Remotes = map[string]string{}
	}
	if cloned.Branches == nil {
		cloned.Branches = map[string]reconcile.BranchState{}
	}
	if cloned.Worktrees == nil {
		cloned.Worktrees = map[string]string{}
	}
	return cloned
}
