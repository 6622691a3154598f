package manifest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/gitrepo"
	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/repos/shared"
	pathutils "github.com/temirov/reposync/internal/utils/path"
)

const (
	finderDependencyMissingMessageConstant = "manifest finder requires a discoverer, state reader and file system"
	findRootErrorTemplateConstant          = "find repositories under %s: %v"
	notDirectoryMessageConstant            = "not a directory"
	skippingRepositoryMessageConstant      = "Skipping repository that could not be read"
	logFieldPathConstant                   = "path"
)

// ErrFinderNotConfigured indicates the finder is missing a collaborator.
var ErrFinderNotConfigured = errors.New(finderDependencyMissingMessageConstant)

// FindRootError reports a search root that does not exist or is not a directory.
type FindRootError struct {
	Root  string
	Cause error
}

// Error describes the root failure.
func (rootError FindRootError) Error() string {
	return fmt.Sprintf(findRootErrorTemplateConstant, rootError.Root, rootError.Cause)
}

// Unwrap exposes the underlying cause.
func (rootError FindRootError) Unwrap() error {
	return rootError.Cause
}

// Finder describes repositories already on disk as a manifest.
type Finder struct {
	Discoverer   shared.RepositoryDiscoverer
	StateReader  reconcile.StateReader
	FileSystem   shared.FileSystem
	HomeExpander *pathutils.HomeExpander
	Logger       *zap.Logger
}

// Find walks root and returns a manifest with one tree rooted there. When root is itself a
// repository the tree is rooted at its parent and the repository is named after its directory.
// Repositories that cannot be read are logged and left out.
func (finder Finder) Find(executionContext context.Context, root string) (Manifest, error) {
	if finder.Discoverer == nil || finder.StateReader == nil || finder.FileSystem == nil {
		return Manifest{}, ErrFinderNotConfigured
	}
	logger := finder.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	absoluteRoot, absoluteError := finder.FileSystem.Abs(finder.HomeExpander.Expand(root))
	if absoluteError != nil {
		return Manifest{}, FindRootError{Root: root, Cause: absoluteError}
	}
	rootInfo, statError := finder.FileSystem.Stat(absoluteRoot)
	if statError != nil {
		return Manifest{}, FindRootError{Root: root, Cause: statError}
	}
	if !rootInfo.IsDir() {
		return Manifest{}, FindRootError{Root: root, Cause: errors.New(notDirectoryMessageConstant)}
	}

	repositoryPaths, discoveryError := finder.Discoverer.DiscoverRepositories([]string{absoluteRoot})
	if discoveryError != nil {
		return Manifest{}, FindRootError{Root: root, Cause: discoveryError}
	}

	treeRoot := absoluteRoot
	if slices.Contains(repositoryPaths, absoluteRoot) {
		treeRoot = filepath.Dir(absoluteRoot)
	}

	tree := Tree{Root: finder.HomeExpander.Collapse(treeRoot)}
	for _, repositoryPath := range repositoryPaths {
		state, readError := finder.StateReader.ReadState(executionContext, repositoryPath)
		if readError != nil || !state.Exists {
			logger.Warn(skippingRepositoryMessageConstant, zap.String(logFieldPathConstant, repositoryPath), zap.Error(readError))
			continue
		}
		relativePath, relativeError := filepath.Rel(treeRoot, repositoryPath)
		if relativeError != nil {
			continue
		}
		tree.Repositories = append(tree.Repositories, describeRepository(filepath.ToSlash(relativePath), state))
	}
	return Manifest{Trees: []Tree{tree}}, nil
}

func describeRepository(name string, state reconcile.ActualRepositoryState) Repository {
	repository := Repository{Name: name}
	if _, isBranch := state.Branches[state.Head]; isBranch {
		repository.DefaultBranch = state.Head
	}

	remoteNames := state.RemoteNames()
	slices.SortStableFunc(remoteNames, func(first string, second string) int {
		switch {
		case first == second:
			return 0
		case first == shared.OriginRemoteNameConstant:
			return -1
		case second == shared.OriginRemoteNameConstant:
			return 1
		default:
			return 0
		}
	})
	for _, remoteName := range remoteNames {
		remoteURL := state.Remotes[remoteName]
		remoteType, _ := gitrepo.DetectRemoteType(remoteURL)
		repository.Remotes = append(repository.Remotes, Remote{Name: remoteName, URL: remoteURL, Type: string(remoteType)})
	}

	for _, subdirectory := range state.WorktreeSubdirectories() {
		branch := state.Worktrees[subdirectory]
		if len(branch) == 0 {
			continue
		}
		worktree := Worktree{Branch: branch, Track: state.Branches[branch].Upstream}
		if subdirectory != branch {
			worktree.Path = subdirectory
		}
		repository.Worktrees = append(repository.Worktrees, worktree)
	}
	return repository
}
