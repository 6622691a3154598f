// Package dependencies resolves the default collaborators of repository commands, keeping any
// implementation a caller already supplied.
package dependencies

import (
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/githubauth"
	"github.com/temirov/reposync/internal/githubcli"
	"github.com/temirov/reposync/internal/gitrepo"
	"github.com/temirov/reposync/internal/repos/discovery"
	"github.com/temirov/reposync/internal/repos/filesystem"
	"github.com/temirov/reposync/internal/repos/shared"
)

// ResolveRepositoryDiscoverer falls back to walking the local filesystem.
func ResolveRepositoryDiscoverer(supplied shared.RepositoryDiscoverer) shared.RepositoryDiscoverer {
	return preferSupplied(supplied, func() shared.RepositoryDiscoverer { return discovery.NewFilesystemRepositoryDiscoverer() })
}

// ResolveFileSystem falls back to the operating system filesystem.
func ResolveFileSystem(supplied shared.FileSystem) shared.FileSystem {
	return preferSupplied(supplied, func() shared.FileSystem { return filesystem.OSFileSystem{} })
}

// ResolveGitExecutor falls back to running git in a subprocess. A non-nil observer receives command
// lifecycle events for console output.
func ResolveGitExecutor(supplied shared.GitExecutor, logger *zap.Logger, observer execshell.CommandEventObserver) (shared.GitExecutor, error) {
	if supplied != nil {
		return supplied, nil
	}
	shellExecutor, creationError := execshell.NewShellExecutorWithObserver(logger, execshell.NewOSCommandRunner(), observer)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveRepositoryManager constructs the git-backed state reader and backend.
func ResolveRepositoryManager(executor shared.GitExecutor, fileSystem shared.FileSystem) (*gitrepo.RepositoryManager, error) {
	return gitrepo.NewRepositoryManager(executor, ResolveFileSystem(fileSystem))
}

// ResolveRepositoryLister falls back to listing through the gh CLI, authenticated from the environment.
func ResolveRepositoryLister(supplied shared.RemoteRepositoryLister, executor shared.GitExecutor) (shared.RemoteRepositoryLister, error) {
	if supplied != nil {
		return supplied, nil
	}
	client, creationError := githubcli.NewClient(executor, githubauth.NewTokenSource())
	if creationError != nil {
		return nil, creationError
	}
	return client, nil
}

func preferSupplied[Collaborator comparable](supplied Collaborator, construct func() Collaborator) Collaborator {
	var zero Collaborator
	if supplied != zero {
		return supplied
	}
	return construct()
}
