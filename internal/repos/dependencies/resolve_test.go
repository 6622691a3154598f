package dependencies_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/githubcli"
	"github.com/temirov/reposync/internal/gitrepo"
	"github.com/temirov/reposync/internal/repos/dependencies"
	"github.com/temirov/reposync/internal/repos/discovery"
	"github.com/temirov/reposync/internal/repos/filesystem"
)

type stubGitExecutor struct{}

func (stubGitExecutor) ExecuteGit(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, nil
}

func (stubGitExecutor) ExecuteGitHubCLI(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, nil
}

func TestResolveDefaults(testInstance *testing.T) {
	require.IsType(testInstance, &discovery.FilesystemRepositoryDiscoverer{}, dependencies.ResolveRepositoryDiscoverer(nil))
	require.IsType(testInstance, filesystem.OSFileSystem{}, dependencies.ResolveFileSystem(nil))

	executor, executorError := dependencies.ResolveGitExecutor(nil, zap.NewNop(), nil)
	require.NoError(testInstance, executorError)
	require.IsType(testInstance, &execshell.ShellExecutor{}, executor)

	manager, managerError := dependencies.ResolveRepositoryManager(executor, nil)
	require.NoError(testInstance, managerError)
	require.IsType(testInstance, &gitrepo.RepositoryManager{}, manager)

	lister, listerError := dependencies.ResolveRepositoryLister(nil, executor)
	require.NoError(testInstance, listerError)
	require.IsType(testInstance, &githubcli.Client{}, lister)
}

func TestResolveKeepsProvidedImplementations(testInstance *testing.T) {
	providedExecutor := stubGitExecutor{}
	executor, executorError := dependencies.ResolveGitExecutor(providedExecutor, nil, nil)
	require.NoError(testInstance, executorError)
	require.Equal(testInstance, providedExecutor, executor)

	providedDiscoverer := discovery.NewFilesystemRepositoryDiscoverer()
	require.Same(testInstance, providedDiscoverer, dependencies.ResolveRepositoryDiscoverer(providedDiscoverer))
}

func TestResolveFailures(testInstance *testing.T) {
	executor, executorError := dependencies.ResolveGitExecutor(nil, nil, nil)
	require.ErrorIs(testInstance, executorError, execshell.ErrLoggerNotConfigured)
	require.Nil(testInstance, executor)

	lister, listerError := dependencies.ResolveRepositoryLister(nil, nil)
	require.ErrorIs(testInstance, listerError, githubcli.ErrExecutorNotConfigured)
	require.Nil(testInstance, lister)

	_, managerError := dependencies.ResolveRepositoryManager(nil, nil)
	require.ErrorIs(testInstance, managerError, gitrepo.ErrGitExecutorNotConfigured)
}
