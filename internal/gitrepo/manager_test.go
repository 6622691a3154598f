package gitrepo_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/gitrepo"
	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/repos/filesystem"
)

type scriptedResponse struct {
	result execshell.ExecutionResult
	err    error
}

// scriptedGitExecutor answers git invocations by their joined arguments and records every call.
type scriptedGitExecutor struct {
	responses map[string]scriptedResponse
	calls     []execshell.CommandDetails
	onExecute func(details execshell.CommandDetails)
}

func (executor *scriptedGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.calls = append(executor.calls, details)
	if executor.onExecute != nil {
		executor.onExecute(details)
	}
	response, found := executor.responses[strings.Join(details.Arguments, " ")]
	if !found {
		return execshell.ExecutionResult{}, nil
	}
	return response.result, response.err
}

func (executor *scriptedGitExecutor) ExecuteGitHubCLI(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, nil
}

func (executor *scriptedGitExecutor) joinedCalls() []string {
	joined := make([]string, 0, len(executor.calls))
	for _, call := range executor.calls {
		joined = append(joined, strings.Join(call.Arguments, " "))
	}
	return joined
}

func commandFailure(arguments string, standardError string) scriptedResponse {
	result := execshell.ExecutionResult{ExitCode: 128, StandardError: standardError}
	return scriptedResponse{
		result: result,
		err: execshell.CommandFailedError{
			Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: execshell.CommandDetails{Arguments: strings.Fields(arguments)}},
			Result:  result,
		},
	}
}

func newManager(testInstance *testing.T, executor *scriptedGitExecutor) *gitrepo.RepositoryManager {
	testInstance.Helper()
	manager, creationError := gitrepo.NewRepositoryManager(executor, filesystem.OSFileSystem{})
	require.NoError(testInstance, creationError)
	return manager
}

func TestNewRepositoryManagerValidatesDependencies(testInstance *testing.T) {
	_, executorError := gitrepo.NewRepositoryManager(nil, filesystem.OSFileSystem{})
	require.ErrorIs(testInstance, executorError, gitrepo.ErrGitExecutorNotConfigured)

	_, fileSystemError := gitrepo.NewRepositoryManager(&scriptedGitExecutor{}, nil)
	require.ErrorIs(testInstance, fileSystemError, gitrepo.ErrFileSystemNotConfigured)
}

func TestReadStateReportsAbsentRepositories(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	plainDirectory := filepath.Join(rootDirectory, "plain")
	require.NoError(testInstance, os.Mkdir(plainDirectory, 0o755))
	plainFile := filepath.Join(rootDirectory, "file")
	require.NoError(testInstance, os.WriteFile(plainFile, []byte("x"), 0o600))

	executor := &scriptedGitExecutor{}
	manager := newManager(testInstance, executor)

	for _, repositoryPath := range []string{filepath.Join(rootDirectory, "missing"), plainDirectory, plainFile} {
		state, readError := manager.ReadState(context.Background(), repositoryPath)
		require.NoError(testInstance, readError)
		require.False(testInstance, state.Exists)
		require.Empty(testInstance, state.Remotes)
		require.Empty(testInstance, state.Worktrees)
	}
	require.Empty(testInstance, executor.calls)
}

func TestReadStateParsesRepository(testInstance *testing.T) {
	repositoryPath := testInstance.TempDir()
	require.NoError(testInstance, os.Mkdir(filepath.Join(repositoryPath, ".git"), 0o755))
	canonicalRepositoryPath, resolveError := filepath.EvalSymlinks(repositoryPath)
	require.NoError(testInstance, resolveError)

	worktreeOutput := strings.Join([]string{
		"worktree " + canonicalRepositoryPath,
		"HEAD aaaa",
		"branch refs/heads/main",
		"",
		"worktree " + filepath.Join(canonicalRepositoryPath, "wt", "feature"),
		"HEAD bbbb",
		"branch refs/heads/feature",
		"",
		"worktree " + filepath.Join(canonicalRepositoryPath, "wt", "review"),
		"HEAD cccc",
		"detached",
		"",
		"worktree " + filepath.Join(filepath.Dir(canonicalRepositoryPath), "elsewhere"),
		"HEAD dddd",
		"branch refs/heads/elsewhere",
		"",
	}, "\n")

	executor := &scriptedGitExecutor{responses: map[string]scriptedResponse{
		"remote -v": {result: execshell.ExecutionResult{StandardOutput: "origin\thttps://x/r1.git (fetch)\norigin\tgit@x:r1.git (push)\nfork\t/srv/fork.git (fetch)\nfork\t/srv/fork.git (push)\n"}},
		"for-each-ref --format=%(refname:short)%00%(upstream:short) refs/heads": {result: execshell.ExecutionResult{StandardOutput: "main\x00origin/main\nfeature\x00\nelsewhere\x00fork/elsewhere\n"}},
		"worktree list --porcelain": {result: execshell.ExecutionResult{StandardOutput: worktreeOutput}},
	}}
	manager := newManager(testInstance, executor)

	state, readError := manager.ReadState(context.Background(), repositoryPath)
	require.NoError(testInstance, readError)
	require.True(testInstance, state.Exists)
	require.Equal(testInstance, "main", state.Head)
	require.Equal(testInstance, map[string]string{"origin": "https://x/r1.git", "fork": "/srv/fork.git"}, state.Remotes)
	require.Equal(testInstance, map[string]reconcile.BranchState{
		"main":      {Name: "main", Upstream: "origin/main"},
		"feature":   {Name: "feature"},
		"elsewhere": {Name: "elsewhere", Upstream: "fork/elsewhere"},
	}, state.Branches)
	require.Equal(testInstance, map[string]string{"wt/feature": "feature", "wt/review": ""}, state.Worktrees)

	for _, call := range executor.calls {
		require.Equal(testInstance, repositoryPath, call.WorkingDirectory)
	}
}

func TestReadStateReportsUnreadableRepository(testInstance *testing.T) {
	repositoryPath := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryPath, ".git"), []byte("gitdir: /nowhere"), 0o600))

	executor := &scriptedGitExecutor{responses: map[string]scriptedResponse{
		"rev-parse --show-toplevel": commandFailure("rev-parse --show-toplevel", "fatal: not a git repository: /nowhere"),
	}}
	manager := newManager(testInstance, executor)

	_, readError := manager.ReadState(context.Background(), repositoryPath)
	require.ErrorIs(testInstance, readError, reconcile.ErrRepositoryUnreadable)
	require.Equal(testInstance, reconcile.ErrorKindRepositoryUnreadable, reconcile.ClassifyError(readError))
}

func TestCloneRefusesOccupiedDestination(testInstance *testing.T) {
	destination := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(destination, "notes.txt"), []byte("keep"), 0o600))

	executor := &scriptedGitExecutor{}
	manager := newManager(testInstance, executor)

	cloneError := manager.Clone(context.Background(), reconcile.CloneRequest{Path: destination, RemoteName: "origin", URL: "https://x/r1.git"})
	require.ErrorIs(testInstance, cloneError, reconcile.ErrFilesystemConflict)
	require.Empty(testInstance, executor.calls)

	contents, readError := os.ReadFile(filepath.Join(destination, "notes.txt"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "keep", string(contents))
}

func TestCloneRemovesPartialDestinationOnFailure(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	destination := filepath.Join(rootDirectory, "nested", "r1")
	cloneArguments := "clone --origin=upstream --branch=develop -- https://x/r1.git " + destination

	executor := &scriptedGitExecutor{responses: map[string]scriptedResponse{
		cloneArguments: commandFailure(cloneArguments, "fatal: unable to access 'https://x/r1.git/': Could not resolve host: x"),
	}}
	executor.onExecute = func(details execshell.CommandDetails) {
		require.NoError(testInstance, os.MkdirAll(filepath.Join(destination, ".git"), 0o755))
	}
	manager := newManager(testInstance, executor)

	cloneError := manager.Clone(context.Background(), reconcile.CloneRequest{Path: destination, RemoteName: "upstream", URL: "https://x/r1.git", Branch: "develop"})
	require.ErrorIs(testInstance, cloneError, reconcile.ErrNetworkFailure)
	require.Equal(testInstance, []string{cloneArguments}, executor.joinedCalls())

	_, statError := os.Stat(destination)
	require.True(testInstance, os.IsNotExist(statError))
}

func TestAddRemoteRollsBackFailedFetch(testInstance *testing.T) {
	repositoryPath := testInstance.TempDir()
	addArguments := "remote add -f fork https://x/fork.git"
	executor := &scriptedGitExecutor{responses: map[string]scriptedResponse{
		addArguments: commandFailure(addArguments, "fatal: unable to access 'https://x/fork.git/': Could not resolve host: x\nerror: Could not fetch fork"),
	}}
	manager := newManager(testInstance, executor)

	addError := manager.AddRemote(context.Background(), repositoryPath, reconcile.Remote{Name: "fork", URL: "https://x/fork.git"})
	require.ErrorIs(testInstance, addError, reconcile.ErrNetworkFailure)
	require.Equal(testInstance, []string{addArguments, "remote remove fork"}, executor.joinedCalls())
}

func TestAddRemoteWithoutFetchDoesNotRollBack(testInstance *testing.T) {
	repositoryPath := testInstance.TempDir()
	addArguments := "remote add fork https://x/fork.git"
	executor := &scriptedGitExecutor{responses: map[string]scriptedResponse{
		addArguments: commandFailure(addArguments, "error: remote fork already exists."),
	}}
	manager := newManager(testInstance, executor)

	addError := manager.AddRemote(context.Background(), repositoryPath, reconcile.Remote{Name: "fork", URL: "https://x/fork.git", Fetch: reconcile.FetchManual})
	require.ErrorIs(testInstance, addError, reconcile.ErrBackendOperationFailed)
	require.Equal(testInstance, []string{addArguments}, executor.joinedCalls())
}

func TestAddWorktreeArguments(testInstance *testing.T) {
	testCases := []struct {
		name         string
		request      reconcile.WorktreeRequest
		expectedCall string
	}{
		{
			name:         "existing_branch",
			request:      reconcile.WorktreeRequest{Branch: "feature", Subdirectory: "wt/feature"},
			expectedCall: "worktree add -- wt/feature feature",
		},
		{
			name:         "new_branch_from_tracking_reference",
			request:      reconcile.WorktreeRequest{Branch: "feature", Subdirectory: "wt/feature", CreateBranch: true, StartPoint: "origin/feature"},
			expectedCall: "worktree add --no-track -b feature -- wt/feature origin/feature",
		},
		{
			name:         "new_branch_from_head",
			request:      reconcile.WorktreeRequest{Branch: "feature", Subdirectory: "wt/feature", CreateBranch: true},
			expectedCall: "worktree add --no-track -b feature -- wt/feature",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repositoryPath := testInstance.TempDir()
			executor := &scriptedGitExecutor{}
			manager := newManager(testInstance, executor)

			require.NoError(testInstance, manager.AddWorktree(context.Background(), repositoryPath, testCase.request))
			require.Equal(testInstance, []string{"worktree prune", testCase.expectedCall}, executor.joinedCalls())

			_, statError := os.Stat(filepath.Join(repositoryPath, "wt"))
			require.NoError(testInstance, statError)
		})
	}
}

func TestAddWorktreeRefusesOccupiedSubdirectory(testInstance *testing.T) {
	repositoryPath := testInstance.TempDir()
	require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, "wt", "feature"), 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryPath, "wt", "feature", "draft"), []byte("x"), 0o600))

	executor := &scriptedGitExecutor{}
	manager := newManager(testInstance, executor)

	addError := manager.AddWorktree(context.Background(), repositoryPath, reconcile.WorktreeRequest{Branch: "feature", Subdirectory: "wt/feature"})
	require.ErrorIs(testInstance, addError, reconcile.ErrFilesystemConflict)
	require.Empty(testInstance, executor.calls)
}

func TestMutationsIssueExpectedCommands(testInstance *testing.T) {
	repositoryPath := testInstance.TempDir()
	executor := &scriptedGitExecutor{}
	manager := newManager(testInstance, executor)

	require.NoError(testInstance, manager.SetRemoteURL(context.Background(), repositoryPath, "origin", "https://new/r1.git"))
	require.NoError(testInstance, manager.RemoveWorktree(context.Background(), repositoryPath, "wt/legacy"))
	require.NoError(testInstance, manager.SetUpstream(context.Background(), repositoryPath, "feature", "origin/feature"))
	require.NoError(testInstance, manager.AddRemote(context.Background(), repositoryPath, reconcile.Remote{Name: "fork", URL: "https://x/fork.git"}))

	require.Equal(testInstance, []string{
		"remote set-url origin https://new/r1.git",
		"worktree remove wt/legacy",
		"branch --set-upstream-to=origin/feature feature",
		"remote add -f fork https://x/fork.git",
	}, executor.joinedCalls())
}

func TestInitRepositoryCreatesDirectory(testInstance *testing.T) {
	repositoryPath := filepath.Join(testInstance.TempDir(), "fresh")
	executor := &scriptedGitExecutor{}
	manager := newManager(testInstance, executor)

	require.NoError(testInstance, manager.InitRepository(context.Background(), repositoryPath))
	require.Equal(testInstance, []string{"init " + repositoryPath}, executor.joinedCalls())
	info, statError := os.Stat(repositoryPath)
	require.NoError(testInstance, statError)
	require.True(testInstance, info.IsDir())
}

func TestFetchRemotesClassifiesFailures(testInstance *testing.T) {
	testCases := []struct {
		name          string
		standardError string
		expectedKind  reconcile.ErrorKind
	}{
		{name: "fetch_succeeds"},
		{
			name:          "unreachable_remote",
			standardError: "fatal: unable to access 'https://x/r.git/': Could not resolve host: x",
			expectedKind:  reconcile.ErrorKindNetworkFailure,
		},
		{
			name:          "deleted_remote_repository",
			standardError: "remote: Repository not found.\nfatal: repository 'https://x/gone.git/' not found",
			expectedKind:  reconcile.ErrorKindBackendOperationFailed,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repositoryPath := testInstance.TempDir()
			executor := &scriptedGitExecutor{responses: map[string]scriptedResponse{}}
			if len(testCase.standardError) > 0 {
				executor.responses["fetch --all"] = commandFailure("fetch --all", testCase.standardError)
			}
			manager := newManager(testInstance, executor)

			fetchError := manager.FetchRemotes(context.Background(), repositoryPath)
			require.Equal(testInstance, []string{"fetch --all"}, executor.joinedCalls())
			require.Equal(testInstance, repositoryPath, executor.calls[0].WorkingDirectory)
			if len(testCase.standardError) == 0 {
				require.NoError(testInstance, fetchError)
				return
			}
			require.Error(testInstance, fetchError)
			require.Equal(testInstance, testCase.expectedKind, reconcile.ClassifyError(fetchError))
		})
	}
}
