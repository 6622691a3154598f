package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/repos/shared"
)

const (
	gitMetadataEntryNameConstant            = ".git"
	gitCommandRevParseConstant              = "rev-parse"
	gitFlagShowTopLevelConstant             = "--show-toplevel"
	gitCommandRemoteConstant                = "remote"
	gitFlagVerboseConstant                  = "-v"
	gitSubcommandAddConstant                = "add"
	gitSubcommandRemoveConstant             = "remove"
	gitSubcommandSetURLConstant             = "set-url"
	gitFlagFetchConstant                    = "-f"
	gitCommandFetchConstant                 = "fetch"
	gitFlagAllRemotesConstant               = "--all"
	gitCommandForEachRefConstant            = "for-each-ref"
	gitBranchFormatArgumentConstant         = "--format=%(refname:short)%00%(upstream:short)"
	gitLocalBranchesNamespaceConstant       = "refs/heads"
	gitCommandWorktreeConstant              = "worktree"
	gitSubcommandListConstant               = "list"
	gitSubcommandPruneConstant              = "prune"
	gitFlagPorcelainConstant                = "--porcelain"
	gitFlagNewBranchConstant                = "-b"
	gitFlagNoTrackConstant                  = "--no-track"
	gitCommandCloneConstant                 = "clone"
	gitOriginFlagTemplateConstant           = "--origin=%s"
	gitBranchFlagTemplateConstant           = "--branch=%s"
	gitCommandInitConstant                  = "init"
	gitCommandBranchConstant                = "branch"
	gitSetUpstreamFlagTemplateConstant      = "--set-upstream-to=%s"
	gitEndOfOptionsConstant                 = "--"
	remoteFetchSuffixConstant               = "(fetch)"
	branchRecordSeparatorConstant           = "\x00"
	outputLineSeparatorConstant             = "\n"
	parentDirectoryPrefixConstant           = ".."
	directoryPermissionsConstant            = fs.FileMode(0o755)
	executorNotConfiguredMessageConstant    = "repository manager git executor not configured"
	fileSystemNotConfiguredMessageConstant  = "repository manager file system not configured"
	fetchFailedMarkerConstant               = "could not fetch"
	unreadableRepositoryTemplateConstant    = "%w: %s: %w"
	occupiedDestinationTemplateConstant     = "%w: destination path %s already exists and is not an empty directory"
	destinationNotDirectoryTemplateConstant = "%w: destination path %s exists and is not a directory"
	inspectDestinationTemplateConstant      = "%w: cannot inspect %s: %w"
	rollbackFailedTemplateConstant          = "%w (cleanup of %s failed: %v)"
)

var (
	// ErrGitExecutorNotConfigured indicates the manager was constructed without an executor.
	ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrFileSystemNotConfigured indicates the manager was constructed without a file system.
	ErrFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)
)

// RepositoryManager reads and mutates repositories through the git CLI.
type RepositoryManager struct {
	executor   shared.GitExecutor
	fileSystem shared.FileSystem
}

// NewRepositoryManager constructs a RepositoryManager.
func NewRepositoryManager(executor shared.GitExecutor, fileSystem shared.FileSystem) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	return &RepositoryManager{executor: executor, fileSystem: fileSystem}, nil
}

// ReadState reports the actual state of the repository rooted at repositoryPath. A directory without
// a .git entry is reported as absent. A .git entry that git cannot read is RepositoryUnreadable.
func (manager *RepositoryManager) ReadState(executionContext context.Context, repositoryPath string) (reconcile.ActualRepositoryState, error) {
	state := reconcile.AbsentRepositoryState(repositoryPath)

	directoryInfo, statError := manager.fileSystem.Stat(repositoryPath)
	if errors.Is(statError, fs.ErrNotExist) {
		return state, nil
	}
	if statError != nil {
		return state, fmt.Errorf(unreadableRepositoryTemplateConstant, reconcile.ErrRepositoryUnreadable, repositoryPath, statError)
	}
	if !directoryInfo.IsDir() {
		return state, nil
	}
	if _, metadataError := manager.fileSystem.Lstat(filepath.Join(repositoryPath, gitMetadataEntryNameConstant)); metadataError != nil {
		if errors.Is(metadataError, fs.ErrNotExist) {
			return state, nil
		}
		return state, fmt.Errorf(unreadableRepositoryTemplateConstant, reconcile.ErrRepositoryUnreadable, repositoryPath, metadataError)
	}

	if _, probeError := manager.runGit(executionContext, repositoryPath, gitCommandRevParseConstant, gitFlagShowTopLevelConstant); probeError != nil {
		return state, fmt.Errorf(unreadableRepositoryTemplateConstant, reconcile.ErrRepositoryUnreadable, repositoryPath, probeError)
	}

	remotes, remotesError := manager.readRemotes(executionContext, repositoryPath)
	if remotesError != nil {
		return state, fmt.Errorf(unreadableRepositoryTemplateConstant, reconcile.ErrRepositoryUnreadable, repositoryPath, remotesError)
	}
	branches, branchesError := manager.readBranches(executionContext, repositoryPath)
	if branchesError != nil {
		return state, fmt.Errorf(unreadableRepositoryTemplateConstant, reconcile.ErrRepositoryUnreadable, repositoryPath, branchesError)
	}
	worktreeOutput, worktreeError := manager.runGit(executionContext, repositoryPath, gitCommandWorktreeConstant, gitSubcommandListConstant, gitFlagPorcelainConstant)
	if worktreeError != nil {
		return state, fmt.Errorf(unreadableRepositoryTemplateConstant, reconcile.ErrRepositoryUnreadable, repositoryPath, worktreeError)
	}

	state.Exists = true
	state.Remotes = remotes
	state.Branches = branches
	state.Head, state.Worktrees = linkedWorktrees(repositoryPath, ParseWorktreeList(worktreeOutput))
	return state, nil
}

func (manager *RepositoryManager) readRemotes(executionContext context.Context, repositoryPath string) (map[string]string, error) {
	output, remoteError := manager.runGit(executionContext, repositoryPath, gitCommandRemoteConstant, gitFlagVerboseConstant)
	if remoteError != nil {
		return nil, remoteError
	}
	remotes := map[string]string{}
	for _, line := range strings.Split(output, outputLineSeparatorConstant) {
		fields := strings.Fields(line)
		if len(fields) != 3 || fields[2] != remoteFetchSuffixConstant {
			continue
		}
		remotes[fields[0]] = fields[1]
	}
	return remotes, nil
}

func (manager *RepositoryManager) readBranches(executionContext context.Context, repositoryPath string) (map[string]reconcile.BranchState, error) {
	output, branchError := manager.runGit(executionContext, repositoryPath, gitCommandForEachRefConstant, gitBranchFormatArgumentConstant, gitLocalBranchesNamespaceConstant)
	if branchError != nil {
		return nil, branchError
	}
	branches := map[string]reconcile.BranchState{}
	for _, line := range strings.Split(output, outputLineSeparatorConstant) {
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		name, upstream, _ := strings.Cut(line, branchRecordSeparatorConstant)
		name = strings.TrimSpace(name)
		branches[name] = reconcile.BranchState{Name: name, Upstream: strings.TrimSpace(upstream)}
	}
	return branches, nil
}

// linkedWorktrees returns the main worktree HEAD and the linked worktrees inside the repository
// directory keyed by normalized subdirectory. Worktrees outside the repository and prunable entries
// are not reported.
func linkedWorktrees(repositoryPath string, records []WorktreeRecord) (string, map[string]string) {
	worktrees := map[string]string{}
	if len(records) == 0 {
		return "", worktrees
	}

	mainRecord := records[0]
	head := mainRecord.Branch
	if mainRecord.Detached {
		head = mainRecord.Head
	}

	basePath := canonicalPath(repositoryPath)
	for _, record := range records[1:] {
		if record.Prunable || record.Bare {
			continue
		}
		relativePath, relativeError := filepath.Rel(basePath, canonicalPath(record.Path))
		if relativeError != nil || relativePath == parentDirectoryPrefixConstant ||
			strings.HasPrefix(relativePath, parentDirectoryPrefixConstant+string(filepath.Separator)) {
			continue
		}
		worktrees[reconcile.NormalizeSubdirectory(filepath.ToSlash(relativePath))] = record.Branch
	}
	return head, worktrees
}

// canonicalPath resolves symlinks so paths reported by git compare with configured paths.
func canonicalPath(path string) string {
	absolutePath, absoluteError := filepath.Abs(path)
	if absoluteError != nil {
		absolutePath = path
	}
	resolvedPath, resolveError := filepath.EvalSymlinks(absolutePath)
	if resolveError != nil {
		return filepath.Clean(absolutePath)
	}
	return resolvedPath
}

// Clone clones request.URL into request.Path. The destination must be missing or an empty directory;
// whatever the clone created is removed again when it fails.
func (manager *RepositoryManager) Clone(executionContext context.Context, request reconcile.CloneRequest) error {
	destinationExisted, inspectError := manager.requireEmptyDestination(request.Path)
	if inspectError != nil {
		return inspectError
	}
	if mkdirError := manager.fileSystem.MkdirAll(filepath.Dir(request.Path), directoryPermissionsConstant); mkdirError != nil {
		return fmt.Errorf(classifiedErrorTemplateConstant, reconcile.ErrFilesystemConflict, mkdirError)
	}

	arguments := []string{gitCommandCloneConstant, fmt.Sprintf(gitOriginFlagTemplateConstant, request.RemoteName)}
	if len(request.Branch) > 0 {
		arguments = append(arguments, fmt.Sprintf(gitBranchFlagTemplateConstant, request.Branch))
	}
	arguments = append(arguments, gitEndOfOptionsConstant, request.URL, request.Path)

	_, cloneError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments})
	if cloneError == nil {
		return nil
	}

	classifiedError := classifyCommandError(cloneError)
	if rollbackError := manager.rollbackDestination(request.Path, destinationExisted); rollbackError != nil {
		return fmt.Errorf(rollbackFailedTemplateConstant, classifiedError, request.Path, rollbackError)
	}
	return classifiedError
}

func (manager *RepositoryManager) requireEmptyDestination(destination string) (bool, error) {
	destinationInfo, statError := manager.fileSystem.Stat(destination)
	if errors.Is(statError, fs.ErrNotExist) {
		return false, nil
	}
	if statError != nil {
		return false, fmt.Errorf(inspectDestinationTemplateConstant, reconcile.ErrFilesystemConflict, destination, statError)
	}
	if !destinationInfo.IsDir() {
		return true, fmt.Errorf(destinationNotDirectoryTemplateConstant, reconcile.ErrFilesystemConflict, destination)
	}
	entries, readError := manager.fileSystem.ReadDir(destination)
	if readError != nil {
		return true, fmt.Errorf(inspectDestinationTemplateConstant, reconcile.ErrFilesystemConflict, destination, readError)
	}
	if len(entries) > 0 {
		return true, fmt.Errorf(occupiedDestinationTemplateConstant, reconcile.ErrFilesystemConflict, destination)
	}
	return true, nil
}

func (manager *RepositoryManager) rollbackDestination(destination string, destinationExisted bool) error {
	if !destinationExisted {
		return manager.fileSystem.RemoveAll(destination)
	}
	entries, readError := manager.fileSystem.ReadDir(destination)
	if errors.Is(readError, fs.ErrNotExist) {
		return nil
	}
	if readError != nil {
		return readError
	}
	for _, entry := range entries {
		if removeError := manager.fileSystem.RemoveAll(filepath.Join(destination, entry.Name())); removeError != nil {
			return removeError
		}
	}
	return nil
}

// InitRepository creates an empty repository at repositoryPath.
func (manager *RepositoryManager) InitRepository(executionContext context.Context, repositoryPath string) error {
	if mkdirError := manager.fileSystem.MkdirAll(repositoryPath, directoryPermissionsConstant); mkdirError != nil {
		return fmt.Errorf(classifiedErrorTemplateConstant, reconcile.ErrFilesystemConflict, mkdirError)
	}
	_, initError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: []string{gitCommandInitConstant, repositoryPath}})
	return classifyCommandError(initError)
}

// AddRemote adds remote and, under FetchOnAdd, fetches it. A remote whose fetch fails is removed again
// so the next pass retries the whole action.
func (manager *RepositoryManager) AddRemote(executionContext context.Context, repositoryPath string, remote reconcile.Remote) error {
	arguments := []string{gitCommandRemoteConstant, gitSubcommandAddConstant}
	if remote.Fetch == reconcile.FetchOnAdd {
		arguments = append(arguments, gitFlagFetchConstant)
	}
	arguments = append(arguments, remote.Name, remote.URL)

	_, addError := manager.runGit(executionContext, repositoryPath, arguments...)
	if addError == nil {
		return nil
	}
	if remote.Fetch == reconcile.FetchOnAdd && standardErrorContains(addError, fetchFailedMarkerConstant) {
		_, _ = manager.runGit(executionContext, repositoryPath, gitCommandRemoteConstant, gitSubcommandRemoveConstant, remote.Name)
	}
	return classifyCommandError(addError)
}

// SetRemoteURL points remoteName at remoteURL.
func (manager *RepositoryManager) SetRemoteURL(executionContext context.Context, repositoryPath string, remoteName string, remoteURL string) error {
	_, setError := manager.runGit(executionContext, repositoryPath, gitCommandRemoteConstant, gitSubcommandSetURLConstant, remoteName, remoteURL)
	return classifyCommandError(setError)
}

// AddWorktree creates a linked worktree at the subdirectory. Administrative entries of worktrees whose
// directories are gone are pruned first so they do not block re-creation.
func (manager *RepositoryManager) AddWorktree(executionContext context.Context, repositoryPath string, request reconcile.WorktreeRequest) error {
	worktreePath := filepath.Join(repositoryPath, filepath.FromSlash(request.Subdirectory))
	if _, inspectError := manager.requireEmptyDestination(worktreePath); inspectError != nil {
		return inspectError
	}
	if mkdirError := manager.fileSystem.MkdirAll(filepath.Dir(worktreePath), directoryPermissionsConstant); mkdirError != nil {
		return fmt.Errorf(classifiedErrorTemplateConstant, reconcile.ErrFilesystemConflict, mkdirError)
	}
	if _, pruneError := manager.runGit(executionContext, repositoryPath, gitCommandWorktreeConstant, gitSubcommandPruneConstant); pruneError != nil {
		return classifyCommandError(pruneError)
	}

	arguments := []string{gitCommandWorktreeConstant, gitSubcommandAddConstant}
	if request.CreateBranch {
		arguments = append(arguments, gitFlagNoTrackConstant, gitFlagNewBranchConstant, request.Branch, gitEndOfOptionsConstant, request.Subdirectory)
		if len(request.StartPoint) > 0 {
			arguments = append(arguments, request.StartPoint)
		}
	} else {
		arguments = append(arguments, gitEndOfOptionsConstant, request.Subdirectory, request.Branch)
	}

	_, addError := manager.runGit(executionContext, repositoryPath, arguments...)
	return classifyCommandError(addError)
}

// RemoveWorktree removes the linked worktree at the subdirectory. Worktrees with local modifications are refused by git.
func (manager *RepositoryManager) RemoveWorktree(executionContext context.Context, repositoryPath string, subdirectory string) error {
	_, removeError := manager.runGit(executionContext, repositoryPath, gitCommandWorktreeConstant, gitSubcommandRemoveConstant, subdirectory)
	return classifyCommandError(removeError)
}

// SetUpstream makes branch track upstream.
func (manager *RepositoryManager) SetUpstream(executionContext context.Context, repositoryPath string, branch string, upstream string) error {
	_, upstreamError := manager.runGit(executionContext, repositoryPath, gitCommandBranchConstant, fmt.Sprintf(gitSetUpstreamFlagTemplateConstant, upstream), branch)
	return classifyCommandError(upstreamError)
}

// FetchRemotes fetches every remote of the repository. Local branches are not moved.
func (manager *RepositoryManager) FetchRemotes(executionContext context.Context, repositoryPath string) error {
	_, fetchError := manager.runGit(executionContext, repositoryPath, gitCommandFetchConstant, gitFlagAllRemotesConstant)
	return classifyCommandError(fetchError)
}

func (manager *RepositoryManager) runGit(executionContext context.Context, repositoryPath string, arguments ...string) (string, error) {
	result, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", executionError
	}
	return result.StandardOutput, nil
}
