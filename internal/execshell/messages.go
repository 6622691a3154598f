package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	exitCodeSuffixTemplateConstant          = " (exit code %d%s)"
	executionFailureSuffixTemplateConstant  = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	unknownValueLabelConstant               = "unknown"
)

const (
	gitCloneSubcommandNameConstant        = "clone"
	gitInitSubcommandNameConstant         = "init"
	gitRemoteSubcommandNameConstant       = "remote"
	gitRemoteAddSubcommandNameConstant    = "add"
	gitRemoteSetURLSubcommandNameConstant = "set-url"
	gitWorktreeSubcommandNameConstant     = "worktree"
	gitWorktreeAddSubcommandNameConstant  = "add"
	gitWorktreeRemoveSubcommandConstant   = "remove"
	gitWorktreeListSubcommandNameConstant = "list"
	gitBranchSubcommandNameConstant       = "branch"
	gitSetUpstreamFlagPrefixConstant      = "--set-upstream-to="
	gitForEachRefSubcommandNameConstant   = "for-each-ref"
	gitRevParseSubcommandNameConstant     = "rev-parse"
	gitFetchSubcommandNameConstant        = "fetch"
	gitOptionPrefixConstant               = "-"
	githubAPICommandNameConstant          = "api"
)

// stageTemplates holds the phrasing of one operation. Failure phrasing gets an exit code or cause suffix appended.
// Operations that only read repository state are not mutating.
type stageTemplates struct {
	start    string
	success  string
	failure  string
	mutating bool
}

var (
	cloneTemplates           = stageTemplates{start: "Cloning %s into %s", success: "Cloned %s into %s", failure: "Failed to clone %s into %s", mutating: true}
	initTemplates            = stageTemplates{start: "Initializing repository at %s", success: "Initialized repository at %s", failure: "Failed to initialize repository at %s", mutating: true}
	remoteAddTemplates       = stageTemplates{start: "Adding remote %s (%s) in %s", success: "Added remote %s (%s) in %s", failure: "Failed to add remote %s (%s) in %s", mutating: true}
	remoteSetURLTemplates    = stageTemplates{start: "Pointing remote %s at %s in %s", success: "Remote %s now points at %s in %s", failure: "Failed to point remote %s at %s in %s", mutating: true}
	remoteListTemplates      = stageTemplates{start: "Listing remotes in %s", success: "Listed remotes in %s", failure: "Failed to list remotes in %s"}
	worktreeAddTemplates     = stageTemplates{start: "Creating worktree %s in %s", success: "Created worktree %s in %s", failure: "Failed to create worktree %s in %s", mutating: true}
	worktreeRemoveTemplates  = stageTemplates{start: "Removing worktree %s in %s", success: "Removed worktree %s in %s", failure: "Failed to remove worktree %s in %s", mutating: true}
	worktreeListTemplates    = stageTemplates{start: "Listing worktrees in %s", success: "Listed worktrees in %s", failure: "Failed to list worktrees in %s"}
	setUpstreamTemplates     = stageTemplates{start: "Tracking %s for branch %s in %s", success: "Branch %[2]s tracks %[1]s in %[3]s", failure: "Failed to track %s for branch %s in %s", mutating: true}
	branchListTemplates      = stageTemplates{start: "Listing branches in %s", success: "Listed branches in %s", failure: "Failed to list branches in %s"}
	repositoryProbeTemplates = stageTemplates{start: "Analyzing repository at %s", success: "Analyzed repository at %s", failure: "Could not analyze repository at %s"}
	fetchTemplates           = stageTemplates{start: "Fetching from %s in %s", success: "Fetched from %s in %s", failure: "Failed to fetch from %s in %s", mutating: true}
	githubAPITemplates       = stageTemplates{start: "Querying GitHub %s", success: "Queried GitHub %s", failure: "Failed to query GitHub %s"}
)

var valuedOptions = map[string]struct{}{
	"-b":       {},
	"-B":       {},
	"-o":       {},
	"--origin": {},
	"--branch": {},
	"--jq":     {},
	"-H":       {},
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

// Mutates reports whether command changes a repository or its working trees. Commands the formatter
// does not recognize are treated as mutating.
func (formatter CommandMessageFormatter) Mutates(command ShellCommand) bool {
	templates, _, recognized := formatter.describe(command)
	return !recognized || templates.mutating
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	templates, values, recognized := formatter.describe(command)
	if !recognized {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, values...)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, values...)
	case messageStageFailure:
		return fmt.Sprintf(templates.failure, values...) + fmt.Sprintf(exitCodeSuffixTemplateConstant, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(templates.failure, values...) + fmt.Sprintf(executionFailureSuffixTemplateConstant, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describe(command ShellCommand) (stageTemplates, []any, bool) {
	positional := positionalArguments(command.Details.Arguments)
	workingDirectory := formatter.describeWorkingDirectory(command)

	if command.Name == CommandGitHub {
		if len(positional) >= 2 && positional[0] == githubAPICommandNameConstant {
			return githubAPITemplates, []any{positional[1]}, true
		}
		return stageTemplates{}, nil, false
	}
	if command.Name != CommandGit || len(positional) == 0 {
		return stageTemplates{}, nil, false
	}

	switch positional[0] {
	case gitCloneSubcommandNameConstant:
		return cloneTemplates, []any{valueAt(positional, 1), valueAt(positional, 2)}, true
	case gitInitSubcommandNameConstant:
		return initTemplates, []any{valueAt(positional, 1)}, true
	case gitRemoteSubcommandNameConstant:
		switch valueAt(positional, 1) {
		case gitRemoteAddSubcommandNameConstant:
			return remoteAddTemplates, []any{valueAt(positional, 2), valueAt(positional, 3), workingDirectory}, true
		case gitRemoteSetURLSubcommandNameConstant:
			return remoteSetURLTemplates, []any{valueAt(positional, 2), valueAt(positional, 3), workingDirectory}, true
		default:
			return remoteListTemplates, []any{workingDirectory}, true
		}
	case gitWorktreeSubcommandNameConstant:
		switch valueAt(positional, 1) {
		case gitWorktreeAddSubcommandNameConstant:
			return worktreeAddTemplates, []any{valueAt(positional, 2), workingDirectory}, true
		case gitWorktreeRemoveSubcommandConstant:
			return worktreeRemoveTemplates, []any{valueAt(positional, 2), workingDirectory}, true
		case gitWorktreeListSubcommandNameConstant:
			return worktreeListTemplates, []any{workingDirectory}, true
		}
	case gitBranchSubcommandNameConstant:
		for _, argument := range command.Details.Arguments {
			if strings.HasPrefix(argument, gitSetUpstreamFlagPrefixConstant) {
				upstream := strings.TrimPrefix(argument, gitSetUpstreamFlagPrefixConstant)
				return setUpstreamTemplates, []any{upstream, valueAt(positional, 1), workingDirectory}, true
			}
		}
	case gitForEachRefSubcommandNameConstant:
		return branchListTemplates, []any{workingDirectory}, true
	case gitRevParseSubcommandNameConstant:
		return repositoryProbeTemplates, []any{workingDirectory}, true
	case gitFetchSubcommandNameConstant:
		return fetchTemplates, []any{valueAt(positional, 1), workingDirectory}, true
	}

	return stageTemplates{}, nil, false
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	workingDirectorySuffix := emptyStringConstant
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) > 0 {
		workingDirectorySuffix = fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
	}
	return fmt.Sprintf(commandLabelTemplateConstant, describeCommand(command), workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

// positionalArguments drops options, and the values of options that take one, so templates can address operands by index.
func positionalArguments(arguments []string) []string {
	positional := make([]string, 0, len(arguments))
	skipNext := false
	for _, argument := range arguments {
		trimmedArgument := strings.TrimSpace(argument)
		if skipNext {
			skipNext = false
			continue
		}
		if _, takesValue := valuedOptions[trimmedArgument]; takesValue {
			skipNext = true
			continue
		}
		if len(trimmedArgument) == 0 || strings.HasPrefix(trimmedArgument, gitOptionPrefixConstant) {
			continue
		}
		positional = append(positional, trimmedArgument)
	}
	return positional
}

func valueAt(values []string, index int) string {
	if index < 0 || index >= len(values) {
		return unknownValueLabelConstant
	}
	return values[index]
}
