package execshell

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"os"
	"os/exec"
	"slices"
	"time"
)

const (
	environmentAssignmentSeparatorConstant = "="
	gitTerminalPromptVariableConstant      = "GIT_TERMINAL_PROMPT"
	gitHubPromptVariableConstant           = "GH_PROMPT_DISABLED"
	disabledPromptValueConstant            = "0"
	enabledFlagValueConstant               = "1"
	cancellationWaitDelay                  = 5 * time.Second
)

// nonInteractiveEnvironment keeps git and gh from waiting on a terminal prompt for credentials.
var nonInteractiveEnvironment = map[CommandName]map[string]string{
	CommandGit:    {gitTerminalPromptVariableConstant: disabledPromptValueConstant},
	CommandGitHub: {gitHubPromptVariableConstant: enabledFlagValueConstant},
}

// OSCommandRunner starts git and gh as child processes. Commands never read from the terminal; a
// credential prompt fails the command instead of blocking reconciliation.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run starts the process and waits for it. A non-zero exit is a result, not an error; only failures to
// start or await the process are returned as errors.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	process := exec.CommandContext(executionContext, string(command.Name), slices.Clone(command.Details.Arguments)...)
	process.Dir = command.Details.WorkingDirectory
	process.Env = processEnvironment(command)
	process.WaitDelay = cancellationWaitDelay

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	process.Stdout = &standardOutput
	process.Stderr = &standardError
	if len(command.Details.StandardInput) > 0 {
		process.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	runError := process.Run()
	result := ExecutionResult{StandardOutput: standardOutput.String(), StandardError: standardError.String()}
	if runError == nil {
		return result, nil
	}

	var exitError *exec.ExitError
	if errors.As(runError, &exitError) && executionContext.Err() == nil {
		result.ExitCode = exitError.ExitCode()
		return result, nil
	}
	if contextError := executionContext.Err(); contextError != nil {
		return ExecutionResult{}, contextError
	}
	return ExecutionResult{}, runError
}

// processEnvironment layers the prompt suppression for the command and the caller's variables over
// the inherited environment, in key order so repeated runs see identical environments.
func processEnvironment(command ShellCommand) []string {
	overrides := maps.Clone(nonInteractiveEnvironment[command.Name])
	if overrides == nil {
		overrides = map[string]string{}
	}
	maps.Copy(overrides, command.Details.EnvironmentVariables)

	environment := slices.Clone(os.Environ())
	for _, variableName := range slices.Sorted(maps.Keys(overrides)) {
		environment = append(environment, variableName+environmentAssignmentSeparatorConstant+overrides[variableName])
	}
	return environment
}
