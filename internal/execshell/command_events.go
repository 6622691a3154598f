package execshell

// CommandEventObserver follows each git or gh process through its lifecycle. The console logger
// implements it to narrate what reconciliation is doing on disk.
type CommandEventObserver interface {
	// CommandStarted runs before the process is launched.
	CommandStarted(command ShellCommand)
	// CommandCompleted runs once the process exited, whatever its exit code.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed runs when the process could not be started or awaited.
	CommandExecutionFailed(command ShellCommand, failure error)
}

type discardingObserver struct{}

func (discardingObserver) CommandStarted(ShellCommand) {}

func (discardingObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (discardingObserver) CommandExecutionFailed(ShellCommand, error) {}
