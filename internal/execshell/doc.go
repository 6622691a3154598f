// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with zap logging and lifecycle
// notifications, and OSCommandRunner runs processes through os/exec. The
// git backend and the GitHub repository lister both run their commands
// through this package so they can be exercised with recording runners.
package execshell
