package gitrepo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/reconcile"
)

const classifiedErrorTemplateConstant = "%w: %w"

// missingRepositoryMarkers take precedence over network markers: over ssh git follows "not found"
// with "could not read from remote repository".
var missingRepositoryMarkers = []string{
	"repository not found",
	"' not found",
	"' does not exist",
}

var networkFailureMarkers = []string{
	"could not resolve host",
	"could not resolve hostname",
	"could not read from remote repository",
	"connection refused",
	"connection timed out",
	"operation timed out",
	"network is unreachable",
	"unable to access",
	"authentication failed",
	"permission denied (publickey",
	"early eof",
	"the remote end hung up unexpectedly",
}

var filesystemConflictMarkers = []string{
	"already exists and is not an empty directory",
	"could not create work tree dir",
	"could not create leading directories",
	"permission denied",
	"not a directory",
}

// classifyCommandError wraps a git failure with the reconcile sentinel that matches its standard error.
func classifyCommandError(commandError error) error {
	if commandError == nil {
		return nil
	}

	var failedError execshell.CommandFailedError
	if !errors.As(commandError, &failedError) {
		return fmt.Errorf(classifiedErrorTemplateConstant, reconcile.ErrBackendOperationFailed, commandError)
	}

	standardError := strings.ToLower(failedError.Result.StandardError)
	for _, marker := range missingRepositoryMarkers {
		if strings.Contains(standardError, marker) {
			return fmt.Errorf(classifiedErrorTemplateConstant, reconcile.ErrBackendOperationFailed, commandError)
		}
	}
	for _, marker := range networkFailureMarkers {
		if strings.Contains(standardError, marker) {
			return fmt.Errorf(classifiedErrorTemplateConstant, reconcile.ErrNetworkFailure, commandError)
		}
	}
	for _, marker := range filesystemConflictMarkers {
		if strings.Contains(standardError, marker) {
			return fmt.Errorf(classifiedErrorTemplateConstant, reconcile.ErrFilesystemConflict, commandError)
		}
	}
	return fmt.Errorf(classifiedErrorTemplateConstant, reconcile.ErrBackendOperationFailed, commandError)
}

func standardErrorContains(commandError error, marker string) bool {
	var failedError execshell.CommandFailedError
	if !errors.As(commandError, &failedError) {
		return false
	}
	return strings.Contains(strings.ToLower(failedError.Result.StandardError), marker)
}
