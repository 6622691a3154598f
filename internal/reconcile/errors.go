package reconcile

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies reconciliation failures.
type ErrorKind string

// Failure kinds.
const (
	ErrorKindConfigurationAmbiguous ErrorKind = "ConfigurationAmbiguous"
	ErrorKindRepositoryUnreadable   ErrorKind = "RepositoryUnreadable"
	ErrorKindNetworkFailure         ErrorKind = "NetworkFailure"
	ErrorKindBackendOperationFailed ErrorKind = "BackendOperationFailed"
	ErrorKindFilesystemConflict     ErrorKind = "FilesystemConflict"
	ErrorKindCancelled              ErrorKind = "Cancelled"
)

var (
	// ErrConfigurationAmbiguous marks configuration that cannot be mapped onto one plan.
	ErrConfigurationAmbiguous = errors.New("configuration ambiguous")
	// ErrRepositoryUnreadable marks an existing path that cannot be read as a repository.
	ErrRepositoryUnreadable = errors.New("repository unreadable")
	// ErrNetworkFailure marks a remote that could not be reached.
	ErrNetworkFailure = errors.New("network failure")
	// ErrBackendOperationFailed marks an operation the backend rejected.
	ErrBackendOperationFailed = errors.New("backend operation failed")
	// ErrFilesystemConflict marks a target path that exists and cannot be used.
	ErrFilesystemConflict = errors.New("filesystem conflict")
)

const (
	errorWithActionTemplateConstant    = "%s: %s %s: %s"
	errorWithoutActionTemplateConstant = "%s: %s: %s"
)

// Error attaches a failure to the repository and action it occurred in.
type Error struct {
	Kind       ErrorKind
	Repository string
	Action     string
	Detail     string
	Cause      error
}

// Error describes the failure with its context.
func (reconcileError *Error) Error() string {
	if len(reconcileError.Action) == 0 {
		return fmt.Sprintf(errorWithoutActionTemplateConstant, reconcileError.Repository, reconcileError.Kind, reconcileError.Detail)
	}
	return fmt.Sprintf(errorWithActionTemplateConstant, reconcileError.Repository, reconcileError.Action, reconcileError.Kind, reconcileError.Detail)
}

// Unwrap exposes the underlying cause.
func (reconcileError *Error) Unwrap() error {
	return reconcileError.Cause
}

// ClassifyError maps an error onto the failure taxonomy. Unrecognized errors are backend failures.
func ClassifyError(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrConfigurationAmbiguous):
		return ErrorKindConfigurationAmbiguous
	case errors.Is(err, ErrRepositoryUnreadable):
		return ErrorKindRepositoryUnreadable
	case errors.Is(err, ErrNetworkFailure):
		return ErrorKindNetworkFailure
	case errors.Is(err, ErrFilesystemConflict):
		return ErrorKindFilesystemConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindCancelled
	default:
		return ErrorKindBackendOperationFailed
	}
}

func newError(repository string, action PlannedAction, cause error) *Error {
	actionDescription := ""
	if action != nil {
		actionDescription = action.String()
	}
	return &Error{
		Kind:       ClassifyError(cause),
		Repository: repository,
		Action:     actionDescription,
		Detail:     cause.Error(),
		Cause:      cause,
	}
}
