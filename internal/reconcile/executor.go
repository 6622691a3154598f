package reconcile

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

const (
	backendNotConfiguredMessageConstant = "action executor backend not configured"
	actionSucceededMessageConstant      = "Action succeeded"
	actionFailedMessageConstant         = "Action failed"
	actionsSkippedMessageConstant       = "Remaining actions skipped"
	logFieldRepositoryConstant          = "repository"
	logFieldPathConstant                = "path"
	logFieldActionConstant              = "action"
	logFieldErrorKindConstant           = "error_kind"
	logFieldSkippedActionsConstant      = "skipped_actions"
)

// ErrBackendNotConfigured indicates the executor was constructed without a backend.
var ErrBackendNotConfigured = errors.New(backendNotConfiguredMessageConstant)

// ActionExecutor applies a repository plan in order and stops at the first failure.
type ActionExecutor struct {
	backend Backend
	logger  *zap.Logger
}

// NewActionExecutor constructs an ActionExecutor. A nil logger discards log output.
func NewActionExecutor(backend Backend, logger *zap.Logger) (*ActionExecutor, error) {
	if backend == nil {
		return nil, ErrBackendNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionExecutor{backend: backend, logger: logger}, nil
}

// Execute runs each action of plan against the repository and returns one result per action.
// Actions after the first failure are reported as skipped. Backend calls are not cancelled mid-action.
func (executor *ActionExecutor) Execute(executionContext context.Context, config RepositoryConfig, plan []PlannedAction) ([]ActionResult, *Error) {
	backendContext := context.WithoutCancel(executionContext)
	results := make([]ActionResult, 0, len(plan))
	repositoryFields := []zap.Field{
		zap.String(logFieldRepositoryConstant, config.Identity()),
		zap.String(logFieldPathConstant, config.Path),
	}

	for actionIndex, action := range plan {
		applyError := action.apply(backendContext, executor.backend, config.Path)
		if applyError == nil {
			executor.logger.Debug(actionSucceededMessageConstant, append(repositoryFields, zap.Stringer(logFieldActionConstant, action))...)
			results = append(results, ActionResult{Action: action, Outcome: ActionOutcomeSucceeded})
			continue
		}

		failure := newError(config.Identity(), action, applyError)
		executor.logger.Warn(
			actionFailedMessageConstant,
			append(repositoryFields,
				zap.Stringer(logFieldActionConstant, action),
				zap.String(logFieldErrorKindConstant, string(failure.Kind)),
				zap.Error(applyError),
			)...,
		)
		results = append(results, ActionResult{Action: action, Outcome: ActionOutcomeFailed, Error: failure})

		remaining := plan[actionIndex+1:]
		if len(remaining) > 0 {
			executor.logger.Info(actionsSkippedMessageConstant, append(repositoryFields, zap.Int(logFieldSkippedActionsConstant, len(remaining)))...)
		}
		for _, skippedAction := range remaining {
			results = append(results, ActionResult{Action: skippedAction, Outcome: ActionOutcomeSkipped})
		}
		return results, failure
	}

	return results, nil
}
