package reconcile

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	remoteFetcherNotConfiguredMessageConstant = "reconcile engine remote fetcher not configured"
	repositoryFetchedMessageConstant          = "Repository remotes fetched"
	repositoryFetchFailedMessageConstant      = "Repository fetch failed"
	repositoryFetchSkippedMessageConstant     = "Repository fetch skipped; repository missing"
)

// ErrRemoteFetcherNotConfigured indicates Fetch was called on an engine without a remote fetcher.
var ErrRemoteFetcherNotConfigured = errors.New(remoteFetcherNotConfiguredMessageConstant)

// FetchOutcome is the result of fetching one repository.
type FetchOutcome string

// Fetch outcomes.
const (
	FetchOutcomeFetched   FetchOutcome = "fetched"
	FetchOutcomeMissing   FetchOutcome = "missing"
	FetchOutcomeFailed    FetchOutcome = "failed"
	FetchOutcomeCancelled FetchOutcome = "cancelled"
)

// RepositoryFetchReport describes the fetch of one configured repository.
type RepositoryFetchReport struct {
	Name    string
	Path    string
	Outcome FetchOutcome
	Error   *Error
}

// FetchReport aggregates a fetch pass in configuration order.
type FetchReport struct {
	Repositories []RepositoryFetchReport
}

// FailureCount returns the number of repositories whose fetch failed or was cancelled. Missing
// repositories are not failures.
func (report FetchReport) FailureCount() int {
	failures := 0
	for _, repositoryReport := range report.Repositories {
		if repositoryReport.Outcome == FetchOutcomeFailed || repositoryReport.Outcome == FetchOutcomeCancelled {
			failures++
		}
	}
	return failures
}

// Succeeded reports whether no repository failed.
func (report FetchReport) Succeeded() bool {
	return report.FailureCount() == 0
}

// Fetch refreshes the remotes of every configured repository that exists, with the same isolation
// and parallelism as Reconcile. Repositories that do not exist yet are reported missing and left alone.
func (engine *Engine) Fetch(executionContext context.Context, configs []RepositoryConfig) (FetchReport, error) {
	if engine.fetcher == nil {
		return FetchReport{}, ErrRemoteFetcherNotConfigured
	}

	var mutex sync.Mutex
	reports := make([]RepositoryFetchReport, len(configs))
	record := func(index int, report RepositoryFetchReport) {
		mutex.Lock()
		defer mutex.Unlock()
		reports[index] = report
	}

	var group errgroup.Group
	group.SetLimit(engine.options.Parallelism)
	for index, config := range configs {
		if executionContext.Err() != nil {
			record(index, cancelledFetchReport(config))
			continue
		}
		group.Go(func() error {
			if executionContext.Err() != nil {
				record(index, cancelledFetchReport(config))
				return nil
			}
			record(index, engine.fetchRepository(executionContext, config))
			return nil
		})
	}
	_ = group.Wait()

	return FetchReport{Repositories: reports}, nil
}

func (engine *Engine) fetchRepository(executionContext context.Context, config RepositoryConfig) RepositoryFetchReport {
	report := RepositoryFetchReport{Name: config.Name, Path: config.Path}
	repositoryFields := []zap.Field{
		zap.String(logFieldRepositoryConstant, config.Identity()),
		zap.String(logFieldPathConstant, config.Path),
	}

	state, readError := engine.stateReader.ReadState(context.WithoutCancel(executionContext), config.Path)
	if readError != nil {
		report.Outcome = FetchOutcomeFailed
		report.Error = newError(config.Identity(), nil, readError)
		engine.logger.Warn(repositoryFetchFailedMessageConstant, append(repositoryFields, zap.String(logFieldErrorKindConstant, string(report.Error.Kind)), zap.String(logFieldDetailConstant, report.Error.Detail))...)
		return report
	}
	if !state.Exists {
		report.Outcome = FetchOutcomeMissing
		engine.logger.Info(repositoryFetchSkippedMessageConstant, repositoryFields...)
		return report
	}

	if fetchError := engine.fetcher.FetchRemotes(context.WithoutCancel(executionContext), config.Path); fetchError != nil {
		report.Outcome = FetchOutcomeFailed
		report.Error = newError(config.Identity(), nil, fetchError)
		engine.logger.Warn(repositoryFetchFailedMessageConstant, append(repositoryFields, zap.String(logFieldErrorKindConstant, string(report.Error.Kind)), zap.String(logFieldDetailConstant, report.Error.Detail))...)
		return report
	}
	report.Outcome = FetchOutcomeFetched
	engine.logger.Info(repositoryFetchedMessageConstant, repositoryFields...)
	return report
}

func cancelledFetchReport(config RepositoryConfig) RepositoryFetchReport {
	return RepositoryFetchReport{
		Name:    config.Name,
		Path:    config.Path,
		Outcome: FetchOutcomeCancelled,
		Error:   newError(config.Identity(), nil, context.Canceled),
	}
}
