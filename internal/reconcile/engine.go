package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/reposync/internal/repos/shared"
)

const (
	stateReaderNotConfiguredMessageConstant = "reconcile engine state reader not configured"
	duplicatePathTemplateConstant           = "%w: path %s is configured for repositories %s"
	nestedPathTemplateConstant              = "%w: path %s of repository %s lies inside path %s of repository %s"
	repositoryNamesSeparatorConstant        = ", "
	repositoryStartedMessageConstant        = "Reconciling repository"
	repositoryPlannedMessageConstant        = "Repository planned"
	repositoryConvergedMessageConstant      = "Repository reconciled"
	repositoryFailedMessageConstant         = "Repository reconciliation failed"
	repositoryCancelledMessageConstant      = "Repository skipped after cancellation"
	logFieldPlannedActionsConstant          = "planned_actions"
	logFieldFailedConstant                  = "failed"
	logFieldDryRunConstant                  = "dry_run"
	logFieldDetailConstant                  = "detail"
	defaultParallelismConstant              = 1
)

// ErrStateReaderNotConfigured indicates the engine was constructed without a state reader.
var ErrStateReaderNotConfigured = errors.New(stateReaderNotConfiguredMessageConstant)

// EngineDependencies captures the collaborators of the reconciliation engine.
type EngineDependencies struct {
	StateReader StateReader
	Backend     Backend
	Fetcher     RemoteFetcher
	Logger      *zap.Logger
}

// EngineOptions configures a reconciliation pass.
type EngineOptions struct {
	Parallelism int
	Mode        shared.ExecutionMode
}

// Engine reconciles many repositories, each independently of the others.
type Engine struct {
	stateReader StateReader
	executor    *ActionExecutor
	fetcher     RemoteFetcher
	logger      *zap.Logger
	options     EngineOptions
}

// NewEngine constructs an Engine. Parallelism below one runs repositories sequentially. The fetcher
// is optional and only needed by Fetch.
func NewEngine(dependencies EngineDependencies, options EngineOptions) (*Engine, error) {
	if dependencies.StateReader == nil {
		return nil, ErrStateReaderNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	executor, executorError := NewActionExecutor(dependencies.Backend, logger)
	if executorError != nil {
		return nil, executorError
	}
	if options.Parallelism < defaultParallelismConstant {
		options.Parallelism = defaultParallelismConstant
	}
	return &Engine{
		stateReader: dependencies.StateReader,
		executor:    executor,
		fetcher:     dependencies.Fetcher,
		logger:      logger,
		options:     options,
	}, nil
}

// reportCollector is the single synchronized aggregation point shared by repository workers.
type reportCollector struct {
	mutex   sync.Mutex
	reports []RepositoryReport
}

func (collector *reportCollector) record(index int, report RepositoryReport) {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	collector.reports[index] = report
}

// Reconcile plans and, unless running dry, applies every configuration. Cancelling the context stops
// new repositories from starting; repositories already running finish their current plan.
func (engine *Engine) Reconcile(executionContext context.Context, configs []RepositoryConfig) Report {
	collector := &reportCollector{reports: make([]RepositoryReport, len(configs))}
	ambiguousPaths := duplicatePathErrors(configs)

	var group errgroup.Group
	group.SetLimit(engine.options.Parallelism)
	for index, config := range configs {
		if ambiguity, ambiguous := ambiguousPaths[index]; ambiguous {
			collector.record(index, RepositoryReport{Name: config.Name, Path: config.Path, Error: newError(config.Identity(), nil, ambiguity)})
			continue
		}
		if executionContext.Err() != nil {
			collector.record(index, engine.cancelledReport(config))
			continue
		}
		group.Go(func() error {
			if executionContext.Err() != nil {
				collector.record(index, engine.cancelledReport(config))
				return nil
			}
			collector.record(index, engine.reconcileRepository(executionContext, config))
			return nil
		})
	}
	_ = group.Wait()

	return Report{Repositories: collector.reports, DryRun: !engine.options.Mode.ShouldApply()}
}

func (engine *Engine) reconcileRepository(executionContext context.Context, config RepositoryConfig) RepositoryReport {
	report := RepositoryReport{Name: config.Name, Path: config.Path}
	repositoryFields := []zap.Field{
		zap.String(logFieldRepositoryConstant, config.Identity()),
		zap.String(logFieldPathConstant, config.Path),
	}
	engine.logger.Debug(repositoryStartedMessageConstant, repositoryFields...)

	state, readError := engine.stateReader.ReadState(context.WithoutCancel(executionContext), config.Path)
	if readError != nil {
		report.Error = newError(config.Identity(), nil, readError)
		engine.logFailure(repositoryFields, report.Error)
		return report
	}
	report.State = state

	plan, planError := BuildPlan(config, state)
	if planError != nil {
		report.Error = newError(config.Identity(), nil, planError)
		engine.logFailure(repositoryFields, report.Error)
		return report
	}
	report.Plan = plan

	if !engine.options.Mode.ShouldApply() {
		for _, action := range plan {
			report.Results = append(report.Results, ActionResult{Action: action, Outcome: ActionOutcomePlanned})
		}
		engine.logger.Info(repositoryPlannedMessageConstant, append(repositoryFields, zap.Int(logFieldPlannedActionsConstant, len(plan)), zap.Bool(logFieldDryRunConstant, true))...)
		return report
	}

	results, failure := engine.executor.Execute(executionContext, config, plan)
	report.Results = results
	if failure != nil {
		report.Error = failure
		engine.logFailure(append(repositoryFields, zap.Int(logFieldPlannedActionsConstant, len(plan))), failure)
		return report
	}

	engine.logger.Info(repositoryConvergedMessageConstant, append(repositoryFields, zap.Int(logFieldPlannedActionsConstant, len(plan)), zap.Bool(logFieldFailedConstant, false))...)
	return report
}

func (engine *Engine) cancelledReport(config RepositoryConfig) RepositoryReport {
	engine.logger.Info(repositoryCancelledMessageConstant, zap.String(logFieldRepositoryConstant, config.Identity()), zap.String(logFieldPathConstant, config.Path))
	return RepositoryReport{
		Name:      config.Name,
		Path:      config.Path,
		Cancelled: true,
		Error:     newError(config.Identity(), nil, context.Canceled),
	}
}

func (engine *Engine) logFailure(fields []zap.Field, failure *Error) {
	engine.logger.Warn(
		repositoryFailedMessageConstant,
		append(fields,
			zap.Bool(logFieldFailedConstant, true),
			zap.String(logFieldErrorKindConstant, string(failure.Kind)),
			zap.String(logFieldActionConstant, failure.Action),
			zap.String(logFieldDetailConstant, failure.Detail),
		)...,
	)
}

// duplicatePathErrors maps the index of every configuration sharing a path with another, or whose
// path contains or lies inside another configured path, to its error.
func duplicatePathErrors(configs []RepositoryConfig) map[int]error {
	indexesByPath := make(map[string][]int, len(configs))
	orderedPaths := make([]string, 0, len(configs))
	for index, config := range configs {
		cleanedPath := filepath.Clean(config.Path)
		if _, seen := indexesByPath[cleanedPath]; !seen {
			orderedPaths = append(orderedPaths, cleanedPath)
		}
		indexesByPath[cleanedPath] = append(indexesByPath[cleanedPath], index)
	}

	ambiguities := make(map[int]error)
	for _, cleanedPath := range orderedPaths {
		indexes := indexesByPath[cleanedPath]
		if len(indexes) < 2 {
			continue
		}
		names := make([]string, 0, len(indexes))
		for _, index := range indexes {
			names = append(names, configs[index].Identity())
		}
		ambiguity := fmt.Errorf(duplicatePathTemplateConstant, ErrConfigurationAmbiguous, cleanedPath, strings.Join(names, repositoryNamesSeparatorConstant))
		for _, index := range indexes {
			ambiguities[index] = ambiguity
		}
	}

	for _, innerPath := range orderedPaths {
		outerPath, nested := enclosingConfiguredPath(innerPath, indexesByPath)
		if !nested {
			continue
		}
		innerIndex := indexesByPath[innerPath][0]
		outerIndex := indexesByPath[outerPath][0]
		ambiguity := fmt.Errorf(
			nestedPathTemplateConstant,
			ErrConfigurationAmbiguous,
			innerPath,
			configs[innerIndex].Identity(),
			outerPath,
			configs[outerIndex].Identity(),
		)
		for _, index := range slices.Concat(indexesByPath[innerPath], indexesByPath[outerPath]) {
			if _, recorded := ambiguities[index]; !recorded {
				ambiguities[index] = ambiguity
			}
		}
	}
	return ambiguities
}

// enclosingConfiguredPath walks the parents of candidatePath and returns the nearest one that is
// itself configured.
func enclosingConfiguredPath(candidatePath string, indexesByPath map[string][]int) (string, bool) {
	currentPath := candidatePath
	for {
		parentPath := filepath.Dir(currentPath)
		if parentPath == currentPath {
			return "", false
		}
		if _, configured := indexesByPath[parentPath]; configured {
			return parentPath, true
		}
		currentPath = parentPath
	}
}
