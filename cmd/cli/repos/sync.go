package repos

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/manifest"
	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/repos/discovery"
	"github.com/temirov/reposync/internal/repos/shared"
	"github.com/temirov/reposync/internal/ui"
	"github.com/temirov/reposync/internal/utils"
	flagutils "github.com/temirov/reposync/internal/utils/flags"
	pathutils "github.com/temirov/reposync/internal/utils/path"
)

const (
	syncUseConstant                     = "sync"
	syncShortDescription                = "Reconcile repositories with the manifest"
	syncLongDescription                 = "sync plans the actions that bring every repository in the manifest to its desired state and applies them. Repositories are reconciled independently; a failure in one never stops the others."
	reconciliationFailedMessageConstant = "reconciliation finished with failures"
	unmanagedRepositoryMessageConstant  = "Unmanaged repository found under tree root"
	unmanagedWarningTemplateConstant    = "unmanaged repository %s"
	logFieldPathConstant                = "path"
	summaryLineTemplateConstant         = "%s"
	unmanagedCheckFailedMessageConstant = "Unable to check tree roots for unmanaged repositories"
)

// ErrReconciliationFailed indicates at least one repository did not converge.
var ErrReconciliationFailed = errors.New(reconciliationFailedMessageConstant)

// SyncCommandBuilder assembles the sync command.
type SyncCommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        ConfigurationProvider
	Dependencies                 CommandDependencies
}

// Build constructs the sync command.
func (builder *SyncCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   syncUseConstant,
		Short: syncShortDescription,
		Long:  syncLongDescription,
		Args:  cobra.NoArgs,
	}

	defaults := DefaultToolsConfiguration()
	manifestFlag := flagutils.BindManifestFlag(command, flagutils.ManifestFlagValues{Path: defaults.Manifest})
	executionFlags := flagutils.BindExecutionFlags(command, flagutils.ExecutionDefaults{DryRun: defaults.DryRun, Parallelism: defaults.Parallelism}, flagutils.DefaultExecutionFlagDefinitions())

	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, manifestFlag, executionFlags)
	}
	return command, nil
}

func (builder *SyncCommandBuilder) environment() commandEnvironment {
	return commandEnvironment{
		LoggerProvider:               builder.LoggerProvider,
		HumanReadableLoggingProvider: builder.HumanReadableLoggingProvider,
		ConfigurationProvider:        builder.ConfigurationProvider,
		Dependencies:                 builder.Dependencies,
	}
}

func (builder *SyncCommandBuilder) run(command *cobra.Command, manifestFlag *flagutils.ManifestFlagValues, executionFlags *flagutils.ExecutionFlagValues) error {
	environment := builder.environment()
	configuration := environment.configuration()

	dryRun := configuration.DryRun
	if flagutils.FlagChanged(command, flagutils.DryRunFlagName) {
		dryRun = executionFlags.DryRun
	}
	parallelism := configuration.Parallelism
	if flagutils.FlagChanged(command, flagutils.ParallelismFlagName) {
		parallelism = executionFlags.Parallelism
	}

	manifestFilePath, manifestError := manifestPath(command, manifestFlag, configuration)
	if manifestError != nil {
		return manifestError
	}
	resolved, resolveError := environment.resolve()
	if resolveError != nil {
		return resolveError
	}

	executionContext := commandContext(command)
	loadedManifest, configs, manifestBuilder, loadError := loadRepositoryConfigs(executionContext, manifestFilePath, resolved)
	if loadError != nil {
		return loadError
	}

	engine, engineError := reconcile.NewEngine(
		reconcile.EngineDependencies{StateReader: resolved.stateReader, Backend: resolved.backend, Logger: resolved.logger},
		reconcile.EngineOptions{Parallelism: parallelism, Mode: shared.ExecutionModeFromBool(dryRun)},
	)
	if engineError != nil {
		return engineError
	}
	report := engine.Reconcile(executionContext, configs)

	output := utils.NewFlushingWriter(command.OutOrStdout())
	if renderError := renderReport(output, ui.SyncTableHeaders, ui.SyncReportRows(report), report); renderError != nil {
		return renderError
	}

	if configuration.WarnUnmanaged {
		warnUnmanagedRepositories(command.ErrOrStderr(), resolved, manifestBuilder, loadedManifest, configs)
	}

	if !report.Succeeded() {
		return ErrReconciliationFailed
	}
	return nil
}

func renderReport(output io.Writer, headers []string, rows [][]string, report reconcile.Report) error {
	if renderError := ui.RenderTable(output, headers, rows); renderError != nil {
		return renderError
	}
	shared.NewWriterReporter(output).Line(summaryLineTemplateConstant, ui.SummaryLine(report))
	return nil
}

// warnUnmanagedRepositories reports repositories under any tree root that the manifest does not
// describe. They are never modified.
func warnUnmanagedRepositories(output io.Writer, resolved collaborators, manifestBuilder manifest.Builder, loadedManifest manifest.Manifest, configs []reconcile.RepositoryConfig) {
	roots, rootsError := manifestBuilder.Roots(loadedManifest)
	if rootsError != nil {
		resolved.logger.Warn(unmanagedCheckFailedMessageConstant, zap.Error(rootsError))
		return
	}
	sanitizer := pathutils.NewRepositoryPathSanitizerWithConfiguration(repositoryHomeDirectoryExpander, pathutils.RepositoryPathSanitizerConfiguration{PruneNestedPaths: true})
	discovered, discoveryError := resolved.discoverer.DiscoverRepositories(sanitizer.Sanitize(roots))
	if discoveryError != nil {
		resolved.logger.Warn(unmanagedCheckFailedMessageConstant, zap.Error(discoveryError))
		return
	}

	managedPaths := make([]string, 0, len(configs))
	for _, config := range configs {
		managedPaths = append(managedPaths, config.Path)
	}
	reporter := shared.NewWriterReporter(output)
	for _, unmanagedPath := range discovery.UnmanagedRepositories(discovered, managedPaths) {
		resolved.logger.Warn(unmanagedRepositoryMessageConstant, zap.String(logFieldPathConstant, unmanagedPath))
		reporter.Warning(unmanagedWarningTemplateConstant, unmanagedPath)
	}
}

