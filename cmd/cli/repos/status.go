package repos

import (
	"github.com/spf13/cobra"

	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/repos/shared"
	"github.com/temirov/reposync/internal/ui"
	"github.com/temirov/reposync/internal/utils"
	flagutils "github.com/temirov/reposync/internal/utils/flags"
)

const (
	statusUseConstant      = "status"
	statusShortDescription = "Show repository state and pending actions"
	statusLongDescription  = "status reads every repository in the manifest and lists the actions sync would apply. It never changes a repository."
)

// StatusCommandBuilder assembles the status command.
type StatusCommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        ConfigurationProvider
	Dependencies                 CommandDependencies
}

// Build constructs the status command.
func (builder *StatusCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   statusUseConstant,
		Short: statusShortDescription,
		Long:  statusLongDescription,
		Args:  cobra.NoArgs,
	}

	manifestFlag := flagutils.BindManifestFlag(command, flagutils.ManifestFlagValues{Path: DefaultToolsConfiguration().Manifest})
	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, manifestFlag)
	}
	return command, nil
}

func (builder *StatusCommandBuilder) run(command *cobra.Command, manifestFlag *flagutils.ManifestFlagValues) error {
	environment := commandEnvironment{
		LoggerProvider:               builder.LoggerProvider,
		HumanReadableLoggingProvider: builder.HumanReadableLoggingProvider,
		ConfigurationProvider:        builder.ConfigurationProvider,
		Dependencies:                 builder.Dependencies,
	}
	configuration := environment.configuration()

	manifestFilePath, manifestError := manifestPath(command, manifestFlag, configuration)
	if manifestError != nil {
		return manifestError
	}
	resolved, resolveError := environment.resolve()
	if resolveError != nil {
		return resolveError
	}

	executionContext := commandContext(command)
	_, configs, _, loadError := loadRepositoryConfigs(executionContext, manifestFilePath, resolved)
	if loadError != nil {
		return loadError
	}

	engine, engineError := reconcile.NewEngine(
		reconcile.EngineDependencies{StateReader: resolved.stateReader, Backend: resolved.backend, Logger: resolved.logger},
		reconcile.EngineOptions{Parallelism: configuration.Parallelism, Mode: shared.ExecutionModeDryRun},
	)
	if engineError != nil {
		return engineError
	}
	report := engine.Reconcile(executionContext, configs)

	return renderReport(utils.NewFlushingWriter(command.OutOrStdout()), ui.StatusTableHeaders, ui.StatusReportRows(report), report)
}
