package repos

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/repos/shared"
	"github.com/temirov/reposync/internal/ui"
	"github.com/temirov/reposync/internal/utils"
	flagutils "github.com/temirov/reposync/internal/utils/flags"
)

const (
	worktreeUseConstant                 = "worktree"
	worktreeShortDescription            = "Inspect and refresh the worktrees of manifest repositories"
	worktreeLongDescription             = "worktree groups subcommands that act on the linked worktrees and remotes of repositories already described by the manifest."
	worktreeStatusUseConstant           = "status [repository...]"
	worktreeStatusShortDescription      = "Show every worktree with its branch, upstream and pending changes"
	worktreeStatusLongDescription       = "status lists the linked worktrees of each manifest repository, including worktrees sync would create or remove. Naming repositories narrows the listing. It never changes a repository."
	worktreeFetchUseConstant            = "fetch [repository...]"
	worktreeFetchShortDescription       = "Fetch all remotes of manifest repositories"
	worktreeFetchLongDescription        = "fetch refreshes the remote-tracking branches of every existing manifest repository from all of its remotes. Local branches and worktree contents are left alone. Naming repositories narrows the fetch."
	worktreeAliasConstant               = "wt"
	fetchFailedMessageConstant          = "fetch finished with failures"
	unknownRepositoriesTemplateConstant = "%w: %s"
	unknownRepositoryMessageConstant    = "repository not described by the manifest"
	repositoryNameSeparatorConstant     = ", "
)

var (
	// ErrFetchFailed indicates at least one repository could not be fetched.
	ErrFetchFailed = errors.New(fetchFailedMessageConstant)
	// ErrUnknownRepository indicates a named repository is not in the manifest.
	ErrUnknownRepository = errors.New(unknownRepositoryMessageConstant)
)

// WorktreeCommandBuilder assembles the worktree command group.
type WorktreeCommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        ConfigurationProvider
	Dependencies                 CommandDependencies
}

// Build constructs the worktree command hierarchy.
func (builder *WorktreeCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     worktreeUseConstant,
		Aliases: []string{worktreeAliasConstant},
		Short:   worktreeShortDescription,
		Long:    worktreeLongDescription,
	}
	command.AddCommand(builder.statusCommand(), builder.fetchCommand())
	return command, nil
}

func (builder *WorktreeCommandBuilder) environment() commandEnvironment {
	return commandEnvironment{
		LoggerProvider:               builder.LoggerProvider,
		HumanReadableLoggingProvider: builder.HumanReadableLoggingProvider,
		ConfigurationProvider:        builder.ConfigurationProvider,
		Dependencies:                 builder.Dependencies,
	}
}

func (builder *WorktreeCommandBuilder) statusCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   worktreeStatusUseConstant,
		Short: worktreeStatusShortDescription,
		Long:  worktreeStatusLongDescription,
	}
	manifestFlag := flagutils.BindManifestFlag(command, flagutils.ManifestFlagValues{Path: DefaultToolsConfiguration().Manifest})
	command.RunE = func(command *cobra.Command, arguments []string) error {
		environment := builder.environment()
		configuration := environment.configuration()
		resolved, configs, loadError := builder.selectRepositories(command, manifestFlag, configuration, arguments)
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
		report := engine.Reconcile(commandContext(command), configs)

		output := utils.NewFlushingWriter(command.OutOrStdout())
		return ui.RenderTable(output, ui.WorktreeStatusTableHeaders, ui.WorktreeStatusRows(report))
	}
	return command
}

func (builder *WorktreeCommandBuilder) fetchCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   worktreeFetchUseConstant,
		Short: worktreeFetchShortDescription,
		Long:  worktreeFetchLongDescription,
	}
	defaults := DefaultToolsConfiguration()
	manifestFlag := flagutils.BindManifestFlag(command, flagutils.ManifestFlagValues{Path: defaults.Manifest})
	flagDefinitions := flagutils.DefaultExecutionFlagDefinitions()
	flagDefinitions.DryRun.Enabled = false
	executionFlags := flagutils.BindExecutionFlags(command, flagutils.ExecutionDefaults{Parallelism: defaults.Parallelism}, flagDefinitions)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		environment := builder.environment()
		configuration := environment.configuration()
		parallelism := configuration.Parallelism
		if flagutils.FlagChanged(command, flagutils.ParallelismFlagName) {
			parallelism = executionFlags.Parallelism
		}
		resolved, configs, loadError := builder.selectRepositories(command, manifestFlag, configuration, arguments)
		if loadError != nil {
			return loadError
		}

		engine, engineError := reconcile.NewEngine(
			reconcile.EngineDependencies{StateReader: resolved.stateReader, Backend: resolved.backend, Fetcher: resolved.fetcher, Logger: resolved.logger},
			reconcile.EngineOptions{Parallelism: parallelism},
		)
		if engineError != nil {
			return engineError
		}
		report, fetchError := engine.Fetch(commandContext(command), configs)
		if fetchError != nil {
			return fetchError
		}

		output := utils.NewFlushingWriter(command.OutOrStdout())
		if renderError := ui.RenderTable(output, ui.FetchTableHeaders, ui.FetchReportRows(report)); renderError != nil {
			return renderError
		}
		shared.NewWriterReporter(output).Line(summaryLineTemplateConstant, ui.FetchSummaryLine(report))
		if !report.Succeeded() {
			return ErrFetchFailed
		}
		return nil
	}
	return command
}

// selectRepositories loads the manifest and keeps the configurations named in arguments, or all of
// them when none are named.
func (builder *WorktreeCommandBuilder) selectRepositories(command *cobra.Command, manifestFlag *flagutils.ManifestFlagValues, configuration ToolsConfiguration, arguments []string) (collaborators, []reconcile.RepositoryConfig, error) {
	manifestFilePath, manifestError := manifestPath(command, manifestFlag, configuration)
	if manifestError != nil {
		return collaborators{}, nil, manifestError
	}
	resolved, resolveError := builder.environment().resolve()
	if resolveError != nil {
		return collaborators{}, nil, resolveError
	}
	_, configs, _, loadError := loadRepositoryConfigs(commandContext(command), manifestFilePath, resolved)
	if loadError != nil {
		return collaborators{}, nil, loadError
	}
	selected, selectionError := selectNamedRepositories(configs, arguments)
	if selectionError != nil {
		return collaborators{}, nil, selectionError
	}
	return resolved, selected, nil
}

func selectNamedRepositories(configs []reconcile.RepositoryConfig, names []string) ([]reconcile.RepositoryConfig, error) {
	if len(names) == 0 {
		return configs, nil
	}
	requested := make(map[string]bool, len(names))
	for _, name := range names {
		requested[strings.TrimSpace(name)] = false
	}

	selected := make([]reconcile.RepositoryConfig, 0, len(names))
	for _, config := range configs {
		if _, wanted := requested[config.Identity()]; wanted {
			requested[config.Identity()] = true
			selected = append(selected, config)
		}
	}

	var unknown []string
	for _, name := range names {
		trimmedName := strings.TrimSpace(name)
		if !requested[trimmedName] {
			unknown = append(unknown, trimmedName)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf(unknownRepositoriesTemplateConstant, ErrUnknownRepository, strings.Join(unknown, repositoryNameSeparatorConstant))
	}
	return selected, nil
}
