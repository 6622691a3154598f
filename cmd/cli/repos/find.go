package repos

import (
	"github.com/spf13/cobra"

	"github.com/temirov/reposync/internal/manifest"
	"github.com/temirov/reposync/internal/utils"
	flagutils "github.com/temirov/reposync/internal/utils/flags"
)

const (
	findUseConstant      = "find PATH"
	findShortDescription = "Print a manifest describing the repositories under a directory"
	findLongDescription  = "find walks PATH without following symbolic links or descending into repositories, reads the remotes and worktrees of every repository it finds and prints them as a manifest tree rooted at PATH."
)

// FindCommandBuilder assembles the find command.
type FindCommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        ConfigurationProvider
	Dependencies                 CommandDependencies
}

// Build constructs the find command.
func (builder *FindCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   findUseConstant,
		Short: findShortDescription,
		Long:  findLongDescription,
		Args:  cobra.ExactArgs(1),
	}

	var formatFlagValue string
	flagutils.BindFormatFlag(command, &formatFlagValue, DefaultToolsConfiguration().Format)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, arguments[0], formatFlagValue)
	}
	return command, nil
}

func (builder *FindCommandBuilder) run(command *cobra.Command, root string, formatFlagValue string) error {
	environment := commandEnvironment{
		LoggerProvider:               builder.LoggerProvider,
		HumanReadableLoggingProvider: builder.HumanReadableLoggingProvider,
		ConfigurationProvider:        builder.ConfigurationProvider,
		Dependencies:                 builder.Dependencies,
	}
	configuration := environment.configuration()

	format, formatError := manifest.ParseFormat(flagutils.StringOverride(command, flagutils.FormatFlagName, formatFlagValue, configuration.Format))
	if formatError != nil {
		return formatError
	}
	resolved, resolveError := environment.resolve()
	if resolveError != nil {
		return resolveError
	}

	finder := manifest.Finder{
		Discoverer:   resolved.discoverer,
		StateReader:  resolved.stateReader,
		FileSystem:   resolved.fileSystem,
		HomeExpander: repositoryHomeDirectoryExpander,
		Logger:       resolved.logger,
	}
	foundManifest, findError := finder.Find(commandContext(command), root)
	if findError != nil {
		return findError
	}
	return manifest.Encode(utils.NewFlushingWriter(command.OutOrStdout()), foundManifest, format)
}
