package repos

import "github.com/spf13/cobra"

const (
	groupUseConstant      = "repos"
	groupShortDescription = "Reconcile local repositories with a manifest"
	groupLongDescription  = "repos groups subcommands that compare the repositories described by a manifest with the repositories on disk."
)

// CommandGroupBuilder assembles the repos command group.
type CommandGroupBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        ConfigurationProvider
	Dependencies                 CommandDependencies
}

// Build constructs the repos command hierarchy.
func (builder *CommandGroupBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   groupUseConstant,
		Short: groupShortDescription,
		Long:  groupLongDescription,
	}

	subcommandBuilders := []interface{ Build() (*cobra.Command, error) }{
		&SyncCommandBuilder{LoggerProvider: builder.LoggerProvider, HumanReadableLoggingProvider: builder.HumanReadableLoggingProvider, ConfigurationProvider: builder.ConfigurationProvider, Dependencies: builder.Dependencies},
		&StatusCommandBuilder{LoggerProvider: builder.LoggerProvider, HumanReadableLoggingProvider: builder.HumanReadableLoggingProvider, ConfigurationProvider: builder.ConfigurationProvider, Dependencies: builder.Dependencies},
		&FindCommandBuilder{LoggerProvider: builder.LoggerProvider, HumanReadableLoggingProvider: builder.HumanReadableLoggingProvider, ConfigurationProvider: builder.ConfigurationProvider, Dependencies: builder.Dependencies},
		&DiscoverCommandBuilder{LoggerProvider: builder.LoggerProvider, HumanReadableLoggingProvider: builder.HumanReadableLoggingProvider, ConfigurationProvider: builder.ConfigurationProvider, Dependencies: builder.Dependencies},
		&WorktreeCommandBuilder{LoggerProvider: builder.LoggerProvider, HumanReadableLoggingProvider: builder.HumanReadableLoggingProvider, ConfigurationProvider: builder.ConfigurationProvider, Dependencies: builder.Dependencies},
	}
	for _, subcommandBuilder := range subcommandBuilders {
		subcommand, buildError := subcommandBuilder.Build()
		if buildError != nil {
			return nil, buildError
		}
		command.AddCommand(subcommand)
	}

	return command, nil
}
