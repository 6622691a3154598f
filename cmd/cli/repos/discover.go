package repos

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/reposync/internal/manifest"
	"github.com/temirov/reposync/internal/repos/shared"
	"github.com/temirov/reposync/internal/utils"
	flagutils "github.com/temirov/reposync/internal/utils/flags"
)

const (
	discoverUseConstant                 = "discover"
	discoverShortDescription            = "Print manifest entries for a GitHub owner's repositories"
	discoverLongDescription             = "discover lists the repositories of a GitHub user or organization through the gh CLI and prints them as a manifest tree rooted at --root. Archived repositories and forks are left out unless requested."
	ownerFlagNameConstant               = "owner"
	ownerFlagUsageConstant              = "GitHub user or organization whose repositories are listed"
	ownerTypeFlagNameConstant           = "owner-type"
	ownerTypeFlagUsageConstant          = "Whether the owner is a user or an organization"
	rootFlagNameConstant                = "root"
	rootFlagUsageConstant               = "Tree root recorded in the printed manifest"
	protocolFlagNameConstant            = "protocol"
	protocolFlagUsageConstant           = "Clone URL protocol"
	remoteNameFlagNameConstant          = "remote-name"
	remoteNameFlagUsageConstant         = "Remote name given to the clone URL"
	includeArchivedFlagNameConstant     = "include-archived"
	includeArchivedFlagUsageConstant    = "Include archived repositories"
	includeForksFlagNameConstant        = "include-forks"
	includeForksFlagUsageConstant       = "Include forked repositories"
	missingOwnerErrorMessageConstant    = "no owner provided; specify --owner"
	missingRootErrorMessageConstant     = "no tree root provided; specify --root"
	providerOptionOwnerKeyConstant      = "owner"
	providerOptionOwnerTypeKeyConstant  = "owner_type"
	providerOptionProtocolKeyConstant   = "protocol"
	providerOptionRemoteNameKeyConstant = "remote_name"
	providerOptionArchivedKeyConstant   = "include_archived"
	providerOptionForksKeyConstant      = "include_forks"
)

var (
	ownerTypeChoices = []string{shared.OwnerTypeUser.String(), shared.OwnerTypeOrganization.String()}
	protocolChoices  = []string{string(shared.RemoteProtocolHTTPS), string(shared.RemoteProtocolSSH)}
)

// discoverOptions stores the parsed discover flags.
type discoverOptions struct {
	owner           string
	ownerType       string
	root            string
	protocol        string
	remoteName      string
	includeArchived bool
	includeForks    bool
	format          string
}

// DiscoverCommandBuilder assembles the discover command.
type DiscoverCommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        ConfigurationProvider
	Dependencies                 CommandDependencies
}

// Build constructs the discover command.
func (builder *DiscoverCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   discoverUseConstant,
		Short: discoverShortDescription,
		Long:  discoverLongDescription,
		Args:  cobra.NoArgs,
	}

	options := &discoverOptions{}
	flagSet := command.Flags()
	flagSet.StringVar(&options.owner, ownerFlagNameConstant, "", ownerFlagUsageConstant)
	flagSet.StringVar(&options.root, rootFlagNameConstant, "", rootFlagUsageConstant)
	flagSet.StringVar(&options.remoteName, remoteNameFlagNameConstant, shared.OriginRemoteNameConstant, remoteNameFlagUsageConstant)
	flagSet.BoolVar(&options.includeArchived, includeArchivedFlagNameConstant, false, includeArchivedFlagUsageConstant)
	flagSet.BoolVar(&options.includeForks, includeForksFlagNameConstant, false, includeForksFlagUsageConstant)
	flagutils.AddChoiceFlag(flagSet, &options.ownerType, ownerTypeFlagNameConstant, shared.OwnerTypeUser.String(), ownerTypeChoices, ownerTypeFlagUsageConstant)
	flagutils.AddChoiceFlag(flagSet, &options.protocol, protocolFlagNameConstant, string(shared.RemoteProtocolHTTPS), protocolChoices, protocolFlagUsageConstant)
	flagutils.BindFormatFlag(command, &options.format, DefaultToolsConfiguration().Format)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, *options)
	}
	return command, nil
}

func (builder *DiscoverCommandBuilder) run(command *cobra.Command, options discoverOptions) error {
	environment := commandEnvironment{
		LoggerProvider:               builder.LoggerProvider,
		HumanReadableLoggingProvider: builder.HumanReadableLoggingProvider,
		ConfigurationProvider:        builder.ConfigurationProvider,
		Dependencies:                 builder.Dependencies,
	}
	configuration := environment.configuration()

	if len(strings.TrimSpace(options.owner)) == 0 {
		_ = command.Help()
		return errors.New(missingOwnerErrorMessageConstant)
	}
	if len(strings.TrimSpace(options.root)) == 0 {
		_ = command.Help()
		return errors.New(missingRootErrorMessageConstant)
	}
	format, formatError := manifest.ParseFormat(flagutils.StringOverride(command, flagutils.FormatFlagName, options.format, configuration.Format))
	if formatError != nil {
		return formatError
	}

	resolved, resolveError := environment.resolve()
	if resolveError != nil {
		return resolveError
	}

	provider := manifest.Provider{
		Name: shared.GitHubProviderNameConstant,
		With: map[string]any{
			providerOptionOwnerKeyConstant:      strings.TrimSpace(options.owner),
			providerOptionOwnerTypeKeyConstant:  options.ownerType,
			providerOptionProtocolKeyConstant:   options.protocol,
			providerOptionRemoteNameKeyConstant: options.remoteName,
			providerOptionArchivedKeyConstant:   options.includeArchived,
			providerOptionForksKeyConstant:      options.includeForks,
		},
	}
	manifestBuilder := manifest.Builder{Lister: resolved.lister, HomeExpander: repositoryHomeDirectoryExpander}
	repositories, importError := manifestBuilder.ImportProvider(commandContext(command), provider)
	if importError != nil {
		return importError
	}

	discovered := manifest.Manifest{Trees: []manifest.Tree{{Root: strings.TrimSpace(options.root), Repositories: repositories}}}
	return manifest.Encode(utils.NewFlushingWriter(command.OutOrStdout()), discovered, format)
}
