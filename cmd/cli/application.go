package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reposync/cmd/cli/repos"
	"github.com/temirov/reposync/internal/utils"
	flagutils "github.com/temirov/reposync/internal/utils/flags"
)

const (
	applicationNameConstant             = "reposync"
	applicationShortDescriptionConstant = "Converge local git repositories with a declarative manifest"
	applicationLongDescriptionConstant  = "reposync compares the repositories, remotes and worktrees described by a manifest with what exists on disk and applies the git operations that close the gap."
	environmentPrefixConstant           = "REPOSYNC"
	configurationNameConstant           = "config"
	configurationTypeConstant           = "yaml"
	configFileFlagNameConstant          = "config"
	configFileFlagUsageConstant         = "Configuration file to use instead of searching ./config.yaml and the user configuration directory."
	logLevelFlagNameConstant            = "log-level"
	logLevelFlagUsageConstant           = "Log level for this run (debug, info, warn or error)."
	logFormatFlagNameConstant           = "log-format"
	logFormatFlagUsageConstant          = "Log encoding for this run"
	logLevelSettingKeyConstant          = "common.log_level"
	logFormatSettingKeyConstant         = "common.log_format"
	reposSettingPrefixConstant          = "tools.repos"
	reposCommandNameConstant            = "repos"
	configurationReadyMessageConstant   = "configuration initialized"
	helpRequestedMessageConstant        = "no subcommand given; printing help"
	logLevelLogFieldConstant            = "log_level"
	logFormatLogFieldConstant           = "log_format"
	configFileLogFieldConstant          = "config_file"
	argumentsLogFieldConstant           = "arguments"
	loadFailureTemplateConstant         = "unable to load configuration: %w"
	loggerFailureTemplateConstant       = "unable to create logger: %w"
	flushFailureTemplateConstant        = "unable to flush logger: %w"
	buildFailureTemplateConstant        = "unable to build %s command: %w"
)

// ApplicationConfiguration mirrors config.yaml: shared logging settings under common and
// per-command settings under tools.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Tools  ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration selects the logger.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationToolsConfiguration groups command settings.
type ApplicationToolsConfiguration struct {
	Repos repos.ToolsConfiguration `mapstructure:"repos"`
}

// Application owns the root command and the state resolved before any subcommand runs.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	commandContextAccessor utils.CommandContextAccessor
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configFileUsed         string
	flagValues             rootFlagValues
	buildError             error
}

type rootFlagValues struct {
	configurationFilePath string
	logLevel              string
	logFormat             string
}

// ApplicationOptions customizes collaborators, mainly for tests.
type ApplicationOptions struct {
	LoggerFactory    *utils.LoggerFactory
	SearchPaths      []string
	RepoDependencies repos.CommandDependencies
}

// NewApplication wires the application against the real environment.
func NewApplication() *Application {
	return NewApplicationWithOptions(ApplicationOptions{})
}

// NewApplicationWithOptions wires the application with the given collaborators. A nil SearchPaths
// searches the working directory and the user configuration directory; an empty one searches nowhere.
func NewApplicationWithOptions(options ApplicationOptions) *Application {
	searchPaths := options.SearchPaths
	if searchPaths == nil {
		searchPaths = utils.ConfigurationSearchPaths(applicationNameConstant)
	}
	loggerFactory := options.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = utils.NewLoggerFactory()
	}

	application := &Application{
		configurationLoader:    utils.NewConfigurationLoader(configurationNameConstant, configurationTypeConstant, environmentPrefixConstant, searchPaths),
		loggerFactory:          loggerFactory,
		commandContextAccessor: utils.NewCommandContextAccessor(),
		logger:                 zap.NewNop(),
	}
	application.configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())
	application.rootCommand = application.newRootCommand()

	reposBuilder := repos.CommandGroupBuilder{
		LoggerProvider:               func() *zap.Logger { return application.logger },
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider:        func() repos.ToolsConfiguration { return application.configuration.Tools.Repos },
		Dependencies:                 options.RepoDependencies,
	}
	reposCommand, buildError := reposBuilder.Build()
	if buildError != nil {
		application.buildError = fmt.Errorf(buildFailureTemplateConstant, reposCommandNameConstant, buildError)
		return application
	}
	application.rootCommand.AddCommand(reposCommand)
	return application
}

func (application *Application) newRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, _ []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			application.logger.Debug(helpRequestedMessageConstant, zap.Strings(argumentsLogFieldConstant, arguments))
			return command.Help()
		},
	}
	rootCommand.SetContext(context.Background())

	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.StringVar(&application.flagValues.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.StringVar(&application.flagValues.logLevel, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	persistentFlags.StringVar(
		&application.flagValues.logFormat,
		logFormatFlagNameConstant,
		"",
		flagutils.FormatChoiceUsage(string(utils.LogFormatStructured), utils.SupportedLogFormats, logFormatFlagUsageConstant),
	)
	return rootCommand
}

// SetArguments replaces the command-line arguments the root command parses.
func (application *Application) SetArguments(arguments []string) {
	application.rootCommand.SetArgs(arguments)
}

// SetOutput redirects command output and error streams.
func (application *Application) SetOutput(standardOutput io.Writer, standardError io.Writer) {
	application.rootCommand.SetOut(standardOutput)
	application.rootCommand.SetErr(standardError)
}

// Execute runs the command hierarchy until it finishes or the process receives an interrupt or
// termination signal, which cancels the command context.
func (application *Application) Execute() error {
	signalContext, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	return application.ExecuteContext(signalContext)
}

// ExecuteContext runs the command hierarchy under executionContext and flushes the logger.
func (application *Application) ExecuteContext(executionContext context.Context) error {
	if application.buildError != nil {
		return application.buildError
	}
	executionError := application.rootCommand.ExecuteContext(executionContext)
	if flushError := application.flushLogger(); flushError != nil {
		return errors.Join(executionError, fmt.Errorf(flushFailureTemplateConstant, flushError))
	}
	return executionError
}

// Execute runs a freshly wired application.
func Execute() error {
	return NewApplication().Execute()
}

// initializeConfiguration resolves settings from defaults, the embedded document, the configuration
// file, REPOSYNC_* variables and root flags, in increasing precedence, then builds the logger.
func (application *Application) initializeConfiguration(command *cobra.Command) error {
	if loadError := application.loadConfiguration(); loadError != nil {
		return loadError
	}
	application.applyFlagOverrides(command)
	if loggerError := application.configureLogger(); loggerError != nil {
		return loggerError
	}
	if command != nil {
		command.SetContext(application.commandContextAccessor.WithConfigurationFilePath(command.Context(), application.configFileUsed))
	}
	return nil
}

func (application *Application) loadConfiguration() error {
	defaultValues := map[string]any{
		logLevelSettingKeyConstant:  string(utils.LogLevelInfo),
		logFormatSettingKeyConstant: string(utils.LogFormatStructured),
	}
	maps.Copy(defaultValues, repos.DefaultConfigurationValues(reposSettingPrefixConstant))

	metadata, loadError := application.configurationLoader.LoadConfiguration(application.flagValues.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(loadFailureTemplateConstant, loadError)
	}
	application.configFileUsed = metadata.ConfigFileUsed
	return nil
}

func (application *Application) applyFlagOverrides(command *cobra.Command) {
	if flagutils.FlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.flagValues.logLevel
	}
	if flagutils.FlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.flagValues.logFormat
	}
}

func (application *Application) configureLogger() error {
	common := application.configuration.Common
	logger, creationError := application.loggerFactory.CreateLogger(utils.LogLevel(common.LogLevel), utils.LogFormat(common.LogFormat))
	if creationError != nil {
		return fmt.Errorf(loggerFailureTemplateConstant, creationError)
	}
	application.logger = logger
	application.logger.Info(
		configurationReadyMessageConstant,
		zap.String(logLevelLogFieldConstant, common.LogLevel),
		zap.String(logFormatLogFieldConstant, common.LogFormat),
		zap.String(configFileLogFieldConstant, application.configFileUsed),
	)
	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	return strings.EqualFold(strings.TrimSpace(application.configuration.Common.LogFormat), string(utils.LogFormatConsole))
}

// flushLogger syncs the logger, ignoring the errors terminals and pipes report for fsync.
func (application *Application) flushLogger() error {
	syncError := application.logger.Sync()
	if errors.Is(syncError, syscall.ENOTSUP) || errors.Is(syncError, syscall.EINVAL) {
		return nil
	}
	return syncError
}
