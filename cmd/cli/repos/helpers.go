package repos

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/manifest"
	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/repos/dependencies"
	"github.com/temirov/reposync/internal/repos/shared"
	"github.com/temirov/reposync/internal/ui"
	"github.com/temirov/reposync/internal/utils"
	flagutils "github.com/temirov/reposync/internal/utils/flags"
	pathutils "github.com/temirov/reposync/internal/utils/path"
)

const (
	missingManifestErrorMessageConstant = "no manifest provided; specify --manifest or configure tools.repos.manifest"
	manifestLoadedMessageConstant       = "Manifest loaded"
	logFieldManifestConstant            = "manifest"
	logFieldRepositoryCountConstant     = "repositories"
)

// ErrManifestNotProvided indicates neither a flag nor configuration named a manifest.
var ErrManifestNotProvided = errors.New(missingManifestErrorMessageConstant)

var repositoryHomeDirectoryExpander = pathutils.NewHomeExpander()

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider yields the repository command configuration.
type ConfigurationProvider func() ToolsConfiguration

// CommandDependencies carries optional collaborators. Nil fields resolve to git- and gh-backed defaults.
type CommandDependencies struct {
	GitExecutor      shared.GitExecutor
	FileSystem       shared.FileSystem
	Discoverer       shared.RepositoryDiscoverer
	RepositoryLister shared.RemoteRepositoryLister
	StateReader      reconcile.StateReader
	Backend          reconcile.Backend
	Fetcher          reconcile.RemoteFetcher
}

// commandEnvironment is the shared wiring of every repos subcommand.
type commandEnvironment struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        ConfigurationProvider
	Dependencies                 CommandDependencies
}

type collaborators struct {
	logger      *zap.Logger
	fileSystem  shared.FileSystem
	discoverer  shared.RepositoryDiscoverer
	stateReader reconcile.StateReader
	backend     reconcile.Backend
	fetcher     reconcile.RemoteFetcher
	lister      shared.RemoteRepositoryLister
}

func (environment commandEnvironment) configuration() ToolsConfiguration {
	if environment.ConfigurationProvider == nil {
		return DefaultToolsConfiguration()
	}
	return environment.ConfigurationProvider().sanitize()
}

func (environment commandEnvironment) logger() *zap.Logger {
	if environment.LoggerProvider == nil {
		return zap.NewNop()
	}
	if logger := environment.LoggerProvider(); logger != nil {
		return logger
	}
	return zap.NewNop()
}

func (environment commandEnvironment) humanReadableLogging() bool {
	return environment.HumanReadableLoggingProvider != nil && environment.HumanReadableLoggingProvider()
}

// resolve fills every missing collaborator. The git executor is only constructed when a git-backed
// default is needed.
func (environment commandEnvironment) resolve() (collaborators, error) {
	provided := environment.Dependencies
	resolved := collaborators{
		logger:      environment.logger(),
		fileSystem:  dependencies.ResolveFileSystem(provided.FileSystem),
		discoverer:  dependencies.ResolveRepositoryDiscoverer(provided.Discoverer),
		stateReader: provided.StateReader,
		backend:     provided.Backend,
		fetcher:     provided.Fetcher,
		lister:      provided.RepositoryLister,
	}
	if resolved.stateReader != nil && resolved.backend != nil && resolved.fetcher != nil && resolved.lister != nil {
		return resolved, nil
	}

	var observer execshell.CommandEventObserver
	if environment.humanReadableLogging() {
		observer = ui.NewConsoleCommandEventLogger(resolved.logger)
	}
	gitExecutor, executorError := dependencies.ResolveGitExecutor(provided.GitExecutor, resolved.logger, observer)
	if executorError != nil {
		return collaborators{}, executorError
	}

	if resolved.stateReader == nil || resolved.backend == nil || resolved.fetcher == nil {
		repositoryManager, managerError := dependencies.ResolveRepositoryManager(gitExecutor, resolved.fileSystem)
		if managerError != nil {
			return collaborators{}, managerError
		}
		if resolved.stateReader == nil {
			resolved.stateReader = repositoryManager
		}
		if resolved.backend == nil {
			resolved.backend = repositoryManager
		}
		if resolved.fetcher == nil {
			resolved.fetcher = repositoryManager
		}
	}

	lister, listerError := dependencies.ResolveRepositoryLister(resolved.lister, gitExecutor)
	if listerError != nil {
		return collaborators{}, listerError
	}
	resolved.lister = lister
	return resolved, nil
}

// manifestPath picks the --manifest flag over configuration, anchoring configured relative paths at
// the configuration file.
func manifestPath(command *cobra.Command, flagValues *flagutils.ManifestFlagValues, configuration ToolsConfiguration) (string, error) {
	selected := utils.NewCommandContextAccessor().ResolveRelativeToConfiguration(commandContext(command), configuration.Manifest)
	if flagValues != nil && flagutils.FlagChanged(command, flagutils.ManifestFlagName) {
		selected = flagValues.Path
	}
	selected = repositoryHomeDirectoryExpander.Expand(selected)
	if len(selected) == 0 {
		return "", ErrManifestNotProvided
	}
	return selected, nil
}

// loadRepositoryConfigs loads the manifest and expands it into repository configurations.
func loadRepositoryConfigs(executionContext context.Context, manifestFilePath string, resolved collaborators) (manifest.Manifest, []reconcile.RepositoryConfig, manifest.Builder, error) {
	loader, loaderError := manifest.NewLoader(resolved.fileSystem)
	if loaderError != nil {
		return manifest.Manifest{}, nil, manifest.Builder{}, loaderError
	}
	loadedManifest, loadError := loader.Load(manifestFilePath)
	if loadError != nil {
		return manifest.Manifest{}, nil, manifest.Builder{}, loadError
	}

	builder := manifest.Builder{Lister: resolved.lister, HomeExpander: repositoryHomeDirectoryExpander}
	configs, buildError := builder.Build(executionContext, loadedManifest)
	if buildError != nil {
		return manifest.Manifest{}, nil, manifest.Builder{}, buildError
	}

	resolved.logger.Info(
		manifestLoadedMessageConstant,
		zap.String(logFieldManifestConstant, manifestFilePath),
		zap.Int(logFieldRepositoryCountConstant, len(configs)),
	)
	return loadedManifest, configs, builder, nil
}

func commandContext(command *cobra.Command) context.Context {
	if command == nil || command.Context() == nil {
		return context.Background()
	}
	return command.Context()
}
