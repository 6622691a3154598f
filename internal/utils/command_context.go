package utils

import (
	"context"
	"path/filepath"
	"strings"
)

type commandContextKey struct{ name string }

var configurationFilePathKey = commandContextKey{name: "configuration_file_path"}

// CommandContextAccessor stores values resolved by the root command in the context passed to subcommands.
type CommandContextAccessor struct{}

// NewCommandContextAccessor returns a CommandContextAccessor.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath records the configuration file that was loaded. An empty path records
// that no file was found.
func (CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathKey, configurationFilePath)
}

// ConfigurationFilePath reports the configuration file recorded in executionContext, if any.
func (CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, _ := executionContext.Value(configurationFilePathKey).(string)
	return configurationFilePath, len(configurationFilePath) > 0
}

// ResolveRelativeToConfiguration anchors a relative path configured in the configuration file at
// that file's directory. Absolute paths, home-relative paths and contexts without a configuration
// file leave the path unchanged.
func (accessor CommandContextAccessor) ResolveRelativeToConfiguration(executionContext context.Context, configuredPath string) string {
	trimmedPath := strings.TrimSpace(configuredPath)
	if len(trimmedPath) == 0 || filepath.IsAbs(trimmedPath) || strings.HasPrefix(trimmedPath, "~") || strings.HasPrefix(trimmedPath, "$") {
		return trimmedPath
	}
	configurationFilePath, available := accessor.ConfigurationFilePath(executionContext)
	if !available {
		return trimmedPath
	}
	return filepath.Join(filepath.Dir(configurationFilePath), trimmedPath)
}
