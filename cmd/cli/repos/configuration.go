package repos

import (
	"strings"

	"github.com/temirov/reposync/internal/manifest"
)

const (
	configurationManifestKeyConstant      = "manifest"
	configurationParallelismKeyConstant   = "parallelism"
	configurationDryRunKeyConstant        = "dry_run"
	configurationFormatKeyConstant        = "format"
	configurationWarnUnmanagedKeyConstant = "warn_unmanaged"
	configurationKeySeparatorConstant     = "."
	defaultManifestPathConstant           = "repos.yaml"
	defaultParallelismConstant            = 4
)

// ToolsConfiguration captures the repository command configuration section.
type ToolsConfiguration struct {
	Manifest      string `mapstructure:"manifest"`
	Parallelism   int    `mapstructure:"parallelism"`
	DryRun        bool   `mapstructure:"dry_run"`
	Format        string `mapstructure:"format"`
	WarnUnmanaged bool   `mapstructure:"warn_unmanaged"`
}

// DefaultToolsConfiguration returns baseline configuration values for repository commands.
func DefaultToolsConfiguration() ToolsConfiguration {
	return ToolsConfiguration{
		Manifest:      defaultManifestPathConstant,
		Parallelism:   defaultParallelismConstant,
		DryRun:        false,
		Format:        string(manifest.FormatYAML),
		WarnUnmanaged: true,
	}
}

// DefaultConfigurationValues produces Viper defaults for repository commands under rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultToolsConfiguration()
	prefix := rootKey + configurationKeySeparatorConstant
	return map[string]any{
		prefix + configurationManifestKeyConstant:      defaults.Manifest,
		prefix + configurationParallelismKeyConstant:   defaults.Parallelism,
		prefix + configurationDryRunKeyConstant:        defaults.DryRun,
		prefix + configurationFormatKeyConstant:        defaults.Format,
		prefix + configurationWarnUnmanagedKeyConstant: defaults.WarnUnmanaged,
	}
}

// sanitize trims values and restores defaults for blank or out-of-range entries.
func (configuration ToolsConfiguration) sanitize() ToolsConfiguration {
	defaults := DefaultToolsConfiguration()
	sanitized := configuration
	sanitized.Manifest = strings.TrimSpace(configuration.Manifest)
	if len(sanitized.Manifest) == 0 {
		sanitized.Manifest = defaults.Manifest
	}
	if sanitized.Parallelism < 1 {
		sanitized.Parallelism = defaults.Parallelism
	}
	sanitized.Format = strings.ToLower(strings.TrimSpace(configuration.Format))
	if len(sanitized.Format) == 0 {
		sanitized.Format = defaults.Format
	}
	return sanitized
}
