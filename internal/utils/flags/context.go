package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// ManifestFlagName exposes the shared manifest flag name.
	ManifestFlagName = "manifest"
	// ManifestFlagShorthand provides the shorthand for the manifest flag.
	ManifestFlagShorthand = "m"
	// ManifestFlagUsage describes the shared manifest flag purpose.
	ManifestFlagUsage = "Path to the repository manifest (YAML or TOML)"
	// FormatFlagName exposes the shared manifest output format flag name.
	FormatFlagName = "format"
	// FormatFlagUsage describes the shared manifest output format flag purpose.
	FormatFlagUsage = "Manifest output format"
)

// ManifestFormats lists the supported manifest encodings with the default first.
var ManifestFormats = []string{"yaml", "toml"}

// ManifestFlagValues stores manifest selection flag values.
type ManifestFlagValues struct {
	Path string
}

// BindManifestFlag attaches the manifest path flag to the command using persistent scope so every
// subcommand of a group shares it.
func BindManifestFlag(command *cobra.Command, defaults ManifestFlagValues) *ManifestFlagValues {
	values := defaults
	if command == nil {
		return &values
	}
	if command.PersistentFlags().Lookup(ManifestFlagName) == nil {
		command.PersistentFlags().StringVarP(&values.Path, ManifestFlagName, ManifestFlagShorthand, defaults.Path, ManifestFlagUsage)
	}
	return &values
}

// BindFormatFlag attaches a manifest output format flag accepting yaml or toml.
func BindFormatFlag(command *cobra.Command, target *string, defaultFormat string) {
	if command == nil {
		return
	}
	AddChoiceFlag(command.Flags(), target, FormatFlagName, defaultFormat, ManifestFormats, FormatFlagUsage)
}

// FlagChanged reports whether flagName was set on the command line, searching the command's own,
// inherited and root persistent flags.
func FlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSets := []*pflag.FlagSet{command.Flags(), command.PersistentFlags(), command.InheritedFlags()}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSets = append(flagSets, rootCommand.PersistentFlags())
	}
	for _, flagSet := range flagSets {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}

// StringOverride returns flagValue when flagName was set on the command line and configuredValue otherwise.
func StringOverride(command *cobra.Command, flagName string, flagValue string, configuredValue string) string {
	if FlagChanged(command, flagName) {
		return flagValue
	}
	return configuredValue
}
