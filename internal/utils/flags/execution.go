// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Plan and report without changing any repository"
	// ParallelismFlagName exposes the shared parallelism flag name.
	ParallelismFlagName = "parallel"
	// ParallelismFlagShorthand provides the shorthand for the parallelism flag.
	ParallelismFlagShorthand = "p"
	// ParallelismFlagUsage describes the shared parallelism flag purpose.
	ParallelismFlagUsage = "Number of repositories reconciled concurrently"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	DryRun      bool
	Parallelism int
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	DryRun      ExecutionFlagDefinition
	Parallelism ExecutionFlagDefinition
}

// DefaultExecutionFlagDefinitions enables the dry-run and parallelism flags with their shared names.
func DefaultExecutionFlagDefinitions() ExecutionFlagDefinitions {
	return ExecutionFlagDefinitions{
		DryRun:      ExecutionFlagDefinition{Name: DryRunFlagName, Usage: DryRunFlagUsage, Enabled: true},
		Parallelism: ExecutionFlagDefinition{Name: ParallelismFlagName, Usage: ParallelismFlagUsage, Shorthand: ParallelismFlagShorthand, Enabled: true},
	}
}

// ExecutionFlagValues stores parsed execution flag values.
type ExecutionFlagValues struct {
	DryRun      bool
	Parallelism int
}

// BindExecutionFlags attaches the enabled execution flags to the command's local flag set.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) *ExecutionFlagValues {
	values := ExecutionFlagValues{DryRun: defaults.DryRun, Parallelism: defaults.Parallelism}
	if command == nil {
		return &values
	}

	flagSet := command.Flags()
	if usable(flagSet, definitions.DryRun) {
		flagSet.BoolVarP(&values.DryRun, definitions.DryRun.Name, definitions.DryRun.Shorthand, defaults.DryRun, definitions.DryRun.Usage)
	}
	if usable(flagSet, definitions.Parallelism) {
		flagSet.IntVarP(&values.Parallelism, definitions.Parallelism.Name, definitions.Parallelism.Shorthand, defaults.Parallelism, definitions.Parallelism.Usage)
	}
	return &values
}

func usable(flagSet *pflag.FlagSet, definition ExecutionFlagDefinition) bool {
	return flagSet != nil && definition.Enabled && len(definition.Name) > 0 && flagSet.Lookup(definition.Name) == nil
}
