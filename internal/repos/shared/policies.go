package shared

import (
	"fmt"
	"strings"
)

const unknownWorktreePolicyTemplateConstant = "unknown worktree policy %q (expected additive or exclusive)"

// WorktreePolicy describes how unmanaged worktrees of a repository are treated.
type WorktreePolicy int

const (
	// WorktreePolicyAdditive creates configured worktrees and leaves every other worktree alone.
	WorktreePolicyAdditive WorktreePolicy = iota
	// WorktreePolicyExclusive also removes worktrees that are not configured.
	WorktreePolicyExclusive
)

const (
	worktreePolicyAdditiveNameConstant  = "additive"
	worktreePolicyExclusiveNameConstant = "exclusive"
)

// ParseWorktreePolicy parses a policy name. An empty value selects the additive policy.
func ParseWorktreePolicy(raw string) (WorktreePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", worktreePolicyAdditiveNameConstant:
		return WorktreePolicyAdditive, nil
	case worktreePolicyExclusiveNameConstant:
		return WorktreePolicyExclusive, nil
	default:
		return WorktreePolicyAdditive, fmt.Errorf(unknownWorktreePolicyTemplateConstant, raw)
	}
}

// RemovesUnmanaged reports whether worktrees absent from configuration are removed.
func (policy WorktreePolicy) RemovesUnmanaged() bool {
	return policy == WorktreePolicyExclusive
}

// String returns the policy name.
func (policy WorktreePolicy) String() string {
	if policy == WorktreePolicyExclusive {
		return worktreePolicyExclusiveNameConstant
	}
	return worktreePolicyAdditiveNameConstant
}

// ExecutionMode selects whether planned actions are applied.
type ExecutionMode int

const (
	// ExecutionModeApply executes planned actions.
	ExecutionModeApply ExecutionMode = iota
	// ExecutionModeDryRun only plans.
	ExecutionModeDryRun
)

// ExecutionModeFromBool converts a dry-run flag into a mode.
func ExecutionModeFromBool(dryRun bool) ExecutionMode {
	if dryRun {
		return ExecutionModeDryRun
	}
	return ExecutionModeApply
}

// ShouldApply reports whether actions are executed.
func (mode ExecutionMode) ShouldApply() bool {
	return mode == ExecutionModeApply
}
