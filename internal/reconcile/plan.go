package reconcile

import (
	"fmt"
	"path"
	"slices"
	"strings"
)

const (
	duplicateRemoteTemplateConstant         = "%w: remote %q is configured more than once"
	duplicateSubdirectoryTemplateConstant   = "%w: worktree subdirectory %q matches more than one worktree (%s, %s)"
	duplicateWorktreeBranchTemplateConstant = "%w: branch %q is configured for worktrees %s and %s"
	invalidSubdirectoryTemplateConstant     = "%w: worktree subdirectory %q must be a relative path inside the repository"
	missingWorktreeBranchTemplateConstant   = "%w: worktree %q has no branch"
	currentDirectoryConstant                = "."
	parentDirectoryConstant                 = ".."
	parentDirectoryPrefixConstant           = "../"
)

// NormalizeSubdirectory returns the canonical form used to match configured and observed worktrees.
func NormalizeSubdirectory(subdirectory string) string {
	return path.Clean(strings.ReplaceAll(strings.TrimSpace(subdirectory), "\\", "/"))
}

// BuildPlan compares desired and actual state of one repository and returns the ordered actions
// that converge it. A missing repository plans only its creation; the rest of the diff is derived
// on the next pass. The same inputs always yield the same plan.
func BuildPlan(config RepositoryConfig, state ActualRepositoryState) ([]PlannedAction, error) {
	worktreeSpecs, validationError := normalizedWorktreeSpecs(config)
	if validationError != nil {
		return nil, validationError
	}

	if !state.Exists {
		if len(config.Remotes) == 0 {
			return []PlannedAction{InitRepositoryAction{}}, nil
		}
		firstRemote := config.Remotes[0]
		return []PlannedAction{CloneAction{RemoteName: firstRemote.Name, URL: firstRemote.URL, Branch: config.DefaultBranch}}, nil
	}

	plan := planRemotes(config.Remotes, state)
	plan = append(plan, planWorktrees(config, worktreeSpecs, state)...)
	plan = append(plan, planTracking(worktreeSpecs, state)...)
	return plan, nil
}

func normalizedWorktreeSpecs(config RepositoryConfig) ([]WorktreeSpec, error) {
	remoteNames := make(map[string]struct{}, len(config.Remotes))
	for _, remote := range config.Remotes {
		if _, duplicate := remoteNames[remote.Name]; duplicate {
			return nil, fmt.Errorf(duplicateRemoteTemplateConstant, ErrConfigurationAmbiguous, remote.Name)
		}
		remoteNames[remote.Name] = struct{}{}
	}

	specsBySubdirectory := make(map[string]WorktreeSpec, len(config.Worktrees))
	subdirectoriesByBranch := make(map[string]string, len(config.Worktrees))
	normalized := make([]WorktreeSpec, 0, len(config.Worktrees))
	for _, spec := range config.Worktrees {
		subdirectory := NormalizeSubdirectory(spec.Subdirectory)
		if subdirectory == currentDirectoryConstant || subdirectory == parentDirectoryConstant ||
			path.IsAbs(subdirectory) || strings.HasPrefix(subdirectory, parentDirectoryPrefixConstant) {
			return nil, fmt.Errorf(invalidSubdirectoryTemplateConstant, ErrConfigurationAmbiguous, spec.Subdirectory)
		}
		if len(strings.TrimSpace(spec.Branch)) == 0 {
			return nil, fmt.Errorf(missingWorktreeBranchTemplateConstant, ErrConfigurationAmbiguous, spec.Subdirectory)
		}
		if existing, duplicate := specsBySubdirectory[subdirectory]; duplicate {
			return nil, fmt.Errorf(duplicateSubdirectoryTemplateConstant, ErrConfigurationAmbiguous, subdirectory, existing.Subdirectory, spec.Subdirectory)
		}
		if existingSubdirectory, duplicate := subdirectoriesByBranch[spec.Branch]; duplicate {
			return nil, fmt.Errorf(duplicateWorktreeBranchTemplateConstant, ErrConfigurationAmbiguous, spec.Branch, existingSubdirectory, subdirectory)
		}
		specsBySubdirectory[subdirectory] = spec
		subdirectoriesByBranch[spec.Branch] = subdirectory

		normalizedSpec := spec
		normalizedSpec.Subdirectory = subdirectory
		normalized = append(normalized, normalizedSpec)
	}

	slices.SortFunc(normalized, func(left WorktreeSpec, right WorktreeSpec) int {
		return strings.Compare(left.Subdirectory, right.Subdirectory)
	})
	return normalized, nil
}

// planRemotes follows configuration order. Remotes that are not configured are never touched.
func planRemotes(remotes []Remote, state ActualRepositoryState) []PlannedAction {
	var plan []PlannedAction
	for _, remote := range remotes {
		observedURL, observed := state.Remotes[remote.Name]
		switch {
		case !observed:
			plan = append(plan, AddRemoteAction{Remote: remote})
		case observedURL != remote.URL:
			plan = append(plan, UpdateRemoteURLAction{RemoteName: remote.Name, URL: remote.URL, ObservedURL: observedURL})
		}
	}
	return plan
}

type worktreeStep struct {
	subdirectory string
	branch       string
	action       PlannedAction
}

// planWorktrees emits creations and, under the exclusive policy, removals in lexical subdirectory
// order. A removal that frees a branch needed by a creation is moved in front of that creation.
func planWorktrees(config RepositoryConfig, specs []WorktreeSpec, state ActualRepositoryState) []PlannedAction {
	var steps []worktreeStep
	configured := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		configured[spec.Subdirectory] = struct{}{}
		if _, observed := state.Worktrees[spec.Subdirectory]; observed {
			continue
		}
		_, branchExists := state.Branches[spec.Branch]
		steps = append(steps, worktreeStep{
			subdirectory: spec.Subdirectory,
			branch:       spec.Branch,
			action: CreateWorktreeAction{
				Branch:       spec.Branch,
				Subdirectory: spec.Subdirectory,
				BranchExists: branchExists,
				StartPoint:   spec.TrackingReference,
			},
		})
	}

	removalIndexByBranch := make(map[string]int)
	if config.WorktreePolicy.RemovesUnmanaged() {
		for _, subdirectory := range state.WorktreeSubdirectories() {
			if _, isConfigured := configured[subdirectory]; isConfigured {
				continue
			}
			steps = append(steps, worktreeStep{
				subdirectory: subdirectory,
				branch:       state.Worktrees[subdirectory],
				action:       RemoveWorktreeAction{Subdirectory: subdirectory},
			})
		}
	}

	slices.SortFunc(steps, func(left worktreeStep, right worktreeStep) int {
		return strings.Compare(left.subdirectory, right.subdirectory)
	})
	for stepIndex, step := range steps {
		if _, isRemoval := step.action.(RemoveWorktreeAction); isRemoval && len(step.branch) > 0 {
			removalIndexByBranch[step.branch] = stepIndex
		}
	}

	plan := make([]PlannedAction, 0, len(steps))
	emitted := make(map[int]struct{}, len(steps))
	for stepIndex, step := range steps {
		if _, alreadyEmitted := emitted[stepIndex]; alreadyEmitted {
			continue
		}
		if _, isCreation := step.action.(CreateWorktreeAction); isCreation {
			if removalIndex, holdsBranch := removalIndexByBranch[step.branch]; holdsBranch && removalIndex > stepIndex {
				plan = append(plan, steps[removalIndex].action)
				emitted[removalIndex] = struct{}{}
			}
		}
		plan = append(plan, step.action)
		emitted[stepIndex] = struct{}{}
	}
	return plan
}

// planTracking covers every configured worktree, created in this pass or already present. An
// existing worktree on a different branch is left alone.
func planTracking(specs []WorktreeSpec, state ActualRepositoryState) []PlannedAction {
	var plan []PlannedAction
	for _, spec := range specs {
		if len(spec.TrackingReference) == 0 {
			continue
		}
		if observedBranch, observed := state.Worktrees[spec.Subdirectory]; observed && observedBranch != spec.Branch {
			continue
		}
		if state.Branches[spec.Branch].Upstream == spec.TrackingReference {
			continue
		}
		plan = append(plan, SetTrackingBranchAction{Branch: spec.Branch, Upstream: spec.TrackingReference})
	}
	return plan
}
