package pathutils

import (
	"cmp"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// RepositoryPathSanitizerConfiguration controls repository path sanitization behavior.
type RepositoryPathSanitizerConfiguration struct {
	// PruneNestedPaths removes paths nested within other provided paths, so a walk over
	// the result visits every directory once.
	PruneNestedPaths bool
}

// RepositoryPathSanitizer normalizes tree roots and repository paths consistently across commands.
type RepositoryPathSanitizer struct {
	homeExpander  *HomeExpander
	configuration RepositoryPathSanitizerConfiguration
}

// NewRepositoryPathSanitizer constructs a RepositoryPathSanitizer with default behavior.
func NewRepositoryPathSanitizer() *RepositoryPathSanitizer {
	return NewRepositoryPathSanitizerWithConfiguration(nil, RepositoryPathSanitizerConfiguration{})
}

// NewRepositoryPathSanitizerWithConfiguration constructs a RepositoryPathSanitizer using the provided expander and configuration.
func NewRepositoryPathSanitizerWithConfiguration(homeExpander *HomeExpander, configuration RepositoryPathSanitizerConfiguration) *RepositoryPathSanitizer {
	resolvedExpander := homeExpander
	if resolvedExpander == nil {
		resolvedExpander = NewHomeExpander()
	}

	return &RepositoryPathSanitizer{
		homeExpander:  resolvedExpander,
		configuration: configuration,
	}
}

// Sanitize trims whitespace, expands the user's home directory and cleans each path, dropping blanks.
func (sanitizer *RepositoryPathSanitizer) Sanitize(candidatePaths []string) []string {
	if sanitizer == nil {
		return sanitizePathsWithExpander(NewHomeExpander(), RepositoryPathSanitizerConfiguration{}, candidatePaths)
	}

	return sanitizePathsWithExpander(sanitizer.homeExpander, sanitizer.configuration, candidatePaths)
}

func sanitizePathsWithExpander(expander *HomeExpander, configuration RepositoryPathSanitizerConfiguration, candidatePaths []string) []string {
	sanitizedPaths := make([]string, 0, len(candidatePaths))
	for candidateIndex := range candidatePaths {
		trimmedCandidate := strings.TrimSpace(candidatePaths[candidateIndex])
		if len(trimmedCandidate) == 0 {
			continue
		}

		expandedPath := expander.Expand(trimmedCandidate)
		if len(expandedPath) == 0 {
			continue
		}

		sanitizedPaths = append(sanitizedPaths, filepath.Clean(expandedPath))
	}

	if len(sanitizedPaths) == 0 {
		return nil
	}

	if configuration.PruneNestedPaths {
		return pruneNestedPaths(sanitizedPaths)
	}

	return sanitizedPaths
}

// pruneNestedPaths keeps the outermost of overlapping paths, preserving input order.
func pruneNestedPaths(candidatePaths []string) []string {
	canonicalPaths := make([]string, len(candidatePaths))
	for index, candidatePath := range candidatePaths {
		canonicalPaths[index] = comparisonPath(canonicalizePath(candidatePath))
	}

	byDepth := make([]int, len(candidatePaths))
	for index := range byDepth {
		byDepth[index] = index
	}
	slices.SortStableFunc(byDepth, func(first int, second int) int {
		return cmp.Or(
			cmp.Compare(len(canonicalPaths[first]), len(canonicalPaths[second])),
			strings.Compare(canonicalPaths[first], canonicalPaths[second]),
		)
	})

	kept := make([]int, 0, len(byDepth))
	for _, candidateIndex := range byDepth {
		covered := slices.ContainsFunc(kept, func(keptIndex int) bool {
			return isNestedPath(canonicalPaths[keptIndex], canonicalPaths[candidateIndex])
		})
		if !covered {
			kept = append(kept, candidateIndex)
		}
	}
	slices.Sort(kept)

	pruned := make([]string, 0, len(kept))
	for _, keptIndex := range kept {
		pruned = append(pruned, candidatePaths[keptIndex])
	}
	return pruned
}

func canonicalizePath(path string) string {
	absolutePath, absoluteError := filepath.Abs(path)
	if absoluteError != nil {
		return filepath.Clean(path)
	}
	return absolutePath
}

func comparisonPath(path string) string {
	if runtime.GOOS == "windows" {
		return strings.ToLower(path)
	}
	return path
}

// isNestedPath reports whether candidate equals parent or lies beneath it.
func isNestedPath(parent string, candidate string) bool {
	if candidate == parent {
		return true
	}
	parentPrefix := parent
	if !strings.HasSuffix(parentPrefix, string(os.PathSeparator)) {
		parentPrefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(candidate, parentPrefix)
}
