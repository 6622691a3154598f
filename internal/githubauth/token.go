package githubauth

import (
	"os"
	"strings"
)

// Environment variable names consulted for GitHub authentication, in preference order.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

var tokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// EnvironmentLookup reads one environment variable.
type EnvironmentLookup func(key string) (string, bool)

// TokenSource resolves the token handed to gh when listing provider repositories.
type TokenSource struct {
	Lookup EnvironmentLookup
}

// NewTokenSource reads the process environment.
func NewTokenSource() TokenSource {
	return TokenSource{Lookup: os.LookupEnv}
}

// Resolve returns the first non-blank token in preference order.
func (source TokenSource) Resolve() (string, bool) {
	lookup := source.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, key := range tokenPreference {
		value, exists := lookup(key)
		if !exists {
			continue
		}
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) > 0 {
			return trimmedValue, true
		}
	}
	return "", false
}

// CommandEnvironment exposes the resolved token as GH_TOKEN so gh authenticates even when
// only GITHUB_TOKEN or GITHUB_API_TOKEN is set. It returns nil when no token is available.
func (source TokenSource) CommandEnvironment() map[string]string {
	token, found := source.Resolve()
	if !found {
		return nil
	}
	return map[string]string{EnvGitHubCLIToken: token}
}
