package githubauth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/reposync/internal/githubauth"
)

func staticLookup(values map[string]string) githubauth.EnvironmentLookup {
	return func(key string) (string, bool) {
		value, exists := values[key]
		return value, exists
	}
}

func TestTokenSourceResolve(testInstance *testing.T) {
	testCases := []struct {
		name          string
		environment   map[string]string
		expectedToken string
		expectFound   bool
	}{
		{
			name:          "prefers_gh_token",
			environment:   map[string]string{"GH_TOKEN": "cli", "GITHUB_TOKEN": "actions"},
			expectedToken: "cli",
			expectFound:   true,
		},
		{
			name:          "skips_blank_values",
			environment:   map[string]string{"GH_TOKEN": "  ", "GITHUB_API_TOKEN": " api "},
			expectedToken: "api",
			expectFound:   true,
		},
		{
			name:        "no_token",
			environment: map[string]string{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			source := githubauth.TokenSource{Lookup: staticLookup(testCase.environment)}
			token, found := source.Resolve()
			require.Equal(testInstance, testCase.expectFound, found)
			require.Equal(testInstance, testCase.expectedToken, token)
		})
	}
}

func TestTokenSourceCommandEnvironment(testInstance *testing.T) {
	source := githubauth.TokenSource{Lookup: staticLookup(map[string]string{"GITHUB_TOKEN": "actions"})}
	require.Equal(testInstance, map[string]string{"GH_TOKEN": "actions"}, source.CommandEnvironment())

	emptySource := githubauth.TokenSource{Lookup: staticLookup(nil)}
	require.Nil(testInstance, emptySource.CommandEnvironment())
}
