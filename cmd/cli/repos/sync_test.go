package repos_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	repos "github.com/temirov/reposync/cmd/cli/repos"
	"github.com/temirov/reposync/internal/manifest"
	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/reconcile/reconciletest"
)

func TestSyncCommandReconcilesManifest(testInstance *testing.T) {
	testCases := []struct {
		name              string
		configuration     repos.ToolsConfiguration
		extraArguments    []string
		failClone         bool
		expectCloned      bool
		expectFailure     bool
		expectedFragments []string
	}{
		{
			name:              "clones_missing_repository",
			configuration:     repos.ToolsConfiguration{},
			expectCloned:      true,
			expectedFragments: []string{"REPOSITORY", testAlphaNameConstant, "succeeded", "1 repositories, 0 failed, 1 succeeded"},
		},
		{
			name:              "dry_run_flag_plans_only",
			configuration:     repos.ToolsConfiguration{},
			extraArguments:    []string{"--dry-run"},
			expectCloned:      false,
			expectedFragments: []string{"planned", "(dry run)"},
		},
		{
			name:              "configuration_dry_run",
			configuration:     repos.ToolsConfiguration{DryRun: true},
			expectCloned:      false,
			expectedFragments: []string{"(dry run)"},
		},
		{
			name:              "flag_overrides_configuration_dry_run",
			configuration:     repos.ToolsConfiguration{DryRun: true},
			extraArguments:    []string{"--dry-run=false", "--parallel", "2"},
			expectCloned:      true,
			expectedFragments: []string{"succeeded"},
		},
		{
			name:              "clone_failure_is_reported",
			configuration:     repos.ToolsConfiguration{},
			failClone:         true,
			expectFailure:     true,
			expectedFragments: []string{"failed", "NetworkFailure", "1 repositories, 1 failed"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			treeRoot := subTest.TempDir()
			manifestPath := writeManifest(subTest, fmt.Sprintf(testManifestTemplateConstant, treeRoot))
			repositoryPath := filepath.Join(treeRoot, testAlphaNameConstant)

			backend := reconciletest.NewBackend()
			if testCase.failClone {
				backend.FailOn(repositoryPath, reconcile.ActionKindClone, fmt.Errorf("%w: could not resolve host: example.com", reconcile.ErrNetworkFailure))
			}

			builder := repos.SyncCommandBuilder{
				LoggerProvider:        nopLoggerProvider,
				ConfigurationProvider: func() repos.ToolsConfiguration { return testCase.configuration },
				Dependencies: repos.CommandDependencies{
					GitExecutor:      unusedGitExecutor{},
					StateReader:      backend,
					Backend:          backend,
					RepositoryLister: &stubRepositoryLister{},
				},
			}
			command, buildError := builder.Build()
			require.NoError(subTest, buildError)

			arguments := append([]string{"--manifest", manifestPath}, testCase.extraArguments...)
			output, executionError := executeCommand(subTest, command, arguments...)
			if testCase.expectFailure {
				require.ErrorIs(subTest, executionError, repos.ErrReconciliationFailed)
				require.EqualError(subTest, executionError, "reconciliation finished with failures")
			} else {
				require.NoError(subTest, executionError)
			}

			for _, fragment := range testCase.expectedFragments {
				require.Contains(subTest, output.standardOutput.String(), fragment)
			}

			cloned, exists := backend.Repository(repositoryPath)
			require.Equal(subTest, testCase.expectCloned, exists)
			if exists {
				require.Equal(subTest, map[string]string{testOriginRemoteNameConstant: testAlphaURLConstant}, cloned.Remotes)
			}
		})
	}
}

func TestSyncCommandWarnsAboutUnmanagedRepositories(testInstance *testing.T) {
	testCases := []struct {
		name          string
		warnUnmanaged bool
		expectWarning bool
	}{
		{name: "warning_enabled", warnUnmanaged: true, expectWarning: true},
		{name: "warning_disabled", warnUnmanaged: false, expectWarning: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			treeRoot := subTest.TempDir()
			strayPath := filepath.Join(treeRoot, "stray")
			require.NoError(subTest, os.MkdirAll(filepath.Join(strayPath, ".git"), 0o755))
			manifestPath := writeManifest(subTest, fmt.Sprintf(testManifestTemplateConstant, treeRoot))

			backend := reconciletest.NewBackend()
			builder := repos.SyncCommandBuilder{
				LoggerProvider:        nopLoggerProvider,
				ConfigurationProvider: func() repos.ToolsConfiguration { return repos.ToolsConfiguration{WarnUnmanaged: testCase.warnUnmanaged} },
				Dependencies:          repos.CommandDependencies{GitExecutor: unusedGitExecutor{}, StateReader: backend, Backend: backend, RepositoryLister: &stubRepositoryLister{}},
			}
			command, buildError := builder.Build()
			require.NoError(subTest, buildError)

			output, executionError := executeCommand(subTest, command, "--manifest", manifestPath)
			require.NoError(subTest, executionError)

			warning := "warning: unmanaged repository " + strayPath
			if testCase.expectWarning {
				require.Contains(subTest, output.standardError.String(), warning)
			} else {
				require.NotContains(subTest, output.standardError.String(), warning)
			}
			require.Empty(subTest, backend.Calls(strayPath))
		})
	}
}

func TestSyncCommandManifestErrors(testInstance *testing.T) {
	backend := reconciletest.NewBackend()
	builder := repos.SyncCommandBuilder{
		LoggerProvider: nopLoggerProvider,
		Dependencies:   repos.CommandDependencies{GitExecutor: unusedGitExecutor{}, StateReader: backend, Backend: backend, RepositoryLister: &stubRepositoryLister{}},
	}

	missingCommand, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	_, missingError := executeCommand(testInstance, missingCommand, "--manifest", filepath.Join(testInstance.TempDir(), "absent.yaml"))
	var loadError manifest.LoadError
	require.ErrorAs(testInstance, missingError, &loadError)

	invalidCommand, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	invalidManifest := writeManifest(testInstance, "trees:\n  - repositories:\n      - name: alpha\n")
	_, invalidError := executeCommand(testInstance, invalidCommand, "--manifest", invalidManifest)
	var validationError manifest.ValidationError
	require.ErrorAs(testInstance, invalidError, &validationError)
}
