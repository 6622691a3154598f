package reconcile_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/reconcile/reconciletest"
	"github.com/temirov/reposync/internal/repos/shared"
)

const (
	testRepositoryAPathConstant = "/work/a"
	testRepositoryBPathConstant = "/work/b"
)

func newTestEngine(testInstance *testing.T, backend *reconciletest.Backend, options reconcile.EngineOptions) *reconcile.Engine {
	testInstance.Helper()
	engine, creationError := reconcile.NewEngine(reconcile.EngineDependencies{StateReader: backend, Backend: backend, Logger: zap.NewNop()}, options)
	require.NoError(testInstance, creationError)
	return engine
}

func fullRepositoryConfig(name string, repositoryPath string) reconcile.RepositoryConfig {
	return reconcile.RepositoryConfig{
		Name: name,
		Path: repositoryPath,
		Remotes: []reconcile.Remote{
			{Name: testOriginRemoteNameConstant, URL: "https://x/" + name + ".git"},
			{Name: "fork", URL: "https://x/fork/" + name + ".git"},
		},
		Worktrees: []reconcile.WorktreeSpec{
			{Branch: testFeatureBranchConstant, Subdirectory: testFeatureSubdirectoryConstant, TrackingReference: "origin/feature"},
			{Branch: "review", Subdirectory: "wt/review", TrackingReference: "fork/review"},
		},
		WorktreePolicy: shared.WorktreePolicyExclusive,
	}
}

func TestNewEngineValidatesDependencies(testInstance *testing.T) {
	_, stateReaderError := reconcile.NewEngine(reconcile.EngineDependencies{Backend: reconciletest.NewBackend()}, reconcile.EngineOptions{})
	require.ErrorIs(testInstance, stateReaderError, reconcile.ErrStateReaderNotConfigured)

	_, backendError := reconcile.NewEngine(reconcile.EngineDependencies{StateReader: reconciletest.NewBackend()}, reconcile.EngineOptions{})
	require.ErrorIs(testInstance, backendError, reconcile.ErrBackendNotConfigured)
}

func TestEngineConvergesAndStaysIdempotent(testInstance *testing.T) {
	testCases := []struct {
		name   string
		seed   func(backend *reconciletest.Backend)
		passes int
	}{
		{
			name:   "missing_repository_converges_after_clone_pass",
			seed:   func(*reconciletest.Backend) {},
			passes: 2,
		},
		{
			name: "drifted_repository_converges_in_one_pass",
			seed: func(backend *reconciletest.Backend) {
				backend.SeedRepository(testRepositoryAPathConstant, reconciletest.Repository{
					Remotes:   map[string]string{testOriginRemoteNameConstant: "https://old/a.git", "manual": "https://x/manual.git"},
					Branches:  map[string]reconcile.BranchState{"main": {Name: "main"}, "review": {Name: "review"}, "stale": {Name: "stale"}},
					Worktrees: map[string]string{"wt/stale": "stale"},
					Head:      "main",
				})
			},
			passes: 1,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			backend := reconciletest.NewBackend()
			testCase.seed(backend)
			engine := newTestEngine(testInstance, backend, reconcile.EngineOptions{Parallelism: 2})
			configs := []reconcile.RepositoryConfig{fullRepositoryConfig("a", testRepositoryAPathConstant)}

			for pass := 0; pass < testCase.passes; pass++ {
				report := engine.Reconcile(context.Background(), configs)
				require.True(testInstance, report.Succeeded(), "pass %d", pass)
			}

			state, readError := backend.ReadState(context.Background(), testRepositoryAPathConstant)
			require.NoError(testInstance, readError)
			plan, planError := reconcile.BuildPlan(configs[0], state)
			require.NoError(testInstance, planError)
			require.Empty(testInstance, plan)

			finalReport := engine.Reconcile(context.Background(), configs)
			require.True(testInstance, finalReport.Succeeded())
			require.Empty(testInstance, finalReport.Repositories[0].Plan)

			repository, exists := backend.Repository(testRepositoryAPathConstant)
			require.True(testInstance, exists)
			require.Equal(testInstance, "https://x/a.git", repository.Remotes[testOriginRemoteNameConstant])
			require.Equal(testInstance, map[string]string{testFeatureSubdirectoryConstant: testFeatureBranchConstant, "wt/review": "review"}, repository.Worktrees)
			require.Equal(testInstance, "fork/review", repository.Branches["review"].Upstream)
		})
	}
}

func TestEngineKeepsRepositoriesIsolated(testInstance *testing.T) {
	runPass := func(injectFailure bool) reconcile.Report {
		backend := reconciletest.NewBackend()
		for _, repositoryPath := range []string{testRepositoryAPathConstant, testRepositoryBPathConstant} {
			backend.SeedRepository(repositoryPath, reconciletest.Repository{
				Remotes:  map[string]string{testOriginRemoteNameConstant: "https://old/r.git"},
				Branches: map[string]reconcile.BranchState{"main": {Name: "main"}},
				Head:     "main",
			})
		}
		if injectFailure {
			backend.FailOn(testRepositoryAPathConstant, reconcile.ActionKindUpdateRemoteURL, fmt.Errorf("%w: connection refused", reconcile.ErrNetworkFailure))
		}
		engine := newTestEngine(testInstance, backend, reconcile.EngineOptions{Parallelism: 4})
		return engine.Reconcile(context.Background(), []reconcile.RepositoryConfig{
			fullRepositoryConfig("a", testRepositoryAPathConstant),
			fullRepositoryConfig("b", testRepositoryBPathConstant),
		})
	}

	baseline := runPass(false)
	injected := runPass(true)

	require.True(testInstance, baseline.Succeeded())
	require.False(testInstance, injected.Succeeded())
	require.Equal(testInstance, 1, injected.FailureCount())

	failedReport := injected.Repositories[0]
	require.NotNil(testInstance, failedReport.Error)
	require.Equal(testInstance, reconcile.ErrorKindNetworkFailure, failedReport.Error.Kind)
	require.Equal(testInstance, reconcile.ActionOutcomeFailed, failedReport.Results[0].Outcome)
	for _, skipped := range failedReport.Results[1:] {
		require.Equal(testInstance, reconcile.ActionOutcomeSkipped, skipped.Outcome)
	}

	require.Equal(testInstance, baseline.Repositories[1], injected.Repositories[1])
}

func TestEngineReportsRepositoryLevelFailures(testInstance *testing.T) {
	backend := reconciletest.NewBackend()
	backend.MarkUnreadable("/work/corrupt")
	backend.OccupyPath("/work/occupied")

	observerCore, observerLogs := observer.New(zap.InfoLevel)
	engine, creationError := reconcile.NewEngine(
		reconcile.EngineDependencies{StateReader: backend, Backend: backend, Logger: zap.New(observerCore)},
		reconcile.EngineOptions{Parallelism: 3},
	)
	require.NoError(testInstance, creationError)

	report := engine.Reconcile(context.Background(), []reconcile.RepositoryConfig{
		{Name: "corrupt", Path: "/work/corrupt"},
		{Name: "first", Path: "/work/shared", Remotes: []reconcile.Remote{{Name: testOriginRemoteNameConstant, URL: "https://x/first.git"}}},
		{Name: "occupied", Path: "/work/occupied", Remotes: []reconcile.Remote{{Name: testOriginRemoteNameConstant, URL: "https://x/occupied.git"}}},
		{Name: "second", Path: "/work/shared/"},
		{Name: "fine", Path: "/work/fine"},
	})

	require.Len(testInstance, report.Repositories, 5)
	require.Equal(testInstance, reconcile.ErrorKindRepositoryUnreadable, report.Repositories[0].Error.Kind)
	require.Equal(testInstance, reconcile.ErrorKindConfigurationAmbiguous, report.Repositories[1].Error.Kind)
	require.Contains(testInstance, report.Repositories[1].Error.Detail, "first, second")
	require.Equal(testInstance, reconcile.ErrorKindFilesystemConflict, report.Repositories[2].Error.Kind)
	require.Equal(testInstance, reconcile.ErrorKindConfigurationAmbiguous, report.Repositories[3].Error.Kind)
	require.True(testInstance, report.Repositories[4].Succeeded())
	require.Equal(testInstance, []reconcile.PlannedAction{reconcile.InitRepositoryAction{}}, report.Repositories[4].Plan)
	require.Equal(testInstance, 4, report.FailureCount())

	require.Empty(testInstance, backend.Calls("/work/shared"))
	require.Len(testInstance, observerLogs.FilterMessage("Repository reconciliation failed").FilterLevelExact(zapcore.WarnLevel).All(), 2)
}

func TestEngineDryRunDoesNotMutate(testInstance *testing.T) {
	backend := reconciletest.NewBackend()
	engine := newTestEngine(testInstance, backend, reconcile.EngineOptions{Mode: shared.ExecutionModeDryRun})

	report := engine.Reconcile(context.Background(), []reconcile.RepositoryConfig{fullRepositoryConfig("a", testRepositoryAPathConstant)})
	require.True(testInstance, report.DryRun)
	require.True(testInstance, report.Succeeded())
	require.Len(testInstance, report.Repositories[0].Results, 1)
	require.Equal(testInstance, reconcile.ActionOutcomePlanned, report.Repositories[0].Results[0].Outcome)
	require.Empty(testInstance, backend.Calls(testRepositoryAPathConstant))
	_, exists := backend.Repository(testRepositoryAPathConstant)
	require.False(testInstance, exists)
}

func TestEngineStopsLaunchingAfterCancellation(testInstance *testing.T) {
	backend := reconciletest.NewBackend()
	engine := newTestEngine(testInstance, backend, reconcile.EngineOptions{Parallelism: 1})

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	report := engine.Reconcile(cancelledContext, []reconcile.RepositoryConfig{
		fullRepositoryConfig("a", testRepositoryAPathConstant),
		fullRepositoryConfig("b", testRepositoryBPathConstant),
	})
	for _, repositoryReport := range report.Repositories {
		require.True(testInstance, repositoryReport.Cancelled)
		require.Equal(testInstance, reconcile.ErrorKindCancelled, repositoryReport.Error.Kind)
	}
	require.Empty(testInstance, backend.Calls(testRepositoryAPathConstant))
	require.Empty(testInstance, backend.Calls(testRepositoryBPathConstant))
	require.False(testInstance, report.Succeeded())
}

func TestEngineRejectsNestedRepositoryPaths(testInstance *testing.T) {
	testCases := []struct {
		name              string
		configs           []reconcile.RepositoryConfig
		ambiguousIndexes  []int
		expectedFragments []string
	}{
		{
			name: "repository_inside_another",
			configs: []reconcile.RepositoryConfig{
				{Name: "group", Path: "/work/group"},
				{Name: "app", Path: "/work/group/app"},
				{Name: "fine", Path: "/work/fine"},
			},
			ambiguousIndexes:  []int{0, 1},
			expectedFragments: []string{"/work/group/app", "app", "/work/group", "group"},
		},
		{
			name: "repository_deeply_inside_another",
			configs: []reconcile.RepositoryConfig{
				{Name: "fine", Path: "/work/fine"},
				{Name: "tools", Path: "/work/group/nested/tools/"},
				{Name: "group", Path: "/work/group"},
			},
			ambiguousIndexes:  []int{1, 2},
			expectedFragments: []string{"/work/group/nested/tools", "/work/group"},
		},
		{
			name: "shared_name_prefix_is_not_nesting",
			configs: []reconcile.RepositoryConfig{
				{Name: "group", Path: "/work/group"},
				{Name: "groupware", Path: "/work/groupware"},
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			backend := reconciletest.NewBackend()
			engine := newTestEngine(testInstance, backend, reconcile.EngineOptions{Parallelism: 2})

			report := engine.Reconcile(context.Background(), testCase.configs)
			require.Len(testInstance, report.Repositories, len(testCase.configs))
			require.Equal(testInstance, len(testCase.ambiguousIndexes), report.FailureCount())

			ambiguous := make(map[int]bool, len(testCase.ambiguousIndexes))
			for _, index := range testCase.ambiguousIndexes {
				ambiguous[index] = true
			}
			for index, repositoryReport := range report.Repositories {
				repositoryPath := testCase.configs[index].Path
				if !ambiguous[index] {
					require.True(testInstance, repositoryReport.Succeeded(), repositoryPath)
					require.NotEmpty(testInstance, backend.Calls(repositoryPath))
					continue
				}
				require.NotNil(testInstance, repositoryReport.Error)
				require.Equal(testInstance, reconcile.ErrorKindConfigurationAmbiguous, repositoryReport.Error.Kind)
				for _, fragment := range testCase.expectedFragments {
					require.Contains(testInstance, repositoryReport.Error.Detail, fragment)
				}
				require.Empty(testInstance, backend.Calls(repositoryPath))
			}
		})
	}
}

func TestEngineFetchRefreshesExistingRepositories(testInstance *testing.T) {
	backend := reconciletest.NewBackend()
	for _, repositoryPath := range []string{testRepositoryAPathConstant, testRepositoryBPathConstant, "/work/offline"} {
		backend.SeedRepository(repositoryPath, reconciletest.Repository{
			Remotes:  map[string]string{testOriginRemoteNameConstant: "https://x/r.git"},
			Branches: map[string]reconcile.BranchState{"main": {Name: "main", Upstream: "origin/main"}},
			Head:     "main",
		})
	}
	backend.MarkUnreadable(testRepositoryBPathConstant)
	backend.FailOn("/work/offline", reconciletest.FetchRemotesCallKind, fmt.Errorf("%w: could not resolve host", reconcile.ErrNetworkFailure))

	engine, creationError := reconcile.NewEngine(
		reconcile.EngineDependencies{StateReader: backend, Backend: backend, Fetcher: backend, Logger: zap.NewNop()},
		reconcile.EngineOptions{Parallelism: 2},
	)
	require.NoError(testInstance, creationError)

	report, fetchError := engine.Fetch(context.Background(), []reconcile.RepositoryConfig{
		{Name: "a", Path: testRepositoryAPathConstant},
		{Name: "b", Path: testRepositoryBPathConstant},
		{Name: "offline", Path: "/work/offline"},
		{Name: "missing", Path: "/work/missing"},
	})
	require.NoError(testInstance, fetchError)
	require.Len(testInstance, report.Repositories, 4)

	require.Equal(testInstance, reconcile.FetchOutcomeFetched, report.Repositories[0].Outcome)
	require.Nil(testInstance, report.Repositories[0].Error)
	require.Equal(testInstance, reconcile.FetchOutcomeFailed, report.Repositories[1].Outcome)
	require.Equal(testInstance, reconcile.ErrorKindRepositoryUnreadable, report.Repositories[1].Error.Kind)
	require.Equal(testInstance, reconcile.FetchOutcomeFailed, report.Repositories[2].Outcome)
	require.Equal(testInstance, reconcile.ErrorKindNetworkFailure, report.Repositories[2].Error.Kind)
	require.Equal(testInstance, reconcile.FetchOutcomeMissing, report.Repositories[3].Outcome)
	require.Equal(testInstance, 2, report.FailureCount())
	require.False(testInstance, report.Succeeded())

	require.Equal(testInstance, []reconciletest.Call{{Kind: reconciletest.FetchRemotesCallKind, Path: testRepositoryAPathConstant}}, backend.Calls(testRepositoryAPathConstant))
	require.Empty(testInstance, backend.Calls(testRepositoryBPathConstant))
	require.Empty(testInstance, backend.Calls("/work/missing"))

	repository, exists := backend.Repository(testRepositoryAPathConstant)
	require.True(testInstance, exists)
	require.Equal(testInstance, "origin/main", repository.Branches["main"].Upstream)
}

func TestEngineFetchRequiresFetcher(testInstance *testing.T) {
	engine := newTestEngine(testInstance, reconciletest.NewBackend(), reconcile.EngineOptions{})
	_, fetchError := engine.Fetch(context.Background(), []reconcile.RepositoryConfig{{Name: "a", Path: testRepositoryAPathConstant}})
	require.ErrorIs(testInstance, fetchError, reconcile.ErrRemoteFetcherNotConfigured)
}
