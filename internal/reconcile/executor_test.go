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
)

func TestNewActionExecutorRequiresBackend(testInstance *testing.T) {
	executor, creationError := reconcile.NewActionExecutor(nil, zap.NewNop())
	require.ErrorIs(testInstance, creationError, reconcile.ErrBackendNotConfigured)
	require.Nil(testInstance, executor)
}

func TestActionExecutorHaltsOnFirstFailure(testInstance *testing.T) {
	testCases := []struct {
		name         string
		failure      error
		expectedKind reconcile.ErrorKind
	}{
		{name: "network", failure: fmt.Errorf("%w: could not resolve host", reconcile.ErrNetworkFailure), expectedKind: reconcile.ErrorKindNetworkFailure},
		{name: "backend", failure: fmt.Errorf("%w: branch exists", reconcile.ErrBackendOperationFailed), expectedKind: reconcile.ErrorKindBackendOperationFailed},
		{name: "filesystem", failure: fmt.Errorf("%w: not empty", reconcile.ErrFilesystemConflict), expectedKind: reconcile.ErrorKindFilesystemConflict},
		{name: "unclassified", failure: fmt.Errorf("unexpected"), expectedKind: reconcile.ErrorKindBackendOperationFailed},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			backend := reconciletest.NewBackend()
			backend.SeedRepository(testRepositoryPathConstant, reconciletest.Repository{
				Remotes: map[string]string{testOriginRemoteNameConstant: testRepositoryURLConstant},
				Head:    "main",
			})
			backend.FailOn(testRepositoryPathConstant, reconcile.ActionKindCreateWorktree, testCase.failure)

			observerCore, observerLogs := observer.New(zap.DebugLevel)
			executor, creationError := reconcile.NewActionExecutor(backend, zap.New(observerCore))
			require.NoError(testInstance, creationError)

			config := reconcile.RepositoryConfig{Name: "r1", Path: testRepositoryPathConstant}
			plan := []reconcile.PlannedAction{
				reconcile.AddRemoteAction{Remote: reconcile.Remote{Name: "fork", URL: "https://x/fork.git"}},
				reconcile.CreateWorktreeAction{Branch: testFeatureBranchConstant, Subdirectory: testFeatureSubdirectoryConstant},
				reconcile.SetTrackingBranchAction{Branch: testFeatureBranchConstant, Upstream: "fork/feature"},
			}

			results, failure := executor.Execute(context.Background(), config, plan)
			require.NotNil(testInstance, failure)
			require.Equal(testInstance, testCase.expectedKind, failure.Kind)
			require.Equal(testInstance, "r1", failure.Repository)
			require.Equal(testInstance, "CreateWorktree(feature, wt/feature)", failure.Action)
			require.ErrorIs(testInstance, failure, testCase.failure)

			require.Len(testInstance, results, 3)
			require.Equal(testInstance, reconcile.ActionOutcomeSucceeded, results[0].Outcome)
			require.Equal(testInstance, reconcile.ActionOutcomeFailed, results[1].Outcome)
			require.Same(testInstance, failure, results[1].Error)
			require.Equal(testInstance, reconcile.ActionOutcomeSkipped, results[2].Outcome)

			calls := backend.Calls(testRepositoryPathConstant)
			require.Len(testInstance, calls, 2)
			require.Equal(testInstance, reconcile.ActionKindAddRemote, calls[0].Kind)
			require.Equal(testInstance, reconcile.ActionKindCreateWorktree, calls[1].Kind)

			require.Len(testInstance, observerLogs.FilterLevelExact(zapcore.WarnLevel).All(), 1)
		})
	}
}

func TestActionExecutorIgnoresCancellationMidPlan(testInstance *testing.T) {
	backend := reconciletest.NewBackend()
	executor, creationError := reconcile.NewActionExecutor(backend, nil)
	require.NoError(testInstance, creationError)

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	results, failure := executor.Execute(cancelledContext, reconcile.RepositoryConfig{Path: testRepositoryPathConstant}, []reconcile.PlannedAction{reconcile.InitRepositoryAction{}})
	require.Nil(testInstance, failure)
	require.Len(testInstance, results, 1)
	require.Equal(testInstance, reconcile.ActionOutcomeSucceeded, results[0].Outcome)

	_, exists := backend.Repository(testRepositoryPathConstant)
	require.True(testInstance, exists)
}
