package ui_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/ui"
)

func TestWorktreeStatusRows(testInstance *testing.T) {
	report := reconcile.Report{
		Repositories: []reconcile.RepositoryReport{
			{
				Name: testAlphaNameConstant,
				Path: "/srv/alpha",
				State: reconcile.ActualRepositoryState{
					Exists: true,
					Path:   "/srv/alpha",
					Branches: map[string]reconcile.BranchState{
						"main":    {Name: "main", Upstream: "origin/main"},
						"feature": {Name: "feature"},
						"stale":   {Name: "stale", Upstream: "origin/stale"},
					},
					Worktrees: map[string]string{"wt/feature": "feature", "wt/stale": "stale"},
					Head:      "main",
				},
				Plan: []reconcile.PlannedAction{
					reconcile.RemoveWorktreeAction{Subdirectory: "wt/stale"},
					reconcile.CreateWorktreeAction{Branch: "review", Subdirectory: "wt/review", StartPoint: "origin/review"},
					reconcile.SetTrackingBranchAction{Branch: "feature", Upstream: "origin/feature"},
					reconcile.SetTrackingBranchAction{Branch: "review", Upstream: "origin/review"},
				},
			},
			{
				Name:  testBetaNameConstant,
				Path:  "/srv/beta",
				State: reconcile.ActualRepositoryState{Exists: true, Path: "/srv/beta", Head: "main"},
			},
			{
				Name:  testGammaNameConstant,
				Path:  "/srv/gamma",
				State: reconcile.AbsentRepositoryState("/srv/gamma"),
				Plan:  []reconcile.PlannedAction{reconcile.CloneAction{RemoteName: "origin", URL: testOriginURLConstant}},
			},
			{
				Name:  testDeltaNameConstant,
				Path:  "/srv/delta",
				Error: &reconcile.Error{Kind: reconcile.ErrorKindRepositoryUnreadable, Detail: "corrupt object database"},
			},
		},
	}

	rows := ui.WorktreeStatusRows(report)
	require.Equal(testInstance, [][]string{
		{testAlphaNameConstant, "wt/feature", "feature", "", "SetTrackingBranch(feature, origin/feature)"},
		{testAlphaNameConstant, "wt/review", "review", "", "CreateWorktree(review, wt/review); SetTrackingBranch(review, origin/review)"},
		{testAlphaNameConstant, "wt/stale", "stale", "origin/stale", "RemoveWorktree(wt/stale)"},
		{testBetaNameConstant, "-", "", "", "no worktrees"},
		{testGammaNameConstant, "-", "", "", "missing"},
		{testDeltaNameConstant, "-", "", "", "RepositoryUnreadable: corrupt object database"},
	}, rows)
	for _, row := range rows {
		require.Len(testInstance, row, len(ui.WorktreeStatusTableHeaders))
	}
}

func TestWorktreeStatusRowsReportsConvergedWorktrees(testInstance *testing.T) {
	rows := ui.WorktreeStatusRows(reconcile.Report{
		Repositories: []reconcile.RepositoryReport{{
			Name: testAlphaNameConstant,
			State: reconcile.ActualRepositoryState{
				Exists:    true,
				Branches:  map[string]reconcile.BranchState{"feature": {Name: "feature", Upstream: "origin/feature"}},
				Worktrees: map[string]string{"feature": "feature"},
			},
		}},
	})
	require.Equal(testInstance, [][]string{{testAlphaNameConstant, "feature", "feature", "origin/feature", "up to date"}}, rows)
}

func TestFetchReportRowsAndSummary(testInstance *testing.T) {
	report := reconcile.FetchReport{
		Repositories: []reconcile.RepositoryFetchReport{
			{Name: testAlphaNameConstant, Path: "/srv/alpha", Outcome: reconcile.FetchOutcomeFetched},
			{Path: "/srv/beta", Outcome: reconcile.FetchOutcomeMissing},
			{
				Name:    testGammaNameConstant,
				Path:    "/srv/gamma",
				Outcome: reconcile.FetchOutcomeFailed,
				Error:   &reconcile.Error{Kind: reconcile.ErrorKindNetworkFailure, Detail: "could not resolve host"},
			},
		},
	}

	rows := ui.FetchReportRows(report)
	require.Equal(testInstance, [][]string{
		{testAlphaNameConstant, "fetched", ""},
		{"/srv/beta", "missing", ""},
		{testGammaNameConstant, "failed", "NetworkFailure: could not resolve host"},
	}, rows)
	for _, row := range rows {
		require.Len(testInstance, row, len(ui.FetchTableHeaders))
	}
	require.Equal(testInstance, "3 repositories, 1 fetched, 1 missing, 1 failed", ui.FetchSummaryLine(report))
}
