package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/temirov/reposync/internal/reconcile"
)

const (
	noWorktreesLabelConstant     = "no worktrees"
	fetchSummaryTemplateConstant = "%d repositories, %d fetched, %d missing, %d failed"
)

var (
	// WorktreeStatusTableHeaders labels the columns of WorktreeStatusRows.
	WorktreeStatusTableHeaders = []string{"REPOSITORY", "WORKTREE", "BRANCH", "UPSTREAM", "PENDING"}
	// FetchTableHeaders labels the columns of FetchReportRows.
	FetchTableHeaders = []string{"REPOSITORY", "OUTCOME", "DETAIL"}
)

type worktreeEntry struct {
	branch   string
	upstream string
	pending  []string
}

// WorktreeStatusRows lists one row per linked worktree, observed or still to be created, with the
// worktree and tracking actions a sync would apply to it.
func WorktreeStatusRows(report reconcile.Report) [][]string {
	var rows [][]string
	for _, repositoryReport := range report.Repositories {
		name := repositoryLabel(repositoryReport)
		switch {
		case repositoryReport.Error != nil:
			rows = append(rows, []string{name, noActionLabelConstant, "", "", describeError(repositoryReport.Error)})
			continue
		case !repositoryReport.State.Exists:
			rows = append(rows, []string{name, noActionLabelConstant, "", "", missingLabelConstant})
			continue
		}

		entries := worktreeEntries(repositoryReport)
		if len(entries) == 0 {
			rows = append(rows, []string{name, noActionLabelConstant, "", "", noWorktreesLabelConstant})
			continue
		}
		subdirectories := make([]string, 0, len(entries))
		for subdirectory := range entries {
			subdirectories = append(subdirectories, subdirectory)
		}
		slices.Sort(subdirectories)
		for _, subdirectory := range subdirectories {
			entry := entries[subdirectory]
			pending := upToDateLabelConstant
			if len(entry.pending) > 0 {
				pending = strings.Join(entry.pending, pendingActionsSeparatorConstant)
			}
			rows = append(rows, []string{name, subdirectory, entry.branch, entry.upstream, pending})
		}
	}
	return rows
}

func worktreeEntries(repositoryReport reconcile.RepositoryReport) map[string]*worktreeEntry {
	state := repositoryReport.State
	entries := make(map[string]*worktreeEntry, len(state.Worktrees))
	subdirectoryByBranch := make(map[string]string, len(state.Worktrees))
	for subdirectory, branch := range state.Worktrees {
		entries[subdirectory] = &worktreeEntry{branch: branch, upstream: state.Branches[branch].Upstream}
		subdirectoryByBranch[branch] = subdirectory
	}

	for _, action := range repositoryReport.Plan {
		switch typed := action.(type) {
		case reconcile.CreateWorktreeAction:
			if entry, found := entries[typed.Subdirectory]; found {
				entry.pending = append(entry.pending, typed.String())
			} else {
				entries[typed.Subdirectory] = &worktreeEntry{branch: typed.Branch, pending: []string{typed.String()}}
			}
			subdirectoryByBranch[typed.Branch] = typed.Subdirectory
		case reconcile.RemoveWorktreeAction:
			if entry, found := entries[typed.Subdirectory]; found {
				entry.pending = append(entry.pending, typed.String())
			}
		}
	}
	for _, action := range repositoryReport.Plan {
		tracking, isTracking := action.(reconcile.SetTrackingBranchAction)
		if !isTracking {
			continue
		}
		if entry, found := entries[subdirectoryByBranch[tracking.Branch]]; found {
			entry.pending = append(entry.pending, tracking.String())
		}
	}
	return entries
}

// FetchReportRows lists one row per repository of a fetch pass.
func FetchReportRows(report reconcile.FetchReport) [][]string {
	rows := make([][]string, 0, len(report.Repositories))
	for _, repositoryReport := range report.Repositories {
		name := repositoryReport.Name
		if len(name) == 0 {
			name = repositoryReport.Path
		}
		detail := ""
		if repositoryReport.Error != nil {
			detail = describeError(repositoryReport.Error)
		}
		rows = append(rows, []string{name, string(repositoryReport.Outcome), detail})
	}
	return rows
}

// FetchSummaryLine counts fetch outcomes. Cancelled repositories count as failed.
func FetchSummaryLine(report reconcile.FetchReport) string {
	fetched, missing := 0, 0
	for _, repositoryReport := range report.Repositories {
		switch repositoryReport.Outcome {
		case reconcile.FetchOutcomeFetched:
			fetched++
		case reconcile.FetchOutcomeMissing:
			missing++
		}
	}
	return fmt.Sprintf(fetchSummaryTemplateConstant, len(report.Repositories), fetched, missing, report.FailureCount())
}
