package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/temirov/reposync/internal/reconcile"
)

const (
	noActionLabelConstant           = "-"
	upToDateLabelConstant           = "up to date"
	cancelledLabelConstant          = "cancelled"
	failedLabelConstant             = "failed"
	missingLabelConstant            = "missing"
	presentLabelConstant            = "yes"
	unreadableLabelConstant         = "unreadable"
	cellPaddingConstant             = 2
	summaryTemplateConstant         = "%d repositories, %d failed"
	summaryCountTemplateConstant    = ", %d %s"
	dryRunSummarySuffixConstant     = " (dry run)"
	pendingActionsSeparatorConstant = "; "
	shortCommitLengthConstant       = 7
	hexadecimalDigitsConstant       = "0123456789abcdef"
	fullCommitLengthConstant        = 40
	errorDetailSeparatorConstant    = ": "
)

var (
	// SyncTableHeaders labels the columns of SyncReportRows.
	SyncTableHeaders = []string{"REPOSITORY", "ACTION", "OUTCOME", "DETAIL"}
	// StatusTableHeaders labels the columns of StatusReportRows.
	StatusTableHeaders = []string{"REPOSITORY", "EXISTS", "HEAD", "REMOTES", "WORKTREES", "PENDING"}

	summaryOutcomeOrder = []reconcile.ActionOutcome{
		reconcile.ActionOutcomeSucceeded,
		reconcile.ActionOutcomeFailed,
		reconcile.ActionOutcomeSkipped,
		reconcile.ActionOutcomePlanned,
	}
)

// SyncReportRows lists one row per action result. Repositories without results get a single row
// saying they are up to date, cancelled or failed before planning.
func SyncReportRows(report reconcile.Report) [][]string {
	var rows [][]string
	for _, repositoryReport := range report.Repositories {
		name := repositoryLabel(repositoryReport)
		if len(repositoryReport.Results) == 0 {
			rows = append(rows, repositoryOnlyRow(name, repositoryReport))
			continue
		}
		for _, result := range repositoryReport.Results {
			detail := ""
			if result.Error != nil {
				detail = describeError(result.Error)
			}
			rows = append(rows, []string{name, result.Action.String(), string(result.Outcome), detail})
		}
	}
	return rows
}

func repositoryOnlyRow(name string, repositoryReport reconcile.RepositoryReport) []string {
	switch {
	case repositoryReport.Cancelled:
		return []string{name, noActionLabelConstant, cancelledLabelConstant, ""}
	case repositoryReport.Error != nil:
		return []string{name, noActionLabelConstant, failedLabelConstant, describeError(repositoryReport.Error)}
	default:
		return []string{name, noActionLabelConstant, upToDateLabelConstant, ""}
	}
}

// StatusReportRows lists one row per repository describing its observed state and pending actions.
func StatusReportRows(report reconcile.Report) [][]string {
	rows := make([][]string, 0, len(report.Repositories))
	for _, repositoryReport := range report.Repositories {
		name := repositoryLabel(repositoryReport)
		if repositoryReport.Error != nil && repositoryReport.Error.Kind == reconcile.ErrorKindRepositoryUnreadable {
			rows = append(rows, []string{name, unreadableLabelConstant, "", "", "", describeError(repositoryReport.Error)})
			continue
		}

		exists := missingLabelConstant
		if repositoryReport.State.Exists {
			exists = presentLabelConstant
		}
		pending := make([]string, 0, len(repositoryReport.Plan))
		for _, action := range repositoryReport.Plan {
			pending = append(pending, action.String())
		}
		switch {
		case repositoryReport.Error != nil:
			pending = []string{describeError(repositoryReport.Error)}
		case len(pending) == 0:
			pending = append(pending, upToDateLabelConstant)
		}
		rows = append(rows, []string{
			name,
			exists,
			shortHead(repositoryReport.State.Head),
			strconv.Itoa(len(repositoryReport.State.Remotes)),
			strconv.Itoa(len(repositoryReport.State.Worktrees)),
			strings.Join(pending, pendingActionsSeparatorConstant),
		})
	}
	return rows
}

// SummaryLine counts failed repositories and action outcomes.
func SummaryLine(report reconcile.Report) string {
	var summary strings.Builder
	summary.WriteString(fmt.Sprintf(summaryTemplateConstant, len(report.Repositories), report.FailureCount()))
	counts := report.ActionCounts()
	for _, outcome := range summaryOutcomeOrder {
		if counts[outcome] > 0 {
			summary.WriteString(fmt.Sprintf(summaryCountTemplateConstant, counts[outcome], outcome))
		}
	}
	if report.DryRun {
		summary.WriteString(dryRunSummarySuffixConstant)
	}
	return summary.String()
}

// RenderTable writes a borderless table with bold headers. Nothing is written for empty rows.
func RenderTable(writer io.Writer, headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	renderedTable := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row int, column int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).PaddingRight(cellPaddingConstant)
			}
			return lipgloss.NewStyle().PaddingRight(cellPaddingConstant)
		})

	_, writeError := fmt.Fprintln(writer, renderedTable.String())
	return writeError
}

func describeError(failure *reconcile.Error) string {
	return string(failure.Kind) + errorDetailSeparatorConstant + failure.Detail
}

func repositoryLabel(repositoryReport reconcile.RepositoryReport) string {
	if len(repositoryReport.Name) > 0 {
		return repositoryReport.Name
	}
	return repositoryReport.Path
}

// shortHead abbreviates a detached commit id and leaves branch names alone.
func shortHead(head string) string {
	if len(head) != fullCommitLengthConstant {
		return head
	}
	for _, character := range head {
		if !strings.ContainsRune(hexadecimalDigitsConstant, character) {
			return head
		}
	}
	return head[:shortCommitLengthConstant]
}
