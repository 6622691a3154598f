package reconcile

// ActionOutcome is the result state of one planned action.
type ActionOutcome string

// Action outcomes.
const (
	ActionOutcomeSucceeded ActionOutcome = "succeeded"
	ActionOutcomeFailed    ActionOutcome = "failed"
	ActionOutcomeSkipped   ActionOutcome = "skipped"
	ActionOutcomePlanned   ActionOutcome = "planned"
)

// ActionResult is the outcome of one PlannedAction. Error is set only for failed actions.
type ActionResult struct {
	Action  PlannedAction
	Outcome ActionOutcome
	Error   *Error
}

// RepositoryReport aggregates the plan and outcomes of one repository.
// State is the snapshot the plan was built from, zero when it could not be read.
// Error is set when the repository could not be planned or when its plan stopped on a failure.
type RepositoryReport struct {
	Name      string
	Path      string
	State     ActualRepositoryState
	Plan      []PlannedAction
	Results   []ActionResult
	Error     *Error
	Cancelled bool
}

// Succeeded reports whether the repository converged without failure in this pass.
func (report RepositoryReport) Succeeded() bool {
	if report.Error != nil || report.Cancelled {
		return false
	}
	for _, result := range report.Results {
		if result.Outcome == ActionOutcomeFailed || result.Outcome == ActionOutcomeSkipped {
			return false
		}
	}
	return true
}

// FailedResult returns the failed action result, if any.
func (report RepositoryReport) FailedResult() (ActionResult, bool) {
	for _, result := range report.Results {
		if result.Outcome == ActionOutcomeFailed {
			return result, true
		}
	}
	return ActionResult{}, false
}

// Report aggregates every repository of one reconciliation pass in configuration order.
type Report struct {
	Repositories []RepositoryReport
	DryRun       bool
}

// Succeeded reports whether every planned action of every repository succeeded.
func (report Report) Succeeded() bool {
	for _, repositoryReport := range report.Repositories {
		if !repositoryReport.Succeeded() {
			return false
		}
	}
	return true
}

// FailureCount returns the number of repositories that did not succeed.
func (report Report) FailureCount() int {
	failures := 0
	for _, repositoryReport := range report.Repositories {
		if !repositoryReport.Succeeded() {
			failures++
		}
	}
	return failures
}

// ActionCounts tallies action outcomes across every repository.
func (report Report) ActionCounts() map[ActionOutcome]int {
	counts := make(map[ActionOutcome]int)
	for _, repositoryReport := range report.Repositories {
		for _, result := range repositoryReport.Results {
			counts[result.Outcome]++
		}
	}
	return counts
}
