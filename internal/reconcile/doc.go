// Package reconcile converges configured git repositories toward their desired state.
//
// For each RepositoryConfig the Engine reads the actual on-disk state through a
// StateReader, derives an ordered plan with BuildPlan and applies it through an
// ActionExecutor bound to a Backend. Repositories are independent units of
// work: they may run in parallel, and a failure in one never affects another.
// Within a repository the plan runs strictly in order and halts on the first
// failed action.
package reconcile
