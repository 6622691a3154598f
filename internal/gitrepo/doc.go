// Package gitrepo contains helpers for interrogating and manipulating Git repositories.
//
// RepositoryManager reads the actual state of a repository and applies
// reconciliation actions by running the git CLI through execshell. Failures
// are classified from git's standard error into the reconcile failure kinds.
// The package also parses and formats remote URLs.
package gitrepo
