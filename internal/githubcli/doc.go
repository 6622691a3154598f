// Package githubcli lists provider repositories through the GitHub CLI.
//
// Requests go through execshell so gh invocations are logged like every git command and can be
// scripted in tests. Results are exposed as an iterator implementing shared.RemoteRepositoryLister.
package githubcli
