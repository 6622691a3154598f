package shared

import (
	"context"
	"io/fs"
	"iter"

	"github.com/temirov/reposync/internal/execshell"
)

const (
	// OriginRemoteNameConstant identifies the default upstream remote.
	OriginRemoteNameConstant = "origin"
	// GitHubProviderNameConstant identifies the GitHub repository provider.
	GitHubProviderNameConstant = "github"
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolGit   RemoteProtocol = "git"
	RemoteProtocolSSH   RemoteProtocol = "ssh"
	RemoteProtocolHTTPS RemoteProtocol = "https"
	RemoteProtocolOther RemoteProtocol = "other"
)

// RemoteType classifies a remote URL by transport.
type RemoteType string

// Known remote types.
const (
	RemoteTypeFile  RemoteType = "file"
	RemoteTypeHTTPS RemoteType = "https"
	RemoteTypeSSH   RemoteType = "ssh"
)

// FileSystem exposes filesystem operations required by repository services.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Lstat(path string) (fs.FileInfo, error)
	Abs(path string) (string, error)
	MkdirAll(path string, permissions fs.FileMode) error
	ReadDir(path string) ([]fs.DirEntry, error)
	RemoveAll(path string) error
	ReadFile(path string) ([]byte, error)
}

// GitExecutor exposes the subset of shell execution used by repository services.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryDiscoverer locates Git repositories for bulk operations.
type RepositoryDiscoverer interface {
	DiscoverRepositories(roots []string) ([]string, error)
}

// RemoteRepositoryDescriptor describes one repository published by a provider.
type RemoteRepositoryDescriptor struct {
	Name          string
	CloneURL      string
	SSHURL        string
	DefaultBranch string
	Archived      bool
	Fork          bool
}

// ProviderParameters selects the repositories a provider lists.
type ProviderParameters struct {
	Owner           OwnerSlug
	OwnerType       OwnerType
	IncludeArchived bool
	IncludeForks    bool
}

// RemoteRepositoryLister lists repositories published by a provider, page by page, as a stream.
type RemoteRepositoryLister interface {
	ListRepositories(executionContext context.Context, parameters ProviderParameters) iter.Seq2[RemoteRepositoryDescriptor, error]
}
