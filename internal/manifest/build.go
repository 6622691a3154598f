package manifest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/temirov/reposync/internal/gitrepo"
	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/repos/shared"
	pathutils "github.com/temirov/reposync/internal/utils/path"
)

const (
	listerNotConfiguredMessageConstant  = "repository provider not configured"
	providerErrorTemplateConstant       = "provider %s for %s: %v"
	rootResolutionErrorTemplateConstant = "resolve tree root %s: %w"
)

// ErrListerNotConfigured indicates a manifest declares providers but no lister was supplied.
var ErrListerNotConfigured = errors.New(listerNotConfiguredMessageConstant)

// ProviderError wraps a failure to import repositories from a provider.
type ProviderError struct {
	Provider string
	Owner    string
	Cause    error
}

// Error describes the provider failure.
func (providerError ProviderError) Error() string {
	return fmt.Sprintf(providerErrorTemplateConstant, providerError.Provider, providerError.Owner, providerError.Cause)
}

// Unwrap exposes the underlying cause.
func (providerError ProviderError) Unwrap() error {
	return providerError.Cause
}

// Builder expands manifests into reconciliation input.
type Builder struct {
	Lister       shared.RemoteRepositoryLister
	HomeExpander *pathutils.HomeExpander
}

// Build validates the manifest and returns one RepositoryConfig per repository, in manifest order.
// Provider imports follow the explicit repositories of their tree, sorted by name; a repository
// listed explicitly wins over an imported one with the same name.
func (builder Builder) Build(executionContext context.Context, manifest Manifest) ([]reconcile.RepositoryConfig, error) {
	if validationError := Validate(manifest); validationError != nil {
		return nil, validationError
	}

	var configs []reconcile.RepositoryConfig
	for _, tree := range manifest.Trees {
		root, rootError := builder.ResolveRoot(tree.Root)
		if rootError != nil {
			return nil, rootError
		}
		treePolicy, _ := shared.ParseWorktreePolicy(tree.WorktreePolicy)

		repositories := slices.Clone(tree.Repositories)
		explicitNames := make(map[string]struct{}, len(repositories))
		for _, repository := range repositories {
			explicitNames[strings.TrimSpace(repository.Name)] = struct{}{}
		}
		for _, provider := range tree.Providers {
			imported, importError := builder.ImportProvider(executionContext, provider)
			if importError != nil {
				return nil, importError
			}
			for _, repository := range imported {
				if _, explicit := explicitNames[repository.Name]; explicit {
					continue
				}
				explicitNames[repository.Name] = struct{}{}
				repositories = append(repositories, repository)
			}
		}

		for _, repository := range repositories {
			configs = append(configs, repositoryConfig(root, treePolicy, repository))
		}
	}
	return configs, nil
}

// ResolveRoot expands the home directory in a tree root and makes it absolute.
func (builder Builder) ResolveRoot(root string) (string, error) {
	expandedRoot := builder.HomeExpander.Expand(strings.TrimSpace(root))
	absoluteRoot, absoluteError := filepath.Abs(expandedRoot)
	if absoluteError != nil {
		return "", fmt.Errorf(rootResolutionErrorTemplateConstant, root, absoluteError)
	}
	return absoluteRoot, nil
}

// Roots returns the resolved root of every tree.
func (builder Builder) Roots(manifest Manifest) ([]string, error) {
	roots := make([]string, 0, len(manifest.Trees))
	for _, tree := range manifest.Trees {
		root, rootError := builder.ResolveRoot(tree.Root)
		if rootError != nil {
			return nil, rootError
		}
		roots = append(roots, root)
	}
	return roots, nil
}

// ImportProvider lists a provider's repositories as manifest entries sorted by name.
func (builder Builder) ImportProvider(executionContext context.Context, provider Provider) ([]Repository, error) {
	github, parametersError := providerParameters(provider)
	if parametersError != nil {
		return nil, parametersError
	}
	if builder.Lister == nil {
		return nil, ErrListerNotConfigured
	}

	var repositories []Repository
	for descriptor, listError := range builder.Lister.ListRepositories(executionContext, github.parameters) {
		if listError != nil {
			return nil, ProviderError{Provider: shared.GitHubProviderNameConstant, Owner: github.parameters.Owner.String(), Cause: listError}
		}
		remoteURL, urlError := selectRemoteURL(descriptor, github.protocol)
		if urlError != nil {
			return nil, ProviderError{Provider: shared.GitHubProviderNameConstant, Owner: github.parameters.Owner.String(), Cause: urlError}
		}
		repositories = append(repositories, Repository{
			Name:          descriptor.Name,
			DefaultBranch: descriptor.DefaultBranch,
			Remotes:       []Remote{{Name: github.remoteName, URL: remoteURL}},
		})
	}

	slices.SortStableFunc(repositories, func(first Repository, second Repository) int {
		return cmp.Compare(first.Name, second.Name)
	})
	return repositories, nil
}

// selectRemoteURL picks the descriptor URL for the protocol, converting the other URL when the
// provider did not publish one. Unspecified protocols select https.
func selectRemoteURL(descriptor shared.RemoteRepositoryDescriptor, protocol shared.RemoteProtocol) (string, error) {
	if protocol == shared.RemoteProtocolOther {
		protocol = shared.RemoteProtocolHTTPS
	}
	preferredURL, fallbackURL := descriptor.CloneURL, descriptor.SSHURL
	if protocol != shared.RemoteProtocolHTTPS {
		preferredURL, fallbackURL = descriptor.SSHURL, descriptor.CloneURL
	}
	if len(strings.TrimSpace(preferredURL)) > 0 {
		return preferredURL, nil
	}

	return gitrepo.ConvertRemoteURL(fallbackURL, protocol)
}

func repositoryConfig(root string, treePolicy shared.WorktreePolicy, repository Repository) reconcile.RepositoryConfig {
	name := strings.TrimSpace(repository.Name)
	policy := treePolicy
	if len(strings.TrimSpace(repository.WorktreePolicy)) > 0 {
		policy, _ = shared.ParseWorktreePolicy(repository.WorktreePolicy)
	}

	config := reconcile.RepositoryConfig{
		Name:           name,
		Path:           filepath.Join(root, filepath.FromSlash(name)),
		WorktreePolicy: policy,
		DefaultBranch:  strings.TrimSpace(repository.DefaultBranch),
	}
	for _, remote := range repository.Remotes {
		fetchPolicy := reconcile.FetchOnAdd
		if remote.SkipFetch {
			fetchPolicy = reconcile.FetchManual
		}
		config.Remotes = append(config.Remotes, reconcile.Remote{
			Name:  strings.TrimSpace(remote.Name),
			URL:   strings.TrimSpace(remote.URL),
			Fetch: fetchPolicy,
		})
	}
	for _, worktree := range repository.Worktrees {
		subdirectory := strings.TrimSpace(worktree.Path)
		if len(subdirectory) == 0 {
			subdirectory = strings.TrimSpace(worktree.Branch)
		}
		config.Worktrees = append(config.Worktrees, reconcile.WorktreeSpec{
			Branch:            strings.TrimSpace(worktree.Branch),
			Subdirectory:      subdirectory,
			TrackingReference: strings.TrimSpace(worktree.Track),
		})
	}
	return config
}
