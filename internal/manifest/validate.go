package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/temirov/reposync/internal/repos/shared"
)

const (
	validationErrorTemplateConstant              = "invalid manifest: %s"
	validationProblemSeparatorConstant           = "; "
	locationProblemTemplateConstant              = "%s: %v"
	treeLocationTemplateConstant                 = "trees[%d]"
	repositoryLocationTemplateConstant           = "%s.repositories[%d]"
	remoteLocationTemplateConstant               = "%s.remotes[%d]"
	worktreeLocationTemplateConstant             = "%s.worktrees[%d]"
	providerLocationTemplateConstant             = "%s.providers[%d]"
	rootRequiredMessageConstant                  = "root is required"
	unsupportedProviderTemplateConstant          = "unsupported provider %q (expected github)"
	unsupportedRemoteTypeTemplateConstant        = "unsupported remote type %q (expected file, https or ssh)"
	invalidTrackingReferenceTemplateConstant     = "track %q must name a remote branch such as origin/main"
	qualifiedTrackingReferenceTemplateConstant   = "track %q must use the short form remote/branch, such as origin/main"
	undeclaredTrackingRemoteTemplateConstant     = "track %q names remote %q, which the repository does not declare"
	fullReferencePrefixConstant                  = "refs"
	remoteReferencePrefixConstant                = "remotes"
	invalidRepositoryNameSegmentTemplateConstant = "repository name %q must not contain . or .. segments"
	providerOptionsDecodeTemplateConstant        = "provider options: %w"
	repositoryNamePathSeparatorConstant          = "/"
	currentDirectorySegmentConstant              = "."
	parentDirectorySegmentConstant               = ".."
)

// ValidationError lists every problem found in a manifest.
type ValidationError struct {
	Problems []string
}

// Error describes the problems.
func (validationError ValidationError) Error() string {
	return fmt.Sprintf(validationErrorTemplateConstant, strings.Join(validationError.Problems, validationProblemSeparatorConstant))
}

type problemCollector struct {
	problems []string
}

func (collector *problemCollector) add(location string, problem error) {
	if problem == nil {
		return
	}
	collector.problems = append(collector.problems, fmt.Sprintf(locationProblemTemplateConstant, location, problem))
}

// Validate checks every field that can be checked without touching disk or providers. Ambiguity
// between entries, such as two worktrees sharing a path, is left to planning.
func Validate(manifest Manifest) error {
	collector := &problemCollector{}
	for treeIndex, tree := range manifest.Trees {
		treeLocation := fmt.Sprintf(treeLocationTemplateConstant, treeIndex)
		if len(strings.TrimSpace(tree.Root)) == 0 {
			collector.add(treeLocation, errors.New(rootRequiredMessageConstant))
		}
		_, policyError := shared.ParseWorktreePolicy(tree.WorktreePolicy)
		collector.add(treeLocation, policyError)

		for repositoryIndex, repository := range tree.Repositories {
			validateRepository(collector, fmt.Sprintf(repositoryLocationTemplateConstant, treeLocation, repositoryIndex), repository)
		}
		for providerIndex, provider := range tree.Providers {
			_, providerError := providerParameters(provider)
			collector.add(fmt.Sprintf(providerLocationTemplateConstant, treeLocation, providerIndex), providerError)
		}
	}

	if len(collector.problems) > 0 {
		return ValidationError{Problems: collector.problems}
	}
	return nil
}

func validateRepository(collector *problemCollector, location string, repository Repository) {
	collector.add(location, validateRepositoryName(repository.Name))
	if len(strings.TrimSpace(repository.DefaultBranch)) > 0 {
		_, branchError := shared.NewBranchName(repository.DefaultBranch)
		collector.add(location, branchError)
	}
	_, policyError := shared.ParseWorktreePolicy(repository.WorktreePolicy)
	collector.add(location, policyError)

	for remoteIndex, remote := range repository.Remotes {
		remoteLocation := fmt.Sprintf(remoteLocationTemplateConstant, location, remoteIndex)
		_, nameError := shared.NewRemoteName(remote.Name)
		collector.add(remoteLocation, nameError)
		_, urlError := shared.NewRemoteURL(remote.URL)
		collector.add(remoteLocation, urlError)
		collector.add(remoteLocation, validateRemoteType(remote.Type))
	}

	declaredRemotes := make(map[string]struct{}, len(repository.Remotes))
	for _, remote := range repository.Remotes {
		declaredRemotes[strings.TrimSpace(remote.Name)] = struct{}{}
	}
	for worktreeIndex, worktree := range repository.Worktrees {
		worktreeLocation := fmt.Sprintf(worktreeLocationTemplateConstant, location, worktreeIndex)
		_, branchError := shared.NewBranchName(worktree.Branch)
		collector.add(worktreeLocation, branchError)
		collector.add(worktreeLocation, validateTrackingReference(worktree.Track, declaredRemotes))
	}
}

// validateRepositoryName accepts nested names such as group/service, validating each segment.
func validateRepositoryName(name string) error {
	for _, segment := range strings.Split(strings.TrimSpace(name), repositoryNamePathSeparatorConstant) {
		if segment == currentDirectorySegmentConstant || segment == parentDirectorySegmentConstant {
			return fmt.Errorf(invalidRepositoryNameSegmentTemplateConstant, name)
		}
		if _, segmentError := shared.NewRepositoryName(segment); segmentError != nil {
			return segmentError
		}
	}
	return nil
}

func validateRemoteType(remoteType string) error {
	switch shared.RemoteType(strings.TrimSpace(remoteType)) {
	case "", shared.RemoteTypeFile, shared.RemoteTypeHTTPS, shared.RemoteTypeSSH:
		return nil
	default:
		return fmt.Errorf(unsupportedRemoteTypeTemplateConstant, remoteType)
	}
}

// validateTrackingReference requires the short remote/branch form that git reports upstreams in,
// naming a remote the repository declares.
func validateTrackingReference(reference string, declaredRemotes map[string]struct{}) error {
	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return nil
	}
	remoteName, branchName, found := strings.Cut(trimmedReference, repositoryNamePathSeparatorConstant)
	if !found {
		return fmt.Errorf(invalidTrackingReferenceTemplateConstant, reference)
	}
	if remoteName == fullReferencePrefixConstant || remoteName == remoteReferencePrefixConstant {
		if _, declared := declaredRemotes[remoteName]; !declared {
			return fmt.Errorf(qualifiedTrackingReferenceTemplateConstant, reference)
		}
	}
	if _, nameError := shared.NewRemoteName(remoteName); nameError != nil {
		return fmt.Errorf(invalidTrackingReferenceTemplateConstant, reference)
	}
	if _, branchError := shared.NewBranchName(branchName); branchError != nil {
		return fmt.Errorf(invalidTrackingReferenceTemplateConstant, reference)
	}
	if _, declared := declaredRemotes[remoteName]; !declared {
		return fmt.Errorf(undeclaredTrackingRemoteTemplateConstant, reference, remoteName)
	}
	return nil
}

// githubProvider carries validated github provider options.
type githubProvider struct {
	parameters shared.ProviderParameters
	protocol   shared.RemoteProtocol
	remoteName string
}

// providerParameters decodes and validates a provider block.
func providerParameters(provider Provider) (githubProvider, error) {
	if !strings.EqualFold(strings.TrimSpace(provider.Name), shared.GitHubProviderNameConstant) {
		return githubProvider{}, fmt.Errorf(unsupportedProviderTemplateConstant, provider.Name)
	}

	var options GitHubProviderOptions
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &options,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if decoderError != nil {
		return githubProvider{}, decoderError
	}
	if decodeError := decoder.Decode(provider.With); decodeError != nil {
		return githubProvider{}, fmt.Errorf(providerOptionsDecodeTemplateConstant, decodeError)
	}

	owner, ownerError := shared.NewOwnerSlug(options.Owner)
	if ownerError != nil {
		return githubProvider{}, ownerError
	}
	ownerType, ownerTypeError := shared.ParseOwnerType(options.OwnerType)
	if ownerTypeError != nil {
		return githubProvider{}, ownerTypeError
	}
	protocol, protocolError := shared.ParseRemoteProtocol(options.Protocol)
	if protocolError != nil {
		return githubProvider{}, protocolError
	}
	remoteName := shared.OriginRemoteNameConstant
	if len(strings.TrimSpace(options.RemoteName)) > 0 {
		validatedName, nameError := shared.NewRemoteName(options.RemoteName)
		if nameError != nil {
			return githubProvider{}, nameError
		}
		remoteName = validatedName.String()
	}

	return githubProvider{
		parameters: shared.ProviderParameters{
			Owner:           owner,
			OwnerType:       ownerType,
			IncludeArchived: options.IncludeArchived,
			IncludeForks:    options.IncludeForks,
		},
		protocol:   protocol,
		remoteName: remoteName,
	}, nil
}
