package shared

import (
	"fmt"
	"strings"
)

const (
	invalidValueErrorTemplateConstant = "invalid %s %q: %s"
	emptyValueReasonConstant          = "value is required"
	whitespaceReasonConstant          = "must not contain whitespace"
	slashReasonConstant               = "must not contain '/'"
	leadingDashReasonConstant         = "must not start with '-'"
	branchNameReasonConstant          = "is not a valid branch name"
	unknownProtocolReasonConstant     = "expected git, ssh or https"
	ownerFieldConstant                = "owner"
	repositoryNameFieldConstant       = "repository name"
	remoteURLFieldConstant            = "remote url"
	remoteNameFieldConstant           = "remote name"
	branchNameFieldConstant           = "branch name"
	remoteProtocolFieldConstant       = "remote protocol"
	pathSegmentSeparatorConstant      = "/"
	lockSuffixConstant                = ".lock"
)

var forbiddenBranchSequences = []string{"..", "@{", "~", "^", ":", "?", "*", "[", "\\", "//"}

// InvalidValueError reports a value that failed validation.
type InvalidValueError struct {
	Field  string
	Value  string
	Reason string
}

// Error describes the invalid value.
func (invalidError InvalidValueError) Error() string {
	return fmt.Sprintf(invalidValueErrorTemplateConstant, invalidError.Field, invalidError.Value, invalidError.Reason)
}

// OwnerSlug names a provider account or organization.
type OwnerSlug string

// NewOwnerSlug validates an owner slug.
func NewOwnerSlug(raw string) (OwnerSlug, error) {
	trimmed, validationError := requireSingleSegment(ownerFieldConstant, raw)
	if validationError != nil {
		return "", validationError
	}
	return OwnerSlug(trimmed), nil
}

func (value OwnerSlug) String() string { return string(value) }

// RepositoryName names a repository inside a tree or an owner.
type RepositoryName string

// NewRepositoryName validates a repository name.
func NewRepositoryName(raw string) (RepositoryName, error) {
	trimmed, validationError := requireSingleSegment(repositoryNameFieldConstant, raw)
	if validationError != nil {
		return "", validationError
	}
	return RepositoryName(trimmed), nil
}

func (value RepositoryName) String() string { return string(value) }

// RemoteURL is a non-empty remote location.
type RemoteURL string

// NewRemoteURL validates a remote URL.
func NewRemoteURL(raw string) (RemoteURL, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", InvalidValueError{Field: remoteURLFieldConstant, Value: raw, Reason: emptyValueReasonConstant}
	}
	if strings.ContainsAny(trimmed, " \t\n\r") {
		return "", InvalidValueError{Field: remoteURLFieldConstant, Value: raw, Reason: whitespaceReasonConstant}
	}
	return RemoteURL(trimmed), nil
}

func (value RemoteURL) String() string { return string(value) }

// RemoteName names a git remote.
type RemoteName string

// NewRemoteName validates a remote name.
func NewRemoteName(raw string) (RemoteName, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", InvalidValueError{Field: remoteNameFieldConstant, Value: raw, Reason: emptyValueReasonConstant}
	}
	if strings.ContainsAny(trimmed, " \t\n\r") {
		return "", InvalidValueError{Field: remoteNameFieldConstant, Value: raw, Reason: whitespaceReasonConstant}
	}
	if strings.HasPrefix(trimmed, "-") {
		return "", InvalidValueError{Field: remoteNameFieldConstant, Value: raw, Reason: leadingDashReasonConstant}
	}
	return RemoteName(trimmed), nil
}

func (value RemoteName) String() string { return string(value) }

// BranchName names a local branch using the subset of git ref rules that matter for configuration.
type BranchName string

// NewBranchName validates a branch name.
func NewBranchName(raw string) (BranchName, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", InvalidValueError{Field: branchNameFieldConstant, Value: raw, Reason: emptyValueReasonConstant}
	}
	if strings.ContainsAny(trimmed, " \t\n\r") {
		return "", InvalidValueError{Field: branchNameFieldConstant, Value: raw, Reason: whitespaceReasonConstant}
	}
	if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "/") || strings.HasSuffix(trimmed, "/") ||
		strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, lockSuffixConstant) {
		return "", InvalidValueError{Field: branchNameFieldConstant, Value: raw, Reason: branchNameReasonConstant}
	}
	for _, sequence := range forbiddenBranchSequences {
		if strings.Contains(trimmed, sequence) {
			return "", InvalidValueError{Field: branchNameFieldConstant, Value: raw, Reason: branchNameReasonConstant}
		}
	}
	return BranchName(trimmed), nil
}

func (value BranchName) String() string { return string(value) }

// ParseRemoteProtocol parses a protocol name. An empty value yields RemoteProtocolOther.
func ParseRemoteProtocol(raw string) (RemoteProtocol, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if len(trimmed) == 0 {
		return RemoteProtocolOther, nil
	}
	protocol := RemoteProtocol(trimmed)
	if validationError := protocol.Validate(); validationError != nil {
		return "", validationError
	}
	return protocol, nil
}

// Validate reports whether the protocol is supported.
func (protocol RemoteProtocol) Validate() error {
	switch protocol {
	case RemoteProtocolGit, RemoteProtocolSSH, RemoteProtocolHTTPS, RemoteProtocolOther:
		return nil
	default:
		return InvalidValueError{Field: remoteProtocolFieldConstant, Value: string(protocol), Reason: unknownProtocolReasonConstant}
	}
}

func requireSingleSegment(field string, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", InvalidValueError{Field: field, Value: raw, Reason: emptyValueReasonConstant}
	}
	if strings.Contains(trimmed, pathSegmentSeparatorConstant) {
		return "", InvalidValueError{Field: field, Value: raw, Reason: slashReasonConstant}
	}
	if strings.ContainsAny(trimmed, " \t\n\r") {
		return "", InvalidValueError{Field: field, Value: raw, Reason: whitespaceReasonConstant}
	}
	return trimmed, nil
}
