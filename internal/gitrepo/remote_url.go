package gitrepo

import (
	"fmt"
	"strings"

	"github.com/temirov/reposync/internal/repos/shared"
)

const (
	sshSchemeConstant                   = "ssh://"
	httpsSchemeConstant                 = "https://"
	httpSchemeConstant                  = "http://"
	fileSchemeConstant                  = "file://"
	schemeSeparatorConstant             = "://"
	scpUserSeparatorConstant            = "@"
	scpPathSeparatorConstant            = ":"
	urlPathSeparatorConstant            = "/"
	gitSuffixConstant                   = ".git"
	defaultSSHUserConstant              = "git"
	sshRemoteTemplateConstant           = "%s@%s:%s/%s.git"
	httpsRemoteTemplateConstant         = "https://%s/%s/%s.git"
	remoteURLParseErrorTemplateConstant = "cannot interpret remote %q: %s"
	notHostedRemoteReasonConstant       = "expected an ssh or https remote on a hosted provider"
	missingSegmentReasonConstant        = "expected host, owner and repository"
	emptyRemoteReasonConstant           = "value is required"
	unknownTransportReasonConstant      = "unknown transport"
	unsupportedProtocolTemplateConstant = "cannot format remotes for protocol %q"
)

// RemoteURL is a remote hosted at Host under Owner/Repository.
type RemoteURL struct {
	Protocol   shared.RemoteProtocol
	User       string
	Host       string
	Owner      string
	Repository string
}

// RemoteURLParseError reports a remote string that does not name a hosted repository.
type RemoteURLParseError struct {
	Input  string
	Reason string
}

func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Reason)
}

// UnsupportedProtocolError reports a protocol that has no hosted URL form.
type UnsupportedProtocolError struct {
	Protocol shared.RemoteProtocol
}

func (protocolError UnsupportedProtocolError) Error() string {
	return fmt.Sprintf(unsupportedProtocolTemplateConstant, protocolError.Protocol)
}

// ParseRemoteURL recognizes https://host/owner/repo, ssh://user@host/owner/repo and user@host:owner/repo.
// A trailing .git suffix is optional.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmed := strings.TrimSpace(remote)
	if len(trimmed) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Reason: emptyRemoteReasonConstant}
	}

	var parsed RemoteURL
	var location string
	switch {
	case strings.HasPrefix(trimmed, httpsSchemeConstant):
		parsed.Protocol = shared.RemoteProtocolHTTPS
		location = strings.TrimPrefix(trimmed, httpsSchemeConstant)
	case strings.HasPrefix(trimmed, sshSchemeConstant):
		parsed.Protocol = shared.RemoteProtocolSSH
		parsed.User, location = splitUser(strings.TrimPrefix(trimmed, sshSchemeConstant))
	case !strings.Contains(trimmed, schemeSeparatorConstant) && strings.Contains(trimmed, scpUserSeparatorConstant):
		parsed.Protocol = shared.RemoteProtocolSSH
		parsed.User, location = splitUser(trimmed)
		location = strings.Replace(location, scpPathSeparatorConstant, urlPathSeparatorConstant, 1)
	default:
		return RemoteURL{}, RemoteURLParseError{Input: remote, Reason: notHostedRemoteReasonConstant}
	}

	segments := strings.Split(strings.Trim(location, urlPathSeparatorConstant), urlPathSeparatorConstant)
	if len(segments) != 3 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Reason: missingSegmentReasonConstant}
	}
	parsed.Host = segments[0]
	parsed.Owner = segments[1]
	parsed.Repository = strings.TrimSuffix(segments[2], gitSuffixConstant)
	if len(parsed.Host) == 0 || len(parsed.Owner) == 0 || len(parsed.Repository) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Reason: missingSegmentReasonConstant}
	}
	return parsed, nil
}

func splitUser(location string) (string, string) {
	user, rest, found := strings.Cut(location, scpUserSeparatorConstant)
	if !found {
		return "", location
	}
	return user, rest
}

// String renders the remote in its canonical form for Protocol. Git and ssh protocols both render
// the scp-like form.
func (remote RemoteURL) String() string {
	formatted, _ := FormatRemoteURL(remote)
	return formatted
}

// FormatRemoteURL renders a hosted remote for its protocol.
func FormatRemoteURL(remote RemoteURL) (string, error) {
	if len(remote.Host) == 0 || len(remote.Owner) == 0 || len(remote.Repository) == 0 {
		return "", RemoteURLParseError{Input: remote.Host + urlPathSeparatorConstant + remote.Owner + urlPathSeparatorConstant + remote.Repository, Reason: missingSegmentReasonConstant}
	}
	switch remote.Protocol {
	case shared.RemoteProtocolHTTPS:
		return fmt.Sprintf(httpsRemoteTemplateConstant, remote.Host, remote.Owner, remote.Repository), nil
	case shared.RemoteProtocolSSH, shared.RemoteProtocolGit:
		user := remote.User
		if len(user) == 0 {
			user = defaultSSHUserConstant
		}
		return fmt.Sprintf(sshRemoteTemplateConstant, user, remote.Host, remote.Owner, remote.Repository), nil
	default:
		return "", UnsupportedProtocolError{Protocol: remote.Protocol}
	}
}

// ConvertRemoteURL rewrites a hosted remote for another protocol. The ssh user is not carried
// across protocols.
func ConvertRemoteURL(remote string, protocol shared.RemoteProtocol) (string, error) {
	parsed, parseError := ParseRemoteURL(remote)
	if parseError != nil {
		return "", parseError
	}
	if parsed.Protocol != protocol {
		parsed.User = ""
	}
	parsed.Protocol = protocol
	return FormatRemoteURL(parsed)
}

// DetectRemoteType classifies any remote by transport, including local paths that ParseRemoteURL rejects.
func DetectRemoteType(remote string) (shared.RemoteType, error) {
	trimmed := strings.TrimSpace(remote)
	if len(trimmed) == 0 {
		return "", RemoteURLParseError{Input: remote, Reason: emptyRemoteReasonConstant}
	}
	for _, candidate := range []struct {
		prefix     string
		remoteType shared.RemoteType
	}{
		{prefix: fileSchemeConstant, remoteType: shared.RemoteTypeFile},
		{prefix: urlPathSeparatorConstant, remoteType: shared.RemoteTypeFile},
		{prefix: httpsSchemeConstant, remoteType: shared.RemoteTypeHTTPS},
		{prefix: httpSchemeConstant, remoteType: shared.RemoteTypeHTTPS},
		{prefix: sshSchemeConstant, remoteType: shared.RemoteTypeSSH},
	} {
		if strings.HasPrefix(trimmed, candidate.prefix) {
			return candidate.remoteType, nil
		}
	}
	if !strings.Contains(trimmed, schemeSeparatorConstant) && strings.Contains(trimmed, scpPathSeparatorConstant) {
		return shared.RemoteTypeSSH, nil
	}
	return "", RemoteURLParseError{Input: remote, Reason: unknownTransportReasonConstant}
}
