package githubcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/githubauth"
	"github.com/temirov/reposync/internal/repos/shared"
)

const (
	apiSubcommandConstant                   = "api"
	acceptHeaderFlagConstant                = "-H"
	acceptHeaderValueConstant               = "Accept: application/vnd.github+json"
	ownerFieldNameConstant                  = "owner"
	requiredValueMessageConstant            = "value required"
	executorNotConfiguredMessageConstant    = "github cli executor not configured"
	repositoriesEndpointTemplateConstant    = "%s/%s/repos?per_page=%d&page=%d"
	repositoriesPageSizeConstant            = 100
	firstPageNumberConstant                 = 1
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	listRepositoriesOperationNameConstant   = OperationName("ListRepositories")
)

// OperationName names a GitHub CLI operation performed by the client.
type OperationName string

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client lists provider repositories through the GitHub CLI.
type Client struct {
	executor    GitHubCommandExecutor
	tokenSource githubauth.TokenSource
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

type repositoryResponse struct {
	Name          string `json:"name"`
	CloneURL      string `json:"clone_url"`
	SSHURL        string `json:"ssh_url"`
	DefaultBranch string `json:"default_branch"`
	Archived      bool   `json:"archived"`
	Fork          bool   `json:"fork"`
}

// NewClient constructs a GitHub CLI client. The token source feeds GH_TOKEN to every gh invocation.
func NewClient(executor GitHubCommandExecutor, tokenSource githubauth.TokenSource) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor, tokenSource: tokenSource}, nil
}

// ListRepositories streams the repositories owned by a user or organization. Pages are requested
// lazily, so a consumer that stops early never triggers further gh calls. The first error ends
// the sequence.
func (client *Client) ListRepositories(executionContext context.Context, parameters shared.ProviderParameters) iter.Seq2[shared.RemoteRepositoryDescriptor, error] {
	return func(yield func(shared.RemoteRepositoryDescriptor, error) bool) {
		owner := strings.TrimSpace(parameters.Owner.String())
		if len(owner) == 0 {
			yield(shared.RemoteRepositoryDescriptor{}, InvalidInputError{FieldName: ownerFieldNameConstant, Message: requiredValueMessageConstant})
			return
		}

		for pageNumber := firstPageNumberConstant; ; pageNumber++ {
			if contextError := executionContext.Err(); contextError != nil {
				yield(shared.RemoteRepositoryDescriptor{}, OperationError{Operation: listRepositoriesOperationNameConstant, Cause: contextError})
				return
			}

			page, pageError := client.fetchRepositoryPage(executionContext, parameters.OwnerType, owner, pageNumber)
			if pageError != nil {
				yield(shared.RemoteRepositoryDescriptor{}, pageError)
				return
			}

			for _, entry := range page {
				if entry.Archived && !parameters.IncludeArchived {
					continue
				}
				if entry.Fork && !parameters.IncludeForks {
					continue
				}
				descriptor := shared.RemoteRepositoryDescriptor{
					Name:          entry.Name,
					CloneURL:      entry.CloneURL,
					SSHURL:        entry.SSHURL,
					DefaultBranch: entry.DefaultBranch,
					Archived:      entry.Archived,
					Fork:          entry.Fork,
				}
				if !yield(descriptor, nil) {
					return
				}
			}

			if len(page) < repositoriesPageSizeConstant {
				return
			}
		}
	}
}

func (client *Client) fetchRepositoryPage(executionContext context.Context, ownerType shared.OwnerType, owner string, pageNumber int) ([]repositoryResponse, error) {
	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			apiSubcommandConstant,
			fmt.Sprintf(repositoriesEndpointTemplateConstant, ownerType.PathSegment(), owner, repositoriesPageSizeConstant, pageNumber),
			acceptHeaderFlagConstant,
			acceptHeaderValueConstant,
		},
		EnvironmentVariables: client.tokenSource.CommandEnvironment(),
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return nil, OperationError{Operation: listRepositoriesOperationNameConstant, Cause: executionError}
	}

	var response []repositoryResponse
	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return nil, ResponseDecodingError{Operation: listRepositoriesOperationNameConstant, Cause: decodingError}
	}
	return response, nil
}
