package repos_test

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/repos/shared"
)

const (
	testOriginRemoteNameConstant = "origin"
	testAlphaNameConstant        = "alpha"
	testAlphaURLConstant         = "https://example.com/alpha.git"
	testManifestFileNameConstant = "repos.yaml"
	testManifestTemplateConstant = "trees:\n  - root: %s\n    repositories:\n      - name: alpha\n        remotes:\n          - name: origin\n            url: https://example.com/alpha.git\n"
)

var errUnexpectedCommand = errors.New("unexpected command execution")

// unusedGitExecutor fails every call so tests notice when a real git or gh invocation would happen.
type unusedGitExecutor struct{}

func (unusedGitExecutor) ExecuteGit(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, errUnexpectedCommand
}

func (unusedGitExecutor) ExecuteGitHubCLI(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, errUnexpectedCommand
}

type stubRepositoryLister struct {
	descriptors        []shared.RemoteRepositoryDescriptor
	failure            error
	receivedParameters []shared.ProviderParameters
}

func (lister *stubRepositoryLister) ListRepositories(_ context.Context, parameters shared.ProviderParameters) iter.Seq2[shared.RemoteRepositoryDescriptor, error] {
	lister.receivedParameters = append(lister.receivedParameters, parameters)
	return func(yield func(shared.RemoteRepositoryDescriptor, error) bool) {
		if lister.failure != nil {
			yield(shared.RemoteRepositoryDescriptor{}, lister.failure)
			return
		}
		for _, descriptor := range lister.descriptors {
			if !yield(descriptor, nil) {
				return
			}
		}
	}
}

type commandOutput struct {
	standardOutput bytes.Buffer
	standardError  bytes.Buffer
}

func executeCommand(testInstance *testing.T, command *cobra.Command, arguments ...string) (*commandOutput, error) {
	testInstance.Helper()
	output := &commandOutput{}
	command.SetContext(context.Background())
	command.SetOut(&output.standardOutput)
	command.SetErr(&output.standardError)
	command.SetArgs(arguments)
	return output, command.Execute()
}

func writeManifest(testInstance *testing.T, contents string) string {
	testInstance.Helper()
	manifestPath := filepath.Join(testInstance.TempDir(), testManifestFileNameConstant)
	require.NoError(testInstance, os.WriteFile(manifestPath, []byte(contents), 0o600))
	return manifestPath
}

func nopLoggerProvider() *zap.Logger {
	return zap.NewNop()
}
