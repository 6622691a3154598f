package manifest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/reposync/internal/manifest"
	"github.com/temirov/reposync/internal/reconcile"
	"github.com/temirov/reposync/internal/reconcile/reconciletest"
	"github.com/temirov/reposync/internal/repos/discovery"
	"github.com/temirov/reposync/internal/repos/filesystem"
	pathutils "github.com/temirov/reposync/internal/utils/path"
)

func createRepositoryDirectory(testInstance *testing.T, repositoryPath string) {
	testInstance.Helper()
	require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, ".git"), 0o755))
}

func newFinder(stateReader reconcile.StateReader, homeDirectory string, logger *zap.Logger) manifest.Finder {
	return manifest.Finder{
		Discoverer:   discovery.NewFilesystemRepositoryDiscoverer(),
		StateReader:  stateReader,
		FileSystem:   filesystem.OSFileSystem{},
		HomeExpander: pathutils.NewHomeExpanderWithProvider(func() (string, error) { return homeDirectory, nil }),
		Logger:       logger,
	}
}

func TestFinderDescribesRepositoriesUnderRoot(testInstance *testing.T) {
	homeDirectory := testInstance.TempDir()
	root := filepath.Join(homeDirectory, "code")
	applicationPath := filepath.Join(root, "app")
	servicePath := filepath.Join(root, "group", "service")
	brokenPath := filepath.Join(root, "broken")
	for _, repositoryPath := range []string{applicationPath, servicePath, brokenPath} {
		createRepositoryDirectory(testInstance, repositoryPath)
	}

	backend := reconciletest.NewBackend()
	backend.SeedRepository(applicationPath, reconciletest.Repository{
		Remotes: map[string]string{
			"upstream": "git@github.com:core/app.git",
			"origin":   "https://github.com/octo/app.git",
			"backup":   "/srv/mirrors/app.git",
		},
		Branches: map[string]reconcile.BranchState{
			"main":    {Name: "main", Upstream: "origin/main"},
			"feature": {Name: "feature", Upstream: "origin/feature"},
			"spike":   {Name: "spike"},
		},
		Worktrees: map[string]string{"wt/feature": "feature", "spike": "spike", "detached": ""},
		Head:      "main",
	})
	backend.SeedRepository(servicePath, reconciletest.Repository{Head: "0123abcd"})
	backend.MarkUnreadable(brokenPath)

	observerCore, observedLogs := observer.New(zap.WarnLevel)
	found, findError := newFinder(backend, homeDirectory, zap.New(observerCore)).Find(context.Background(), "~/code")
	require.NoError(testInstance, findError)

	require.Equal(testInstance, manifest.Manifest{Trees: []manifest.Tree{{
		Root: "~/code",
		Repositories: []manifest.Repository{
			{
				Name:          "app",
				DefaultBranch: "main",
				Remotes: []manifest.Remote{
					{Name: "origin", URL: "https://github.com/octo/app.git", Type: "https"},
					{Name: "backup", URL: "/srv/mirrors/app.git", Type: "file"},
					{Name: "upstream", URL: "git@github.com:core/app.git", Type: "ssh"},
				},
				Worktrees: []manifest.Worktree{
					{Branch: "spike"},
					{Branch: "feature", Path: "wt/feature", Track: "origin/feature"},
				},
			},
			{Name: "group/service"},
		},
	}}}, found)

	require.Equal(testInstance, 1, observedLogs.Len())
	require.Equal(testInstance, brokenPath, observedLogs.All()[0].ContextMap()["path"])
}

func TestFinderRootRepository(testInstance *testing.T) {
	parent := testInstance.TempDir()
	repositoryPath := filepath.Join(parent, "solo")
	createRepositoryDirectory(testInstance, repositoryPath)

	backend := reconciletest.NewBackend()
	backend.SeedRepository(repositoryPath, reconciletest.Repository{
		Remotes:  map[string]string{"origin": "https://github.com/octo/solo.git"},
		Branches: map[string]reconcile.BranchState{"main": {Name: "main"}},
		Head:     "main",
	})

	found, findError := newFinder(backend, "/nonexistent-home", nil).Find(context.Background(), repositoryPath)
	require.NoError(testInstance, findError)
	require.Len(testInstance, found.Trees, 1)
	require.Equal(testInstance, parent, found.Trees[0].Root)
	require.Equal(testInstance, []manifest.Repository{{
		Name:          "solo",
		DefaultBranch: "main",
		Remotes:       []manifest.Remote{{Name: "origin", URL: "https://github.com/octo/solo.git", Type: "https"}},
	}}, found.Trees[0].Repositories)
}

func TestFinderRejectsInvalidRoots(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	regularFile := filepath.Join(workingDirectory, "notes.txt")
	require.NoError(testInstance, os.WriteFile(regularFile, []byte("notes"), 0o644))

	testCases := []struct {
		name string
		root string
	}{
		{name: "missing", root: filepath.Join(workingDirectory, "missing")},
		{name: "regular_file", root: regularFile},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, findError := newFinder(reconciletest.NewBackend(), workingDirectory, nil).Find(context.Background(), testCase.root)
			require.ErrorAs(testInstance, findError, new(manifest.FindRootError))
		})
	}
}

func TestFinderRequiresCollaborators(testInstance *testing.T) {
	_, findError := manifest.Finder{}.Find(context.Background(), ".")
	require.ErrorIs(testInstance, findError, manifest.ErrFinderNotConfigured)
}
