package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

const gitMetadataEntryNameConstant = ".git"

// FilesystemRepositoryDiscoverer locates git repositories on disk.
type FilesystemRepositoryDiscoverer struct{}

// NewFilesystemRepositoryDiscoverer constructs a repository discoverer backed by filepath.WalkDir.
func NewFilesystemRepositoryDiscoverer() *FilesystemRepositoryDiscoverer {
	return &FilesystemRepositoryDiscoverer{}
}

// DiscoverRepositories walks the provided roots and returns, sorted, every directory holding a .git
// entry. The walk never descends into a repository, so linked worktrees and nested checkouts inside
// a repository are not reported, and symbolic links are never followed. Unreadable directories are
// skipped.
func (discoverer *FilesystemRepositoryDiscoverer) DiscoverRepositories(roots []string) ([]string, error) {
	seen := make(map[string]struct{})
	var repositories []string

	for _, root := range roots {
		walkError := filepath.WalkDir(root, func(path string, directoryEntry fs.DirEntry, walkError error) error {
			if walkError != nil {
				if directoryEntry != nil && directoryEntry.IsDir() && path != root {
					return fs.SkipDir
				}
				return nil
			}
			if !directoryEntry.IsDir() {
				return nil
			}
			if !hasGitMetadata(path) {
				return nil
			}

			repositoryPath := filepath.Clean(path)
			if _, alreadySeen := seen[repositoryPath]; !alreadySeen {
				seen[repositoryPath] = struct{}{}
				repositories = append(repositories, repositoryPath)
			}
			return fs.SkipDir
		})
		if walkError != nil {
			return nil, walkError
		}
	}

	slices.Sort(repositories)
	return repositories, nil
}

func hasGitMetadata(directoryPath string) bool {
	_, statError := os.Lstat(filepath.Join(directoryPath, gitMetadataEntryNameConstant))
	return statError == nil
}

// UnmanagedRepositories returns the discovered repositories whose cleaned path is not among the
// managed paths, preserving discovery order.
func UnmanagedRepositories(discovered []string, managedPaths []string) []string {
	managed := make(map[string]struct{}, len(managedPaths))
	for _, managedPath := range managedPaths {
		managed[filepath.Clean(managedPath)] = struct{}{}
	}

	var unmanaged []string
	for _, repositoryPath := range discovered {
		if _, isManaged := managed[filepath.Clean(repositoryPath)]; !isManaged {
			unmanaged = append(unmanaged, repositoryPath)
		}
	}
	return unmanaged
}
