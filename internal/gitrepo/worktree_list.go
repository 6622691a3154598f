package gitrepo

import "strings"

const (
	porcelainWorktreePrefixConstant = "worktree "
	porcelainHeadPrefixConstant     = "HEAD "
	porcelainBranchPrefixConstant   = "branch refs/heads/"
	porcelainDetachedConstant       = "detached"
	porcelainBareConstant           = "bare"
	porcelainPrunablePrefixConstant = "prunable"
	porcelainLockedPrefixConstant   = "locked"
)

// WorktreeRecord is one entry of `git worktree list --porcelain`. The first record is the main worktree.
type WorktreeRecord struct {
	Path     string
	Head     string
	Branch   string
	Detached bool
	Bare     bool
	Locked   bool
	Prunable bool
}

// ParseWorktreeList parses porcelain worktree output.
func ParseWorktreeList(output string) []WorktreeRecord {
	var records []WorktreeRecord
	var current WorktreeRecord

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, porcelainWorktreePrefixConstant):
			if len(current.Path) > 0 {
				records = append(records, current)
			}
			current = WorktreeRecord{Path: strings.TrimPrefix(line, porcelainWorktreePrefixConstant)}
		case strings.HasPrefix(line, porcelainHeadPrefixConstant):
			current.Head = strings.TrimPrefix(line, porcelainHeadPrefixConstant)
		case strings.HasPrefix(line, porcelainBranchPrefixConstant):
			current.Branch = strings.TrimPrefix(line, porcelainBranchPrefixConstant)
		case line == porcelainDetachedConstant:
			current.Detached = true
		case line == porcelainBareConstant:
			current.Bare = true
		case strings.HasPrefix(line, porcelainLockedPrefixConstant):
			current.Locked = true
		case strings.HasPrefix(line, porcelainPrunablePrefixConstant):
			current.Prunable = true
		}
	}

	if len(current.Path) > 0 {
		records = append(records, current)
	}
	return records
}
