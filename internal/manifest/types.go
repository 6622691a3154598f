package manifest

// Manifest is the declarative description of every managed repository.
type Manifest struct {
	Trees []Tree `yaml:"trees" toml:"trees" mapstructure:"trees"`
}

// Tree is a directory holding repositories. Each repository lives at root/name.
type Tree struct {
	Root           string       `yaml:"root" toml:"root" mapstructure:"root"`
	WorktreePolicy string       `yaml:"worktree_policy,omitempty" toml:"worktree_policy,omitempty" mapstructure:"worktree_policy"`
	Repositories   []Repository `yaml:"repositories,omitempty" toml:"repositories,omitempty" mapstructure:"repositories"`
	Providers      []Provider   `yaml:"providers,omitempty" toml:"providers,omitempty" mapstructure:"providers"`
}

// Repository is one managed repository. WorktreePolicy overrides the tree policy when set.
type Repository struct {
	Name           string     `yaml:"name" toml:"name" mapstructure:"name"`
	DefaultBranch  string     `yaml:"default_branch,omitempty" toml:"default_branch,omitempty" mapstructure:"default_branch"`
	WorktreePolicy string     `yaml:"worktree_policy,omitempty" toml:"worktree_policy,omitempty" mapstructure:"worktree_policy"`
	Remotes        []Remote   `yaml:"remotes,omitempty" toml:"remotes,omitempty" mapstructure:"remotes"`
	Worktrees      []Worktree `yaml:"worktrees,omitempty" toml:"worktrees,omitempty" mapstructure:"worktrees"`
}

// Remote is a configured git remote. Type is informational and recorded by find.
type Remote struct {
	Name      string `yaml:"name" toml:"name" mapstructure:"name"`
	URL       string `yaml:"url" toml:"url" mapstructure:"url"`
	Type      string `yaml:"type,omitempty" toml:"type,omitempty" mapstructure:"type"`
	SkipFetch bool   `yaml:"skip_fetch,omitempty" toml:"skip_fetch,omitempty" mapstructure:"skip_fetch"`
}

// Worktree is a linked worktree. Path is relative to the repository and defaults to the branch name.
// Track names the remote branch to follow, such as origin/feature.
type Worktree struct {
	Branch string `yaml:"branch" toml:"branch" mapstructure:"branch"`
	Path   string `yaml:"path,omitempty" toml:"path,omitempty" mapstructure:"path"`
	Track  string `yaml:"track,omitempty" toml:"track,omitempty" mapstructure:"track"`
}

// Provider imports repositories from a hosting service. With carries provider-specific options.
type Provider struct {
	Name string         `yaml:"name" toml:"name" mapstructure:"name"`
	With map[string]any `yaml:"with,omitempty" toml:"with,omitempty" mapstructure:"with"`
}

// GitHubProviderOptions configures the github provider.
type GitHubProviderOptions struct {
	Owner           string `mapstructure:"owner"`
	OwnerType       string `mapstructure:"owner_type"`
	Protocol        string `mapstructure:"protocol"`
	RemoteName      string `mapstructure:"remote_name"`
	IncludeArchived bool   `mapstructure:"include_archived"`
	IncludeForks    bool   `mapstructure:"include_forks"`
}
