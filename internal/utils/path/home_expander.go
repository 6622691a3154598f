package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	homeShortcutConstant       = "~"
	homeVariableConstant       = "$HOME"
	bracedHomeVariableConstant = "${HOME}"
	parentDirectoryConstant    = ".."
)

var homePrefixes = []string{homeShortcutConstant, bracedHomeVariableConstant, homeVariableConstant}

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander translates between home-relative manifest roots and absolute paths. The home
// directory is looked up once.
type HomeExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
	lookupOnce            sync.Once
	homeDirectory         string
}

// NewHomeExpander resolves the home directory through the operating system.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider resolves the home directory through provider.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{homeDirectoryProvider: provider}
}

// Expand replaces a leading ~, $HOME or ${HOME} path element with the home directory. Paths such
// as ~alice or $HOMEDIR are returned unchanged, as is every path when the home directory is unknown.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil {
		return candidatePath
	}
	for _, prefix := range homePrefixes {
		remainder, found := strings.CutPrefix(candidatePath, prefix)
		if !found {
			continue
		}
		if len(remainder) > 0 && !isSeparator(remainder[0]) {
			return candidatePath
		}
		homeDirectory := expander.home()
		if len(homeDirectory) == 0 {
			return candidatePath
		}
		return filepath.Join(homeDirectory, strings.TrimLeft(remainder, "/"+string(os.PathSeparator)))
	}
	return candidatePath
}

// Collapse is the inverse of Expand for paths inside the home directory, which are rendered as
// ~ or ~/relative. Other paths are returned unchanged.
func (expander *HomeExpander) Collapse(candidatePath string) string {
	if expander == nil || len(candidatePath) == 0 {
		return candidatePath
	}
	homeDirectory := expander.home()
	if len(homeDirectory) == 0 {
		return candidatePath
	}
	relativePath, relativeError := filepath.Rel(filepath.Clean(homeDirectory), filepath.Clean(candidatePath))
	switch {
	case relativeError != nil:
		return candidatePath
	case relativePath == ".":
		return homeShortcutConstant
	case relativePath == parentDirectoryConstant || strings.HasPrefix(relativePath, parentDirectoryConstant+string(os.PathSeparator)):
		return candidatePath
	default:
		return homeShortcutConstant + "/" + filepath.ToSlash(relativePath)
	}
}

func (expander *HomeExpander) home() string {
	expander.lookupOnce.Do(func() {
		homeDirectory, lookupError := expander.homeDirectoryProvider()
		if lookupError == nil {
			expander.homeDirectory = homeDirectory
		}
	})
	return expander.homeDirectory
}

func isSeparator(character byte) bool {
	return character == '/' || character == os.PathSeparator
}
