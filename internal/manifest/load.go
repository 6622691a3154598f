package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/temirov/reposync/internal/repos/shared"
)

const (
	yamlExtensionConstant                  = ".yaml"
	ymlExtensionConstant                   = ".yml"
	tomlExtensionConstant                  = ".toml"
	ymlFormatAliasConstant                 = "yml"
	fileSystemNotConfiguredMessageConstant = "manifest file system not configured"
	unsupportedFormatErrorTemplateConstant = "unsupported manifest format %q (expected yaml or toml)"
	loadErrorTemplateConstant              = "load manifest %s: %v"
	unknownKeysErrorTemplateConstant       = "unknown manifest keys: %s"
	unknownKeysSeparatorConstant           = ", "
)

// Format selects a manifest serialization.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrFileSystemNotConfigured indicates the loader was constructed without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)

// UnsupportedFormatError reports a format name or file extension that is neither YAML nor TOML.
type UnsupportedFormatError struct {
	Value string
}

// Error describes the unsupported format.
func (formatError UnsupportedFormatError) Error() string {
	return fmt.Sprintf(unsupportedFormatErrorTemplateConstant, formatError.Value)
}

// LoadError wraps a failure to read or decode a manifest file.
type LoadError struct {
	Path  string
	Cause error
}

// Error describes the load failure.
func (loadError LoadError) Error() string {
	return fmt.Sprintf(loadErrorTemplateConstant, loadError.Path, loadError.Cause)
}

// Unwrap exposes the underlying cause.
func (loadError LoadError) Unwrap() error {
	return loadError.Cause
}

// ParseFormat parses a format name. An empty value selects YAML.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(FormatYAML), ymlFormatAliasConstant:
		return FormatYAML, nil
	case string(FormatTOML):
		return FormatTOML, nil
	default:
		return "", UnsupportedFormatError{Value: raw}
	}
}

// FormatFromPath selects the format from a file extension.
func FormatFromPath(manifestPath string) (Format, error) {
	switch strings.ToLower(filepath.Ext(manifestPath)) {
	case yamlExtensionConstant, ymlExtensionConstant:
		return FormatYAML, nil
	case tomlExtensionConstant:
		return FormatTOML, nil
	default:
		return "", UnsupportedFormatError{Value: filepath.Ext(manifestPath)}
	}
}

// Loader reads manifest files.
type Loader struct {
	fileSystem shared.FileSystem
}

// NewLoader constructs a Loader reading through the provided file system.
func NewLoader(fileSystem shared.FileSystem) (*Loader, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	return &Loader{fileSystem: fileSystem}, nil
}

// Load reads and decodes the manifest at manifestPath. Unknown keys are rejected.
func (loader *Loader) Load(manifestPath string) (Manifest, error) {
	format, formatError := FormatFromPath(manifestPath)
	if formatError != nil {
		return Manifest{}, LoadError{Path: manifestPath, Cause: formatError}
	}

	contents, readError := loader.fileSystem.ReadFile(manifestPath)
	if readError != nil {
		return Manifest{}, LoadError{Path: manifestPath, Cause: readError}
	}

	manifest, decodeError := Decode(contents, format)
	if decodeError != nil {
		return Manifest{}, LoadError{Path: manifestPath, Cause: decodeError}
	}
	return manifest, nil
}

// Decode parses manifest contents in the given format. Empty contents decode to an empty manifest.
func Decode(contents []byte, format Format) (Manifest, error) {
	var manifest Manifest
	switch format {
	case FormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(contents))
		decoder.KnownFields(true)
		if decodeError := decoder.Decode(&manifest); decodeError != nil && !errors.Is(decodeError, io.EOF) {
			return Manifest{}, decodeError
		}
	case FormatTOML:
		metadata, decodeError := toml.Decode(string(contents), &manifest)
		if decodeError != nil {
			return Manifest{}, decodeError
		}
		if undecoded := metadata.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, key := range undecoded {
				keys = append(keys, key.String())
			}
			slices.Sort(keys)
			return Manifest{}, fmt.Errorf(unknownKeysErrorTemplateConstant, strings.Join(keys, unknownKeysSeparatorConstant))
		}
	default:
		return Manifest{}, UnsupportedFormatError{Value: string(format)}
	}
	return manifest, nil
}
