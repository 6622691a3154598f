package manifest

import (
	"io"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const yamlIndentConstant = 2

// Encode writes the manifest in the given format.
func Encode(writer io.Writer, manifest Manifest, format Format) error {
	switch format {
	case FormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndentConstant)
		if encodeError := encoder.Encode(manifest); encodeError != nil {
			return encodeError
		}
		return encoder.Close()
	case FormatTOML:
		return toml.NewEncoder(writer).Encode(manifest)
	default:
		return UnsupportedFormatError{Value: string(format)}
	}
}
