package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/mensylisir/pexm/pkg/errors/errdefs"
)

// Format is the encoding of a plan file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the format from the file extension. Anything that is
// not .toml is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads a plan file, applies defaults and validates it.
func Load(path string) (*Plan, error) {
	if path == "" {
		return nil, errdefs.NewConfigError("configuration file path cannot be empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errdefs.IOError{Op: "read", Path: path, Err: err}
	}
	return LoadFromBytes(data, FormatFor(path))
}

// LoadFromBytes decodes data, applies defaults and validates the result.
// Unknown fields are rejected.
func LoadFromBytes(data []byte, format Format) (*Plan, error) {
	var p Plan
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, errdefs.NewConfigError("failed to decode toml config: %v", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return nil, errdefs.NewConfigError("failed to decode yaml config: %v", err)
		}
	}

	SetDefaults(&p)
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Marshal encodes p in format; used to print the effective plan.
func Marshal(p *Plan, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(p)
	case FormatYAML:
		return yaml.Marshal(p)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}
