package nn

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format selects the encoding of architecture documents.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// Encode writes v (an Architecture, LayerSpec or Config) in the given format.
func Encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// DecodeArchitecture reads an architecture document. JSON numbers are kept
// exact so large seeds survive the round trip.
func DecodeArchitecture(r io.Reader, format Format) (Architecture, error) {
	var arch Architecture
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&arch); err != nil {
			return Architecture{}, fmt.Errorf("decode yaml architecture: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(&arch); err != nil {
			return Architecture{}, fmt.Errorf("decode json architecture: %w", err)
		}
	default:
		return Architecture{}, fmt.Errorf("unknown format %q", format)
	}
	return arch, nil
}

// SaveArchitecture writes the layer list of seq to path, encoded by extension.
func SaveArchitecture(path string, seq *Sequential) error {
	arch, err := seq.Architecture()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, FormatForPath(path), arch); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// LoadArchitecture rebuilds a Sequential model from a file written by
// SaveArchitecture. Parameters are freshly initialised; use LoadModule for
// weights.
func LoadArchitecture(path string) (*Sequential, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	arch, err := DecodeArchitecture(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return BuildSequential(arch)
}
