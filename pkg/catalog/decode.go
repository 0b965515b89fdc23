package catalog

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/flowmap/pkg/errors"
)

// Format names a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned when no decoder matches a path or format name.
var ErrUnknownFormat = stderrors.New("unknown catalog format")

// ParseFormat resolves a format name. "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// DecodeDocument reads a Document in the given format.
func DecodeDocument(r io.Reader, f Format) (Document, error) {
	var doc Document
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return Document{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode json catalog")
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
			return Document{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode yaml catalog")
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
			return Document{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode toml catalog")
		}
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return doc, nil
}

// Decode reads and indexes a catalog.
func Decode(r io.Reader, f Format) (*Catalog, error) {
	doc, err := DecodeDocument(r, f)
	if err != nil {
		return nil, err
	}
	return New(doc)
}

// Parse decodes a catalog held in memory.
func Parse(data []byte, f Format) (*Catalog, error) {
	return Decode(bytes.NewReader(data), f)
}

// Load reads a catalog file, choosing the decoder by extension.
func Load(path string) (*Catalog, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "load %s", path)
	}

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "catalog %s not found", path)
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	c, err := Decode(file, f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return c, nil
}

// EncodeDocument writes doc in the given format.
func EncodeDocument(w io.Writer, doc Document, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(doc)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}
