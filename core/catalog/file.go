package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"agrimarket/core/types"
	apperrors "agrimarket/internal/errors"
)

// File is the on-disk catalog format
type File struct {
	Markets []types.Market `json:"markets" yaml:"markets"`
}

// Load returns the catalog at path, or the built-in catalog when path is empty
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a JSON or YAML catalog file
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TypeConfig, "failed to read catalog file", err).
			WithContext("path", path)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TypeConfig, "failed to parse catalog file", err).
			WithContext("path", path)
	}

	return New(f.Markets)
}

// WriteFile saves entries in the format implied by the path extension
func WriteFile(path string, entries []types.Market) error {
	f := File{Markets: entries}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(f)
	default:
		data, err = json.MarshalIndent(f, "", "  ")
	}
	if err != nil {
		return apperrors.Internal("failed to encode catalog", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.Wrap(apperrors.TypeConfig, "failed to create catalog directory", err)
	}
	return os.WriteFile(path, data, 0644)
}
