package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	m "orisa.dev/pkg/orisa/internal/model"
)

// FlagStore persists the ordered list of extra runner flags.
type FlagStore interface {
	Path() string
	// Load returns the stored flags. A missing file yields no flags.
	Load() ([]m.CLIFlag, error)
	// Save replaces the stored flags, dropping duplicate values.
	Save(flags []m.CLIFlag) error
}

type flagFile struct {
	Flags []m.CLIFlag `yaml:"flags"`
}

type yamlFlagStore struct {
	path string
}

// NewYAMLFlagStore creates a FlagStore backed by the yaml file at path.
func NewYAMLFlagStore(path string) FlagStore {
	return &yamlFlagStore{path: path}
}

// Path implements FlagStore.
func (s *yamlFlagStore) Path() string {
	return s.path
}

// Load implements FlagStore.
func (s *yamlFlagStore) Load() ([]m.CLIFlag, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		slog.Error("Failed to read flags file", "path", s.path, "error", err)
		return nil, fmt.Errorf("failed to read flags file: %w", err)
	}

	var file flagFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		slog.Error("Failed to parse flags file", "path", s.path, "error", err)
		return nil, fmt.Errorf("failed to parse flags file %s: %w", s.path, err)
	}

	return m.DedupeFlags(file.Flags), nil
}

// Save implements FlagStore.
func (s *yamlFlagStore) Save(flags []m.CLIFlag) error {
	data, err := yaml.Marshal(flagFile{Flags: m.DedupeFlags(flags)})
	if err != nil {
		return fmt.Errorf("failed to encode flags: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create flags directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		slog.Error("Failed to write flags file", "path", tmp, "error", err)
		return fmt.Errorf("failed to write flags file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		slog.Error("Failed to replace flags file", "path", s.path, "error", err)
		return fmt.Errorf("failed to replace flags file: %w", err)
	}

	slog.Debug("Saved flags", "path", s.path, "count", len(flags))

	return nil
}
