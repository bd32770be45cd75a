package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/randalmurphal/repoback/internal/util"
)

const jsonExt = ".json"

// JSONStore stores each entity collection as <dir>/<entity>.json.
type JSONStore struct{}

// NewJSONStore creates a file-backed store.
func NewJSONStore() *JSONStore {
	return &JSONStore{}
}

// Path returns the file that holds entityName in dir.
func (s *JSONStore) Path(dir, entityName string) string {
	return filepath.Join(dir, entityName+jsonExt)
}

// Write replaces <dir>/<entity>.json atomically.
func (s *JSONStore) Write(_ context.Context, dir, entityName string, records any) error {
	data, _, err := encode(entityName, records)
	if err != nil {
		return err
	}

	if err := util.WriteFileAtomic(s.Path(dir, entityName), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", entityName, err)
	}
	return nil
}

// Read decodes <dir>/<entity>.json into out.
func (s *JSONStore) Read(_ context.Context, dir, entityName string, out any) error {
	path := s.Path(dir, entityName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w: %s", entityName, ErrNotFound, path)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	return decode(entityName, data, out)
}

// Exists reports whether <dir>/<entity>.json exists.
func (s *JSONStore) Exists(_ context.Context, dir, entityName string) (bool, error) {
	_, err := os.Stat(s.Path(dir, entityName))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", entityName, err)
}

// Entities lists the *.json files in dir, excluding the backup manifest.
func (s *JSONStore) Entities(_ context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, jsonExt) || strings.HasPrefix(name, ".") {
			continue
		}
		name = strings.TrimSuffix(name, jsonExt)
		if name == "manifest" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op.
func (s *JSONStore) Close() error {
	return nil
}
