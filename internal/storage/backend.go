// Package storage persists entity collections. Each entity type is stored as
// one JSON array per backup directory, either as a file (<dir>/<entity>.json)
// or as a row in a SQLite/PostgreSQL table.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Storage errors. Restore treats both as fatal for the run.
var (
	// ErrNotFound is returned when no data exists for an entity type.
	ErrNotFound = errors.New("entity data not found")

	// ErrCorrupt is returned when stored data is not a valid JSON array.
	ErrCorrupt = errors.New("entity data is corrupt")
)

// Store reads and writes entity collections.
// All implementations must be safe for concurrent access.
type Store interface {
	// Write replaces the stored collection for entityName in dir.
	// records must marshal to a JSON array.
	Write(ctx context.Context, dir, entityName string, records any) error

	// Read decodes the stored collection into out (a pointer to a slice).
	Read(ctx context.Context, dir, entityName string, out any) error

	// Exists reports whether a collection is stored for entityName in dir.
	Exists(ctx context.Context, dir, entityName string) (bool, error)

	// Entities lists the entity types stored in dir.
	Entities(ctx context.Context, dir string) ([]string, error)

	// Close releases resources.
	Close() error
}

// ReadRecords reads the collection for entityName as a typed slice.
func ReadRecords[T any](ctx context.Context, s Store, dir, entityName string) ([]T, error) {
	var out []T
	if err := s.Read(ctx, dir, entityName, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// encode marshals records and returns the JSON with its element count.
func encode(entityName string, records any) ([]byte, int, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s: %w", entityName, err)
	}
	if string(data) == "null" {
		data = []byte("[]")
	}

	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return nil, 0, fmt.Errorf("encode %s: records must be a list", entityName)
	}
	return data, int(parsed.Get("#").Int()), nil
}

// decode validates stored JSON and unmarshals it into out.
func decode(entityName string, data []byte, out any) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%s: %w: invalid JSON", entityName, ErrCorrupt)
	}
	if !gjson.ParseBytes(data).IsArray() {
		return fmt.Errorf("%s: %w: expected a JSON array", entityName, ErrCorrupt)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: %w", entityName, ErrCorrupt, err)
	}
	return nil
}
