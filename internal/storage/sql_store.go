package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/randalmurphal/repoback/internal/storage/driver"
	"github.com/tidwall/gjson"
)

//go:embed schema/*.sql schema/postgres/*.sql
var schemaFS embed.FS

const schemaType = "store"

// SQLStore stores entity collections as rows in entity_records, keyed by
// backup directory and entity name.
type SQLStore struct {
	drv driver.Driver
}

// OpenSQLStore opens a SQLite or PostgreSQL store and applies migrations.
func OpenSQLStore(ctx context.Context, dialect driver.Dialect, dsn string) (*SQLStore, error) {
	drv, err := driver.New(dialect)
	if err != nil {
		return nil, err
	}
	if err := drv.Open(dsn); err != nil {
		return nil, err
	}
	if dialect == driver.DialectSQLite {
		// One writer at a time avoids SQLITE_BUSY across goroutines.
		drv.DB().SetMaxOpenConns(1)
	}
	if err := drv.Migrate(ctx, schemaFS, schemaType); err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("migrate store schema: %w", err)
	}
	return &SQLStore{drv: drv}, nil
}

// Write upserts the collection for entityName in dir.
func (s *SQLStore) Write(ctx context.Context, dir, entityName string, records any) error {
	data, count, err := encode(entityName, records)
	if err != nil {
		return err
	}

	p := s.drv.Placeholder
	query := fmt.Sprintf(`INSERT INTO entity_records (backup, entity, payload, record_count, updated_at)
		VALUES (%s, %s, %s, %s, %s)
		ON CONFLICT (backup, entity) DO UPDATE SET
			payload = excluded.payload,
			record_count = excluded.record_count,
			updated_at = excluded.updated_at`,
		p(1), p(2), p(3), p(4), s.drv.Now())

	if _, err := s.drv.Exec(ctx, query, dir, entityName, string(data), count); err != nil {
		return fmt.Errorf("store %s: %w", entityName, err)
	}
	return nil
}

// Read decodes the stored collection into out.
func (s *SQLStore) Read(ctx context.Context, dir, entityName string, out any) error {
	p := s.drv.Placeholder
	query := fmt.Sprintf(`SELECT payload FROM entity_records WHERE backup = %s AND entity = %s`, p(1), p(2))

	var payload string
	err := s.drv.QueryRow(ctx, query, dir, entityName).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w: backup %s", entityName, ErrNotFound, dir)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", entityName, err)
	}
	return decode(entityName, []byte(payload), out)
}

// Exists reports whether a row exists for entityName in dir.
func (s *SQLStore) Exists(ctx context.Context, dir, entityName string) (bool, error) {
	p := s.drv.Placeholder
	query := fmt.Sprintf(`SELECT COUNT(*) FROM entity_records WHERE backup = %s AND entity = %s`, p(1), p(2))

	var n int
	if err := s.drv.QueryRow(ctx, query, dir, entityName).Scan(&n); err != nil {
		return false, fmt.Errorf("check %s: %w", entityName, err)
	}
	return n > 0, nil
}

// Entities lists entity names stored for dir.
func (s *SQLStore) Entities(ctx context.Context, dir string) ([]string, error) {
	query := fmt.Sprintf(`SELECT entity FROM entity_records WHERE backup = %s ORDER BY entity`, s.drv.Placeholder(1))
	rows, err := s.drv.Query(ctx, query, dir)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Counts returns the stored record count per entity for dir.
func (s *SQLStore) Counts(ctx context.Context, dir string) (map[string]int, error) {
	query := fmt.Sprintf(`SELECT entity, payload FROM entity_records WHERE backup = %s`, s.drv.Placeholder(1))
	rows, err := s.drv.Query(ctx, query, dir)
	if err != nil {
		return nil, fmt.Errorf("count entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var name, payload string
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		counts[name] = int(gjson.Get(payload, "#").Int())
	}
	return counts, rows.Err()
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.drv.Close()
}
