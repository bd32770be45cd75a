package storage

import (
	"context"
	"fmt"

	"github.com/randalmurphal/repoback/internal/storage/driver"
)

// Backend names.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config selects and configures the storage backend.
type Config struct {
	// Backend is json (default), sqlite or postgres.
	Backend string `yaml:"backend" json:"backend"`

	// DSN is the SQLite path or PostgreSQL connection string.
	// Ignored by the json backend.
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// Validate checks the backend name and required DSN.
func (c Config) Validate() error {
	switch c.Backend {
	case "", BackendJSON:
		return nil
	case BackendSQLite, BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("storage backend %s requires a dsn", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("unknown storage backend: %s (valid: json, sqlite, postgres)", c.Backend)
	}
}

// New creates a Store for cfg.
func New(ctx context.Context, cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendSQLite, BackendPostgres:
		dialect, err := driver.ParseDialect(cfg.Backend)
		if err != nil {
			return nil, err
		}
		return OpenSQLStore(ctx, dialect, cfg.DSN)
	default:
		return NewJSONStore(), nil
	}
}
