// Package store persists the game master's entity, stage, and group
// records in a local SQLite database. Records are keyed: entities and
// stages by UUID string, groups by an auto-incrementing integer id with a
// uniqueness constraint on name.
//
// The store is an external collaborator of the rendering core — it hands
// resolved stage payloads to the event protocol but never touches a canvas.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned by Get operations when no record has the id.
var ErrNotFound = errors.New("not found")

// ConstraintViolation is a user-correctable uniqueness failure, surfaced
// with a friendly field-specific message instead of a raw SQLite error. The
// triggering write is rolled back whole; nothing is left half-written.
type ConstraintViolation struct {
	Field   string
	Message string
}

func (e *ConstraintViolation) Error() string { return e.Message }

// Store wraps the SQLite database holding all persistent records.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Pass ":memory:" for an ephemeral database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout=5000&_pragma=foreign_keys=on", path)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS entities (
    id                   TEXT PRIMARY KEY,
    name                 TEXT NOT NULL DEFAULT '',
    image                TEXT NOT NULL DEFAULT '',
    initiative           INTEGER NOT NULL DEFAULT 0,
    is_player_controlled INTEGER NOT NULL DEFAULT 0,
    display_on_map       INTEGER NOT NULL DEFAULT 1,
    health               INTEGER NOT NULL DEFAULT 0,
    max_health           INTEGER NOT NULL DEFAULT 0,
    temp_health          INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS groups (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS stages (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL DEFAULT '',
    background_image TEXT NOT NULL DEFAULT '',
    background_x     REAL,
    background_y     REAL,
    background_scale REAL NOT NULL DEFAULT 1,
    grid_scale       REAL NOT NULL DEFAULT 32,
    prev_stage       TEXT NOT NULL DEFAULT '',
    next_stage       TEXT NOT NULL DEFAULT '',
    stage_group      INTEGER REFERENCES groups(id) ON DELETE SET NULL,
    ds_filepath      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS stage_entities (
    id            TEXT PRIMARY KEY,
    stage_id      TEXT NOT NULL REFERENCES stages(id) ON DELETE CASCADE,
    layer_id      TEXT NOT NULL DEFAULT '',
    entity_id     TEXT NOT NULL,
    x             INTEGER NOT NULL DEFAULT 0,
    y             INTEGER NOT NULL DEFAULT 0,
    z             REAL NOT NULL DEFAULT 0,
    name_override TEXT NOT NULL DEFAULT '',
    size          TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_stage_entities_stage ON stage_entities(stage_id);
CREATE INDEX IF NOT EXISTS idx_stages_group ON stages(stage_group);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// constraintErr maps a SQLite uniqueness failure onto a ConstraintViolation
// for the given field, or returns the error unchanged.
func constraintErr(err error, field, message string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &ConstraintViolation{Field: field, Message: message}
	}
	return err
}
