// Package sqlstore reads panchayaths, agent rosters and daily notes from the
// record store. Local installs use sqlite; the hosted store is Postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqrl "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var ErrNotFound = errors.New("record not found")

type Store struct {
	db     *sql.DB
	driver string
	sb     sqrl.StatementBuilderType
}

// Open connects to an existing store. The schema is expected to exist.
func Open(driver, dsn string, maxOpen int) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return New(db, driver), nil
}

// InitDB opens (or creates) a sqlite database at path and applies the schema.
func InitDB(path string) (*Store, error) {
	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return New(db, DriverSQLite), nil
}

func New(db *sql.DB, driver string) *Store {
	var format sqrl.PlaceholderFormat = sqrl.Question
	if driver == DriverPostgres {
		format = sqrl.Dollar
	}
	return &Store{db: db, driver: driver, sb: sqrl.StatementBuilder.PlaceholderFormat(format)}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) query(ctx context.Context, q sqrl.Sqlizer) (*sql.Rows, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Store) exec(ctx context.Context, q sqrl.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS panchayaths (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_panchayaths_name ON panchayaths(name);

CREATE TABLE IF NOT EXISTS coordinators (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	mobile_number TEXT NOT NULL DEFAULT '',
	panchayath_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coordinators_panchayath ON coordinators(panchayath_id);

CREATE TABLE IF NOT EXISTS supervisors (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	mobile_number TEXT NOT NULL DEFAULT '',
	panchayath_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_supervisors_panchayath ON supervisors(panchayath_id);

CREATE TABLE IF NOT EXISTS group_leaders (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	mobile_number TEXT NOT NULL DEFAULT '',
	panchayath_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_group_leaders_panchayath ON group_leaders(panchayath_id);

CREATE TABLE IF NOT EXISTS pros (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	mobile_number TEXT NOT NULL DEFAULT '',
	panchayath_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pros_panchayath ON pros(panchayath_id);

CREATE TABLE IF NOT EXISTS daily_notes (
	id            TEXT PRIMARY KEY,
	mobile_number TEXT NOT NULL,
	date          TEXT NOT NULL,
	is_leave      INTEGER NOT NULL DEFAULT 0,
	activity      TEXT,
	created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(mobile_number, date)
);
`
