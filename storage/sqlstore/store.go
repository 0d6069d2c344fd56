package sqlstore

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/errors"
)

// DriverName is the database/sql driver the store opens.
const DriverName = "sqlite3"

// Schema version tracking:
// 0 - empty database
// 1 - entity table for the store's kind
const currentSchemaVersion = 1

// Store is the handle to one kind's SQLite database. Each catalog service owns
// exactly one Store.
type Store struct {
	db     *sqlx.DB
	schema catalog.Schema
}

// Open creates or opens the SQLite database at path for the given kind.
// Applies pragmas and migrations; safe to call on an existing database.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - a single open connection, SQLite has one writer
func Open(path string, schema catalog.Schema) (*Store, error) {
	db, err := sqlx.Open(DriverName, path)
	if err != nil {
		return nil, errors.WrapFatal(err, "sqlstore", "Open", "open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.WrapFatal(err, "sqlstore", "Open", "connect to database")
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, errors.WrapFatal(err, "sqlstore", "Open", "apply pragmas")
	}

	if err := applySchema(db, schema); err != nil {
		db.Close()
		return nil, errors.WrapFatal(err, "sqlstore", "Open", "apply schema")
	}

	return &Store{db: db, schema: schema}, nil
}

// NewStore wraps an already open database without touching its schema.
func NewStore(db *sqlx.DB, schema catalog.Schema) *Store {
	return &Store{db: db, schema: schema}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Schema returns the kind descriptor the store was opened for.
func (s *Store) Schema() catalog.Schema {
	return s.schema
}

func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema runs migrations based on user_version.
func applySchema(db *sqlx.DB, schema catalog.Schema) error {
	var version int
	if err := db.Get(&version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(createTableSQL(schema)); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func createTableSQL(schema catalog.Schema) string {
	cols := make([]string, 0, len(schema.Fields)+1)
	cols = append(cols, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, f := range schema.Fields {
		cols = append(cols, f.Name+" TEXT")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", schema.Table, strings.Join(cols, ", "))
}
