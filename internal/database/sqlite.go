package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"eivu-go/internal/database/migrations"
	"eivu-go/internal/eivu"
)

// SQLiteDatabase implements eivu.Database using SQLite.
type SQLiteDatabase struct {
	*queries

	db   *sqlx.DB
	path string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	s := NewSQLiteDatabaseFromDB(db)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	x := sqlx.NewDb(db, "sqlite3")
	return &SQLiteDatabase{
		queries: &queries{ext: x},
		db:      x,
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: an in-memory database only exists on the connection
	// that created it, and the PRAGMAs below are per connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// WithTx runs fn inside a transaction. The pool holds a single connection,
// so fn must not touch s while it runs.
func (s *SQLiteDatabase) WithTx(ctx context.Context, fn func(tx eivu.Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{ext: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Migrate applies every pending schema migration.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db.DB)
}

// CheckMigrations verifies that the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db.DB)
}

// MigrationStatus reports the schema version of the database.
func (s *SQLiteDatabase) MigrationStatus() (migrations.Status, error) {
	return migrations.ReadStatus(s.db.DB)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Path returns the path the database was opened with, "" when it wraps an
// existing connection.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DumpSchema returns the CREATE statements of the migrated schema, tables
// first, excluding SQLite internals and the migration bookkeeping table.
func DumpSchema(ctx context.Context) (string, error) {
	db, err := OpenConnection(":memory:")
	if err != nil {
		return "", err
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return "", err
	}

	var statements []string
	err = sqlx.SelectContext(ctx, sqlx.NewDb(db, "sqlite3"), &statements, `
		SELECT sql || ';'
		FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY
		  CASE type
		    WHEN 'table' THEN 1
		    WHEN 'index' THEN 2
		  END,
		  name`)
	if err != nil {
		return "", fmt.Errorf("reading schema: %w", err)
	}

	return strings.Join(statements, "\n\n") + "\n", nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// Compile-time check that SQLiteDatabase implements eivu.Database interface
var _ eivu.Database = (*SQLiteDatabase)(nil)
