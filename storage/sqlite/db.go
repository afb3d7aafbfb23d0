// Package sqlite is the reference persistence adapter: an embedded-schema,
// migration-managed SQLite database implementing store.Store. Grounded on
// the teacher pack's modernc.org/sqlite + embed + golang-migrate wiring,
// simplified to a single fresh-or-migrated path (no legacy schema detection)
// since this service does not ship the multi-version history that pattern
// was built for.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a migrated SQLite connection implementing store.Store (see
// repository.go for the store.Store method set).
type DB struct {
	*sql.DB
}

// Open connects to the SQLite file at path, applies PRAGMAs, and runs any
// pending migrations.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", path, err)
	}
	if err := applyPragmas(conn); err != nil {
		return nil, err
	}
	if err := migrate2(conn); err != nil {
		return nil, err
	}
	return &DB{conn}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("sqlite: applying %q: %w", p, err)
		}
	}
	return nil
}

// migrate2 applies every pending embedded migration. Named to avoid
// colliding with the imported migrate package.
func migrate2(conn *sql.DB) error {
	driver, err := sqlite3.WithInstance(conn, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("sqlite: building migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: loading embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("sqlite: constructing migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("sqlite: applying migrations: %w", err)
	}
	return nil
}
