package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed migrations
var migrationsFS embed.FS

const initMigration = "000001_init.up.sql"

// Migrations returns the golang-migrate files for a dialect
func Migrations(d Dialect) (fs.FS, error) {
	switch d {
	case DialectSQLite, DialectPostgres:
		return fs.Sub(migrationsFS, "migrations/"+string(d))
	default:
		return nil, fmt.Errorf("unknown dialect %q", d)
	}
}

// Initialize creates the tables and indexes if they are absent. It applies
// the same statements as the first migration, all of which are
// IF NOT EXISTS, so it is safe on every startup.
func (s *Store) Initialize(ctx context.Context) error {
	fsys, err := Migrations(s.dialect)
	if err != nil {
		return fault("initialize", err)
	}
	script, err := fs.ReadFile(fsys, initMigration)
	if err != nil {
		return fault("initialize", err)
	}

	defer s.lock("initialize")()
	for _, stmt := range splitStatements(string(script)) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fault("initialize", err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
