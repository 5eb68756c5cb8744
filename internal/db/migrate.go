package db

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// Schema changes ship inside the binary so a deploy can never drift from its
// migrations.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations brings the metadata schema up to date. Goose tracks applied
// versions in its own table, so calling this on every start is safe.
func RunMigrations(sqlDB *sql.DB) error {
	goose.SetBaseFS(migrationFiles)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}
