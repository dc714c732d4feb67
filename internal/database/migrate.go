package database

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

// Constraints AutoMigrate cannot express live in plain SQL migrations.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

func applySQLMigrations(sqlDB *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(sqlDB, "migrations")
}
