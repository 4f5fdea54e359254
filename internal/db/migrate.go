package db

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// goose keeps dialect and base FS in package globals.
var gooseMu sync.Mutex

func RunMigrations(database *sql.DB, dialect Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect.gooseDialect()); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	if err := goose.Up(database, "migrations/"+dialect.String()); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
