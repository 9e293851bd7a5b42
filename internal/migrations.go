package internal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dukerupert/mercato/migrations"
	"github.com/pressly/goose/v3"
)

// MigrationCommands lists the goose commands MigrateCommand accepts.
var MigrationCommands = []string{"up", "up-by-one", "down", "redo", "status", "version"}

func configureGoose() error {
	goose.SetBaseFS(migrations.MigrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// RunMigrations executes all pending database migrations
func RunMigrations(db *sql.DB, logger *slog.Logger) error {
	if err := configureGoose(); err != nil {
		return err
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("database migrations applied", "version", version)

	return nil
}

// MigrateCommand runs one goose command against the embedded migrations.
func MigrateCommand(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	if !slices.Contains(MigrationCommands, command) {
		return fmt.Errorf("unknown migration command %q (want one of %v)", command, MigrationCommands)
	}
	if err := configureGoose(); err != nil {
		return err
	}

	logger.Info("running migration command", "command", command)
	if err := goose.RunContext(ctx, command, db, "."); err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	return nil
}
