// Command migrate applies or inspects the embedded database migrations
// without starting the server.
//
// Usage:
//
//	migrate [up|up-by-one|down|redo|status|version]
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/dukerupert/mercato/internal"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func run() error {
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	return internal.MigrateCommand(context.Background(), db, command, logger)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
