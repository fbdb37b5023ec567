package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/movli/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configLabel()

	if cmd.Bool("force") {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to replace config file: %w", err)
		}
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Configuration written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.firebase.api_key and credentials.tmdb.api_key\n")
	r.writePlain("2. Run 'movli auth login' to sign in\n")
	return nil
}

// SetupDatabase initializes the reference server database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Info("running database migrations")
	applied, err := shared.NewMigrator(db).Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Applied %d migration(s) to %s\n", applied, r.config.Database.Path)
}

// SetupStatus lists embedded migrations and whether each has been applied.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	statuses, err := shared.NewMigrator(db).Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		rows = append(rows, []string{strconv.Itoa(s.Version), s.Name, state})
	}
	return r.writeTable([]string{"Version", "Name", "State"}, rows, 1)
}

// SetupRollback rolls back the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.NewMigrator(db).Down(ctx); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return r.writePlain("✓ Rolled back the latest migration\n")
}

func (r *Runner) openDatabase() (*sql.DB, error) {
	r.logger.Info("opening database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database)
	return db, nil
}
