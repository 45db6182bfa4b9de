package main

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/acs/internal/shared"
	"github.com/urfave/cli/v3"
)

// loadConfig reads the config at path, creating it from the template when create is set and it is missing.
func (r *Runner) loadConfig(path string, create bool) *shared.Config {
	if _, err := os.Stat(path); err != nil {
		if !create {
			return r.config
		}
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			return r.config
		}
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		return r.config
	}
	return config
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"), true)

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back last migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	} else {
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	versions, err := shared.AppliedVersions(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.writePlain("Applied migrations: %v\n", versions)
}

// ConfigInit writes a config file from the embedded template.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	return r.writePlain("Wrote %s\n", path)
}

// ConfigShow prints the effective configuration after environment overrides.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"), false)
	if err := shared.ApplyEnv(config); err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(config, true)
	}
	if err := toml.NewEncoder(r.output).Encode(config); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
