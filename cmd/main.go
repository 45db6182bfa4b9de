package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/acs/internal/services"
	"github.com/desertthunder/acs/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	} else if err := shared.ApplyEnv(config); err != nil {
		logger.Warn("ignoring environment overrides", "error", err)
	}
	shared.SetLogLevel(logger, config.Log.LogLevel())

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		logger.Warn("local database unavailable, credentials will not persist", "error", err)
		db = nil
	}

	runner, err := NewRunner(RunnerOpts{Config: config, DB: db, Logger: logger})
	if err != nil {
		logger.Fatalf("failed to initialize: %v", err)
	}

	app := &cli.Command{
		Name:     "acs",
		Usage:    "Generate content, give feedback and follow generations live",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = app.Run(ctx, os.Args)
	stop()
	runner.Close()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err))
		os.Exit(1)
	}
}

// errorMessage prefers the user-facing text of API failures.
func errorMessage(err error) string {
	if apiErr, ok := services.AsAPIError(err); ok && apiErr.UserMessage != "" {
		return apiErr.UserMessage
	}
	if errors.Is(err, context.Canceled) {
		return "interrupted"
	}
	return fmt.Sprintf("error: %v", err)
}
