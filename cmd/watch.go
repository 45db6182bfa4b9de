package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/acs/internal/live"
	"github.com/desertthunder/acs/internal/shared"
	"github.com/desertthunder/acs/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch launches the interactive view of one thread with live updates.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	threadID := cmd.StringArg("thread")
	if threadID == "" {
		return fmt.Errorf("%w: thread id", shared.ErrMissingArgument)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.config.Log.LogLevel())
	if err := r.SetLogger(fileLogger); err != nil {
		return err
	}

	deps := ui.Deps{
		Threads:  r.client.Threads,
		Content:  r.client.Content,
		Feedback: r.feedback,
	}

	var ch *live.Channel
	if !cmd.Bool("offline") {
		if ch, err = r.openStream(ctx); err != nil {
			r.logger.Warn("live updates unavailable", "error", err)
		} else {
			defer ch.Close()
			deps.Events = ch.Events()
			deps.Conn = ch.State
		}
	}

	p := tea.NewProgram(ui.NewModel(ctx, threadID, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
