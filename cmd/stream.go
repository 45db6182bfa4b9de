package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/acs/internal/live"
	"github.com/desertthunder/acs/internal/shared"
	"github.com/urfave/cli/v3"
)

// streamLine is the JSON shape of one printed event.
type streamLine struct {
	Kind     live.Kind  `json:"kind"`
	Event    live.Event `json:"event"`
	ThreadID string     `json:"thread_id,omitempty"`
}

// Stream prints live events for the signed-in user until interrupted.
//
// --thread limits output to one thread's records.
func (r *Runner) Stream(ctx context.Context, cmd *cli.Command) error {
	ch, err := r.openStream(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	filter := cmd.String("thread")
	r.logger.Info("listening for live updates", "thread", filter)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-r.streamErr:
			return fmt.Errorf("%w: %v (sign in again with `acs auth login`)", shared.ErrStreamClosed, err)
		case ev, ok := <-ch.Events():
			if !ok {
				return nil
			}
			threadID := eventThread(ev)
			if filter != "" && threadID != filter {
				continue
			}
			if cmd.Bool("json") {
				if err := r.writeJSON(streamLine{Kind: ev.Kind(), Event: ev, ThreadID: threadID}, false); err != nil {
					return err
				}
				continue
			}
			if err := r.writePlain("%s\n", describeEvent(ev)); err != nil {
				return err
			}
		}
	}
}

func eventThread(ev live.Event) string {
	switch e := ev.(type) {
	case live.StatusEvent:
		return e.ThreadID
	case live.ContentEvent:
		return e.ThreadID
	case live.ErrorEvent:
		return e.ThreadID
	case live.CompleteEvent:
		return e.ThreadID
	}
	return ""
}

// describeEvent renders ev as one line of plain output.
func describeEvent(ev live.Event) string {
	switch e := ev.(type) {
	case live.StatusEvent:
		return fmt.Sprintf("[%s] status → %s", e.ID, e.Status)
	case live.ContentEvent:
		if e.Chunk {
			return fmt.Sprintf("[%s] +%d chars", e.ID, len(e.Text))
		}
		return fmt.Sprintf("[%s] content: %s", e.ID, shared.Truncate(e.Text, 60))
	case live.ErrorEvent:
		return fmt.Sprintf("[%s] failed: %s", e.ID, e.Message)
	case live.CompleteEvent:
		return fmt.Sprintf("[%s] completed (%d chars)", e.ID, len(e.Text))
	}
	return fmt.Sprintf("[%s] %s", ev.ContentID(), ev.Kind())
}
