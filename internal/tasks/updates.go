package tasks

import (
	"fmt"

	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/shared"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Connect Phase = iota
	Submit
	Generating
	Streaming
	Finished
	Analyze
	StoreSentiment
	Regenerate
	FetchThread
	ExportThread
)

func (p Phase) String() string {
	switch p {
	case Connect:
		return "connect"
	case Submit:
		return "submit"
	case Generating:
		return "generating"
	case Streaming:
		return "streaming"
	case Finished:
		return "finished"
	case Analyze:
		return "analyze"
	case StoreSentiment:
		return "store_sentiment"
	case Regenerate:
		return "regenerate"
	case FetchThread:
		return "fetch_thread"
	case ExportThread:
		return "export_thread"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func connectUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Connect, Step: 1, Total: 1, Message: "Connecting to live updates..."}
}

func submitUpdate(req string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Submit,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Submitting prompt: %s", shared.Truncate(req, 48)),
	}
}

func acceptedUpdate(thread *models.Thread) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Submit,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Accepted in thread %s", thread.ID),
		Data:    thread,
	}
}

// contentUpdate reports the record's state after a live update was applied.
func contentUpdate(step int, c models.Content) ProgressUpdate {
	phase := Generating
	switch {
	case c.Status.Terminal():
		phase = Finished
	case c.GeneratedContent != "":
		phase = Streaming
	}

	msg := fmt.Sprintf("Status: %s", models.StatusLabel(string(c.Status)))
	if phase == Streaming {
		msg = fmt.Sprintf("Receiving content (%d chars)...", len(c.GeneratedContent))
	}
	return ProgressUpdate{Phase: phase, Step: step, Message: msg, Data: c}
}

func analyzeUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Analyze, Step: 1, Total: 1, Message: "Analyzing feedback..."}
}

func storeSentimentUpdate(s models.Sentiment) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StoreSentiment,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saving sentiment: %s", shared.TitleCase(string(s))),
	}
}

func regenerateUpdate(threadID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Regenerate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Regenerating in thread %s...", threadID),
	}
}

func fetchThreadUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchThread,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching: %s...", step, total, id),
	}
}

func exportCompletedUpdate(step, total int, title, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportThread,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, title, path),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportThread,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
