package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/acs/internal/live"
	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/services"
	"github.com/desertthunder/acs/internal/shared"
)

// Stream is an open source of live updates. [*live.Channel] satisfies it.
type Stream interface {
	Events() <-chan live.Event
	Close() error
}

// StreamOpener opens a stream scoped to the signed-in user.
type StreamOpener func(ctx context.Context) (Stream, error)

// GenerationResult is the outcome of a followed generation.
type GenerationResult struct {
	Thread  *models.Thread // Thread returned by the submit call
	Content models.Content // Final state of the generated record
	Updates int            // Live updates applied to the record
}

// GenerationEngine submits prompts and follows them over the live channel until they settle.
type GenerationEngine struct {
	content services.ContentService
	open    StreamOpener
	timeout time.Duration
}

// NewGenerationEngine creates an engine. A nil opener submits without following.
func NewGenerationEngine(content services.ContentService, open StreamOpener, timeout time.Duration) *GenerationEngine {
	return &GenerationEngine{content: content, open: open, timeout: timeout}
}

// Run submits req and waits for the new content to complete or fail.
//
// The stream is opened before submitting so updates published while the
// request is in flight are queued rather than lost.
func (e *GenerationEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, req services.GenerateRequest) (*GenerationResult, error) {
	return e.follow(ctx, progress, req.Prompt, func(ctx context.Context) (*models.Thread, error) {
		return e.content.Generate(ctx, req)
	})
}

// Regenerate asks for a new generation of prompt in an existing thread and follows it.
func (e *GenerationEngine) Regenerate(ctx context.Context, progress chan<- ProgressUpdate, threadID, prompt string, contentType models.ContentType) (*GenerationResult, error) {
	sendProgress(progress, regenerateUpdate(threadID))
	return e.follow(ctx, progress, prompt, func(ctx context.Context) (*models.Thread, error) {
		return e.content.Regenerate(ctx, threadID, prompt, contentType)
	})
}

func (e *GenerationEngine) follow(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	prompt string,
	submit func(context.Context) (*models.Thread, error),
) (*GenerationResult, error) {
	if e.content == nil {
		return nil, fmt.Errorf("%w: content service not initialized", shared.ErrServiceUnavailable)
	}

	var stream Stream
	if e.open != nil {
		sendProgress(progress, connectUpdate())
		s, err := e.open(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open live updates: %w", err)
		}
		stream = s
		defer stream.Close()
	}

	sendProgress(progress, submitUpdate(prompt))
	thread, err := submit(ctx)
	if err != nil {
		return nil, err
	}
	if thread == nil || thread.LastContent == nil || thread.LastContent.ID == "" {
		return nil, fmt.Errorf("%w: response has no content record", shared.ErrAPIRequest)
	}
	sendProgress(progress, acceptedUpdate(thread))

	result := &GenerationResult{Thread: thread, Content: *thread.LastContent}
	if result.Content.Status.Terminal() || stream == nil {
		return result, outcome(result.Content)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	watchCtx, stop := context.WithCancel(ctx)
	defer stop()

	state := live.NewState([]models.Content{result.Content})
	consumeErr := state.Consume(watchCtx, stream.Events(), func(_ live.Event, rec models.Content) {
		result.Updates++
		sendProgress(progress, contentUpdate(result.Updates, rec))
		if rec.Status.Terminal() {
			stop()
		}
	})

	result.Content, _ = state.Get(result.Content.ID)
	if result.Content.Status.Terminal() {
		return result, outcome(result.Content)
	}

	switch {
	case consumeErr == nil:
		return result, fmt.Errorf("%w before generation finished", shared.ErrStreamClosed)
	case errors.Is(consumeErr, context.DeadlineExceeded):
		return result, fmt.Errorf("%w: waiting for generation", shared.ErrTimeout)
	default:
		return result, consumeErr
	}
}

// outcome maps a settled record to the error reported to callers.
func outcome(c models.Content) error {
	if c.Status != models.ContentFailed {
		return nil
	}
	if c.Error == "" {
		return shared.ErrGenerationFailed
	}
	return fmt.Errorf("%w: %s", shared.ErrGenerationFailed, c.Error)
}
