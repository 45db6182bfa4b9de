package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/services"
	"github.com/desertthunder/acs/internal/shared"
	"github.com/desertthunder/acs/internal/tasks"
	"github.com/urfave/cli/v3"
)

// generationEngine picks the engine for a command.
//
// Following needs the cached user to scope the live channel, so without one
// the prompt is only submitted.
func (r *Runner) generationEngine(follow bool, timeout time.Duration) *tasks.GenerationEngine {
	if follow {
		if _, err := r.currentUser(); err != nil {
			r.logger.Warn("live updates unavailable, submitting without following", "error", err)
			follow = false
		}
	}
	switch {
	case !follow:
		return tasks.NewGenerationEngine(r.client.Content, nil, 0)
	case timeout > 0:
		return tasks.NewGenerationEngine(r.client.Content, r.streamOpener, timeout)
	default:
		return r.generation
	}
}

// printProgress writes generation and feedback updates until progressCh is closed.
func (r *Runner) printProgress(progressCh <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	lastPhase := tasks.Phase(-1)
	for update := range progressCh {
		switch update.Phase {
		case tasks.Streaming:
			if lastPhase != tasks.Streaming {
				r.writePlain("✍️  %s\n", update.Message)
			} else {
				r.logger.Debug(update.Message)
			}
		case tasks.Finished:
			r.writePlain("🏁 %s\n", update.Message)
		case tasks.Connect, tasks.Analyze:
			r.writePlain("🔌 %s\n", update.Message)
		default:
			r.writePlain("   %s\n", update.Message)
		}
		lastPhase = update.Phase
	}
}

// ContentGenerate submits a prompt and follows the new content until it settles.
func (r *Runner) ContentGenerate(ctx context.Context, cmd *cli.Command) error {
	prompt := cmd.String("prompt")
	if prompt == "" {
		prompt = cmd.StringArg("prompt")
	}

	req := services.GenerateRequest{
		Prompt:      prompt,
		ContentType: models.ContentType(cmd.String("type")),
		ThreadID:    cmd.String("thread"),
	}
	engine := r.generationEngine(!cmd.Bool("no-follow"), time.Duration(cmd.Int("timeout"))*time.Second)

	r.logger.Info("generating content", "type", req.ContentType, "thread", req.ThreadID)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.printProgress(progressCh, done)

	result, err := engine.Run(ctx, progressCh, req)
	close(progressCh)
	<-done

	if result != nil && cmd.Bool("json") {
		if werr := r.writeJSON(result, cmd.Bool("pretty")); werr != nil {
			return werr
		}
		return err
	}
	if result != nil {
		r.writeGeneration(result)
	}
	return err
}

func (r *Runner) writeGeneration(result *tasks.GenerationResult) {
	c := result.Content
	r.writePlain("\n")
	r.writePlainHeader(fmt.Sprintf("%s · %s", result.Thread.Title, models.StatusLabel(string(c.Status))))
	r.writePlain("Thread:  %s\n", result.Thread.ID)
	r.writePlain("Content: %s\n", c.ID)
	if c.GeneratedContent != "" {
		r.writePlain("\n%s\n", c.GeneratedContent)
	}
	if c.Status == models.ContentPending || c.Status == models.ContentProcessing {
		r.writePlain("\nStill %s. Run `acs threads show %s` later.\n", c.Status, result.Thread.ID)
	}
}

// ContentSentiment stores a sentiment word on a content record.
func (r *Runner) ContentSentiment(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: content id", shared.ErrMissingArgument)
	}

	sentiment, ok := tasks.ParseSentiment(cmd.StringArg("sentiment"))
	if !ok {
		return fmt.Errorf("%w: sentiment must be positive, neutral or negative", shared.ErrInvalidArgument)
	}

	updated, err := r.client.Content.UpdateSentiment(ctx, id, sentiment)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(updated, cmd.Bool("pretty"))
	}
	return r.writePlain("✓ Marked %s as %s\n", id, shared.TitleCase(string(sentiment)))
}

// ContentFeedback records feedback on a thread's content and regenerates on request.
//
// The latest generation is used unless --content names another one.
func (r *Runner) ContentFeedback(ctx context.Context, cmd *cli.Command) error {
	threadID := cmd.StringArg("thread")
	if threadID == "" {
		return fmt.Errorf("%w: thread id", shared.ErrMissingArgument)
	}

	details, err := r.client.Threads.Get(ctx, threadID)
	if err != nil {
		return err
	}

	content, err := pickContent(details, cmd.String("content"))
	if err != nil {
		return err
	}

	feedback := r.feedback
	if timeout := cmd.Int("timeout"); timeout > 0 {
		feedback = tasks.NewFeedbackEngine(r.client.Content, r.generationEngine(true, time.Duration(timeout)*time.Second))
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.printProgress(progressCh, done)

	result, err := feedback.Submit(ctx, progressCh, tasks.FeedbackRequest{
		Content:     content,
		ThreadID:    details.ID,
		ContentType: details.Type,
		Text:        cmd.String("text"),
		Regenerate:  cmd.Bool("regenerate"),
	})
	close(progressCh)
	<-done

	if result == nil {
		return err
	}

	switch {
	case result.Sentiment.Valid():
		r.writePlain("✓ Sentiment: %s\n", shared.TitleCase(string(result.Sentiment)))
	case result.Analyzed:
		r.writePlain("Feedback analyzed, no sentiment stored\n")
	}
	if result.Message != "" {
		r.writePlain("%s\n", result.Message)
	}
	if result.Regenerated != nil {
		r.writeGeneration(result.Regenerated)
	} else if result.Sentiment == models.Negative && !cmd.Bool("regenerate") {
		r.writePlain("Run again with --regenerate to get a new version.\n")
	}
	return err
}

// pickContent returns the record with id, or the most recent one when id is empty.
func pickContent(details *models.ThreadDetails, id string) (models.Content, error) {
	if len(details.Contents) == 0 {
		return models.Content{}, fmt.Errorf("%w: thread %s has no content", shared.ErrNotFound, details.ID)
	}
	if id == "" {
		return details.Contents[len(details.Contents)-1], nil
	}
	for _, c := range details.Contents {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Content{}, fmt.Errorf("%w: content %s in thread %s", shared.ErrNotFound, id, details.ID)
}
