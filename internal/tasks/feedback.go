package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/services"
	"github.com/desertthunder/acs/internal/shared"
)

// FeedbackRequest is feedback on one generated record.
type FeedbackRequest struct {
	Content     models.Content     // Record the feedback is about
	ThreadID    string             // Owning thread, required for regeneration
	ContentType models.ContentType // Thread type, reused when regenerating
	Text        string             // A sentiment word or free-text feedback
	Regenerate  bool               // Regenerate when the resulting sentiment is negative
}

// FeedbackResult is what was stored, plus the follow-up generation if one ran.
type FeedbackResult struct {
	Sentiment   models.Sentiment
	Message     string
	Analyzed    bool
	Content     *models.Content
	Regenerated *GenerationResult
}

// FeedbackEngine records sentiment on completed content.
type FeedbackEngine struct {
	content    services.ContentService
	generation *GenerationEngine
}

// NewFeedbackEngine creates an engine. generation may be nil when regeneration is not needed.
func NewFeedbackEngine(content services.ContentService, generation *GenerationEngine) *FeedbackEngine {
	return &FeedbackEngine{content: content, generation: generation}
}

// ParseSentiment reports whether text is exactly one of the sentiment words, ignoring case and surrounding space.
func ParseSentiment(text string) (models.Sentiment, bool) {
	s := models.Sentiment(strings.ToLower(strings.TrimSpace(text)))
	return s, s.Valid()
}

// Submit stores feedback on req.Content.
//
// A bare sentiment word is stored directly. Other text is sent for analysis and
// the resulting sentiment is stored. Only completed content accepts feedback.
func (e *FeedbackEngine) Submit(ctx context.Context, progress chan<- ProgressUpdate, req FeedbackRequest) (*FeedbackResult, error) {
	if e.content == nil {
		return nil, fmt.Errorf("%w: content service not initialized", shared.ErrServiceUnavailable)
	}
	if req.Content.ID == "" {
		return nil, fmt.Errorf("%w: content id", shared.ErrMissingArgument)
	}
	if req.Content.Status != models.ContentCompleted {
		return nil, fmt.Errorf("%w: content %s is %s", shared.ErrContentNotReady, req.Content.ID, req.Content.Status)
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: feedback", shared.ErrMissingArgument)
	}

	result := &FeedbackResult{}
	sentiment, direct := ParseSentiment(text)
	if !direct {
		sendProgress(progress, analyzeUpdate())
		analysis, err := e.content.AnalyzeSentiment(ctx, req.Content.ID, text)
		if err != nil {
			return nil, err
		}
		result.Analyzed = true
		result.Message = analysis.Message
		sentiment = analysis.Sentiment
	}

	if sentiment.Valid() {
		sendProgress(progress, storeSentimentUpdate(sentiment))
		updated, err := e.content.UpdateSentiment(ctx, req.Content.ID, sentiment)
		if err != nil {
			return nil, err
		}
		result.Sentiment = sentiment
		result.Content = updated
	}

	if result.Sentiment != models.Negative || !req.Regenerate {
		return result, nil
	}

	if req.ThreadID == "" {
		return result, fmt.Errorf("%w: thread id is required to regenerate", shared.ErrMissingArgument)
	}

	gen := e.generation
	if gen == nil {
		gen = NewGenerationEngine(e.content, nil, 0)
	}
	regenerated, err := gen.Regenerate(ctx, progress, req.ThreadID, req.Content.Prompt, req.ContentType)
	result.Regenerated = regenerated
	return result, err
}
