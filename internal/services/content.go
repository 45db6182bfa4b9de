package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/shared"
)

// GenerateRequest submits a prompt. An empty ThreadID starts a new thread.
type GenerateRequest struct {
	Prompt      string             `validate:"required,max=4000"`
	ContentType models.ContentType `validate:"required,oneof=blog_post product_description social_media_caption article other"`
	ThreadID    string
	Sentiment   models.Sentiment `validate:"omitempty,oneof=positive neutral negative"`
	Regenerate  bool
}

type generateBody struct {
	Prompt      string             `json:"prompt"`
	ContentType models.ContentType `json:"contentType"`
	ThreadID    *string            `json:"threadId"`
	Sentiment   models.Sentiment   `json:"sentiment,omitempty"`
	Regenerate  bool               `json:"regenerate,omitempty"`
}

// SentimentResult is the server's classification of free-text feedback.
type SentimentResult struct {
	Sentiment models.Sentiment `json:"sentiment"`
	Message   string           `json:"message,omitempty"`
	Content   *models.Content  `json:"content,omitempty"`
}

// ContentAPI wraps the content and sentiment endpoints.
type ContentAPI struct {
	gw *Gateway
}

func NewContentAPI(gw *Gateway) *ContentAPI {
	return &ContentAPI{gw: gw}
}

// Generate requests a new generation and returns the thread it belongs to.
//
// The returned thread's LastContent is usually still pending; completion
// arrives over the live channel.
func (c *ContentAPI) Generate(ctx context.Context, req GenerateRequest) (*models.Thread, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	body := generateBody{
		Prompt:      req.Prompt,
		ContentType: req.ContentType,
		Sentiment:   req.Sentiment,
		Regenerate:  req.Regenerate,
	}
	if req.ThreadID != "" {
		body.ThreadID = &req.ThreadID
	}

	var thread models.Thread
	if err := c.gw.Send(ctx, Request{Method: http.MethodPost, Path: "/content/generate", Body: body}, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// Regenerate asks for a fresh generation of prompt in an existing thread after negative feedback.
func (c *ContentAPI) Regenerate(ctx context.Context, threadID, prompt string, contentType models.ContentType) (*models.Thread, error) {
	if threadID == "" {
		return nil, fmt.Errorf("%w: thread id", shared.ErrMissingArgument)
	}
	return c.Generate(ctx, GenerateRequest{
		Prompt:      prompt,
		ContentType: contentType,
		ThreadID:    threadID,
		Sentiment:   models.Negative,
		Regenerate:  true,
	})
}

// UpdateSentiment records a sentiment on a content item.
func (c *ContentAPI) UpdateSentiment(ctx context.Context, contentID string, sentiment models.Sentiment) (*models.Content, error) {
	if contentID == "" {
		return nil, fmt.Errorf("%w: content id", shared.ErrMissingArgument)
	}
	if !sentiment.Valid() {
		return nil, fmt.Errorf("%w: sentiment %q", shared.ErrInvalidArgument, sentiment)
	}

	var content models.Content
	req := Request{
		Method: http.MethodPatch,
		Path:   "/content/" + url.PathEscape(contentID),
		Body:   map[string]models.Sentiment{"sentiment": sentiment},
	}
	if err := c.gw.Send(ctx, req, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

// AnalyzeSentiment classifies free-text feedback about a content item.
func (c *ContentAPI) AnalyzeSentiment(ctx context.Context, contentID, feedback string) (*SentimentResult, error) {
	if contentID == "" {
		return nil, fmt.Errorf("%w: content id", shared.ErrMissingArgument)
	}
	if feedback == "" {
		return nil, fmt.Errorf("%w: feedback", shared.ErrMissingArgument)
	}

	var result SentimentResult
	req := Request{
		Method: http.MethodPost,
		Path:   "/sentiment/analyze",
		Body:   map[string]string{"contentId": contentID, "prompt": feedback},
	}
	if err := c.gw.Send(ctx, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
