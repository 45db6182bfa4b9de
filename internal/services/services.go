package services

import (
	"context"

	"github.com/desertthunder/acs/internal/models"
)

// ContentService is the subset of the API that generation and feedback workflows depend on.
type ContentService interface {
	// Generate submits a prompt and returns the owning thread with its pending content.
	Generate(ctx context.Context, req GenerateRequest) (*models.Thread, error)

	// Regenerate re-runs a prompt in an existing thread after negative feedback.
	Regenerate(ctx context.Context, threadID, prompt string, contentType models.ContentType) (*models.Thread, error)

	// UpdateSentiment stores a sentiment on a content item.
	UpdateSentiment(ctx context.Context, contentID string, sentiment models.Sentiment) (*models.Content, error)

	// AnalyzeSentiment classifies free-text feedback about a content item.
	AnalyzeSentiment(ctx context.Context, contentID, feedback string) (*SentimentResult, error)
}

// ThreadService is the read side of the thread endpoints.
type ThreadService interface {
	List(ctx context.Context, q ThreadQuery) (*models.ThreadsPage, error)
	Summary(ctx context.Context) (*models.Summary, error)
	Get(ctx context.Context, threadID string) (*models.ThreadDetails, error)
}

var (
	_ ContentService = (*ContentAPI)(nil)
	_ ThreadService  = (*ThreadsAPI)(nil)
)

// Client bundles the typed endpoint wrappers that share one [Gateway].
type Client struct {
	Gateway *Gateway
	Auth    *AuthAPI
	Threads *ThreadsAPI
	Content *ContentAPI
}

// NewClient creates a gateway from opts and wires every endpoint wrapper to it.
func NewClient(opts GatewayOpts) (*Client, error) {
	gw, err := NewGateway(opts)
	if err != nil {
		return nil, err
	}
	return &Client{
		Gateway: gw,
		Auth:    NewAuthAPI(gw),
		Threads: NewThreadsAPI(gw),
		Content: NewContentAPI(gw),
	}, nil
}
