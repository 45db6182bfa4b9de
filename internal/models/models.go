package models

import (
	"time"
)

// Model defines the base interface for locally persisted models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for local data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// ContentStatus is the lifecycle status of a generated [Content].
type ContentStatus string

const (
	ContentPending    ContentStatus = "pending"
	ContentProcessing ContentStatus = "processing"
	ContentCompleted  ContentStatus = "completed"
	ContentFailed     ContentStatus = "failed"
)

// Terminal reports whether no further updates are expected for the status.
func (s ContentStatus) Terminal() bool {
	return s == ContentCompleted || s == ContentFailed
}

// ContentType is the kind of artifact a thread generates.
type ContentType string

const (
	BlogPost           ContentType = "blog_post"
	ProductDescription ContentType = "product_description"
	SocialMediaCaption ContentType = "social_media_caption"
	Article            ContentType = "article"
	OtherContent       ContentType = "other"
)

// ContentTypes lists the content types accepted when creating a thread.
func ContentTypes() []ContentType {
	return []ContentType{BlogPost, ProductDescription, SocialMediaCaption, Article, OtherContent}
}

// ThreadStatus is the lifecycle status of a [Thread].
type ThreadStatus string

const (
	ThreadActive   ThreadStatus = "active"
	ThreadArchived ThreadStatus = "archived"
	ThreadDeleted  ThreadStatus = "deleted"
)

// Sentiment is the feedback classification attached to a [Content].
type Sentiment string

const (
	Positive Sentiment = "positive"
	Neutral  Sentiment = "neutral"
	Negative Sentiment = "negative"
)

// Valid reports whether s is one of the three known sentiments.
func (s Sentiment) Valid() bool {
	return s == Positive || s == Neutral || s == Negative
}

// Content is a single generated artifact tied to a thread.
type Content struct {
	ID               string        `json:"_id"`
	ThreadID         string        `json:"threadId"`
	Prompt           string        `json:"prompt"`
	GeneratedContent string        `json:"generatedContent"`
	Status           ContentStatus `json:"status"`
	Sentiment        Sentiment     `json:"sentiment,omitempty"`
	Feedback         string        `json:"feedback,omitempty"`
	Error            string        `json:"error,omitempty"`
	StatusUpdatedAt  *time.Time    `json:"statusUpdatedAt,omitempty"`
	CreatedAt        *time.Time    `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time    `json:"updatedAt,omitempty"`
}

// Thread is a conversation-like container of generation requests.
type Thread struct {
	ID          string       `json:"_id"`
	UserID      string       `json:"userId"`
	Title       string       `json:"title"`
	Type        ContentType  `json:"type"`
	Status      ThreadStatus `json:"status"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time   `json:"updatedAt,omitempty"`
	LastContent *Content     `json:"lastContent,omitempty"`
}

// ThreadDetails is a thread with its full content history.
type ThreadDetails struct {
	Thread
	Contents []Content `json:"contents"`
}

// ThreadsPage is one page of the thread listing.
type ThreadsPage struct {
	Data        []Thread `json:"data"`
	Total       int      `json:"total"`
	CurrentPage int      `json:"currentPage"`
	PageSize    int      `json:"pageSize"`
}

// Pages returns the number of pages for the listing's total and page size.
func (p ThreadsPage) Pages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// Summary holds dashboard statistics.
type Summary struct {
	TotalThreads  int            `json:"totalThreads"`
	ThreadsByType map[string]int `json:"threadsByType"`
	StatusCounts  map[string]int `json:"statusCounts"`
}
