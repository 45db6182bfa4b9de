package live

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/shared"
)

// Kind names the four categories of live update.
type Kind string

const (
	KindStatus   Kind = "status"
	KindContent  Kind = "content"
	KindError    Kind = "error"
	KindComplete Kind = "complete"
)

func (k Kind) known() bool {
	switch k {
	case KindStatus, KindContent, KindError, KindComplete:
		return true
	}
	return false
}

// Event is a decoded live update about one content item.
//
// The concrete type is one of [StatusEvent], [ContentEvent], [ErrorEvent] or [CompleteEvent].
type Event interface {
	Kind() Kind
	ContentID() string
	sealed()
}

// StatusEvent reports a lifecycle transition.
type StatusEvent struct {
	ID       string
	ThreadID string
	Status   models.ContentStatus
}

// ContentEvent carries generated text. Chunk events append to the existing text.
type ContentEvent struct {
	ID       string
	ThreadID string
	Status   models.ContentStatus
	Text     string
	Chunk    bool
}

// ErrorEvent reports a failed generation.
type ErrorEvent struct {
	ID       string
	ThreadID string
	Message  string
}

// CompleteEvent reports a finished generation with its final text, if sent.
type CompleteEvent struct {
	ID       string
	ThreadID string
	Text     string
	Thread   *models.Thread
}

func (StatusEvent) Kind() Kind   { return KindStatus }
func (ContentEvent) Kind() Kind  { return KindContent }
func (ErrorEvent) Kind() Kind    { return KindError }
func (CompleteEvent) Kind() Kind { return KindComplete }

func (e StatusEvent) ContentID() string   { return e.ID }
func (e ContentEvent) ContentID() string  { return e.ID }
func (e ErrorEvent) ContentID() string    { return e.ID }
func (e CompleteEvent) ContentID() string { return e.ID }

func (StatusEvent) sealed()   {}
func (ContentEvent) sealed()  {}
func (ErrorEvent) sealed()    {}
func (CompleteEvent) sealed() {}

type envelopeData struct {
	ContentID string         `json:"contentId"`
	ThreadID  string         `json:"threadId"`
	Status    string         `json:"status"`
	Content   *string        `json:"content"`
	Chunk     *string        `json:"chunk"`
	Error     string         `json:"error"`
	Thread    *models.Thread `json:"thread"`
}

// message accepts the typed envelope, a bare envelope body and the flat content document.
type message struct {
	Type string        `json:"type"`
	Data *envelopeData `json:"data"`

	envelopeData

	UnderscoreID     string  `json:"_id"`
	ID               string  `json:"id"`
	EntityID         string  `json:"entityId"`
	GeneratedContent *string `json:"generatedContent"`
	Payload          *string `json:"payload"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", shared.ErrMalformedMessage, fmt.Sprintf(format, args...))
}

// Decode turns one frame's data into an [Event]. name is the SSE event field, if any.
//
// Any message missing a required field returns an error wrapping
// [shared.ErrMalformedMessage].
func Decode(name string, data []byte) (Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, malformed("empty message")
	}

	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, malformed("%v", err)
	}

	switch {
	case msg.Type != "":
		if msg.Data == nil {
			return nil, malformed("%s message without data", msg.Type)
		}
		return decodeEnvelope(Kind(msg.Type), *msg.Data)
	case Kind(name).known():
		return decodeEnvelope(Kind(name), msg.envelopeData)
	default:
		return decodeFlat(msg)
	}
}

func decodeEnvelope(kind Kind, d envelopeData) (Event, error) {
	if !kind.known() {
		return nil, malformed("unknown message type %q", kind)
	}
	if d.ContentID == "" {
		return nil, malformed("%s message without contentId", kind)
	}

	switch kind {
	case KindStatus:
		if d.Status == "" {
			return nil, malformed("status message without status")
		}
		return StatusEvent{ID: d.ContentID, ThreadID: d.ThreadID, Status: models.ContentStatus(d.Status)}, nil
	case KindContent:
		ev := ContentEvent{ID: d.ContentID, ThreadID: d.ThreadID, Status: models.ContentStatus(d.Status)}
		switch {
		case d.Chunk != nil:
			ev.Text, ev.Chunk = *d.Chunk, true
		case d.Content != nil:
			ev.Text = *d.Content
		default:
			return nil, malformed("content message without content or chunk")
		}
		if ev.Status == "" {
			ev.Status = models.ContentProcessing
		}
		return ev, nil
	case KindError:
		msg := d.Error
		if msg == "" {
			msg = "generation failed"
		}
		return ErrorEvent{ID: d.ContentID, ThreadID: d.ThreadID, Message: msg}, nil
	default:
		ev := CompleteEvent{ID: d.ContentID, ThreadID: d.ThreadID, Thread: d.Thread}
		if d.Content != nil {
			ev.Text = *d.Content
		}
		return ev, nil
	}
}

func decodeFlat(msg message) (Event, error) {
	id := firstNonEmpty(msg.UnderscoreID, msg.ID, msg.ContentID, msg.EntityID)
	if id == "" {
		return nil, malformed("message without entity id")
	}
	if msg.Status == "" {
		return nil, malformed("message for %s without status", id)
	}

	var payload string
	switch {
	case msg.GeneratedContent != nil:
		payload = *msg.GeneratedContent
	case msg.Payload != nil:
		payload = *msg.Payload
	}
	if payload == "" {
		return nil, malformed("message for %s without payload", id)
	}

	return ContentEvent{
		ID:       id,
		ThreadID: msg.ThreadID,
		Status:   models.ContentStatus(msg.Status),
		Text:     payload,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
