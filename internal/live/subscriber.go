package live

import (
	"context"
	"sync"
)

// Opener opens a channel scoped to key.
type Opener func(ctx context.Context, key string) (*Channel, error)

// Subscriber owns at most one open [Channel] at a time.
type Subscriber struct {
	mu      sync.Mutex
	open    Opener
	current *Channel
	key     string
}

func NewSubscriber(open Opener) *Subscriber {
	return &Subscriber{open: open}
}

// OpenerFor returns an [Opener] that uses base for everything but the filter key.
func OpenerFor(base Options) Opener {
	return func(ctx context.Context, key string) (*Channel, error) {
		opts := base
		opts.FilterKey = key
		return Open(ctx, opts)
	}
}

// Rescope closes the current channel, then opens a new one for key when enabled.
//
// A disabled or empty key leaves the slot empty and returns a nil channel.
func (s *Subscriber) Rescope(ctx context.Context, key string, enabled bool) (*Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Close()
		s.current = nil
		s.key = ""
	}
	if !enabled || key == "" {
		return nil, nil
	}

	ch, err := s.open(ctx, key)
	if err != nil {
		return nil, err
	}
	s.current, s.key = ch, key
	return ch, nil
}

// Current returns the open channel and its key, if any.
func (s *Subscriber) Current() (*Channel, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.key
}

// Close releases the slot.
func (s *Subscriber) Close() error {
	_, err := s.Rescope(context.Background(), "", false)
	return err
}
