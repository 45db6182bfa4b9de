package live

import (
	"context"
	"slices"
	"sync"

	"github.com/desertthunder/acs/internal/models"
)

// State holds the client's copy of a thread's contents and applies live updates to it.
type State struct {
	mu       sync.RWMutex
	contents []models.Content
}

// NewState creates a state seeded with a copy of contents.
func NewState(contents []models.Content) *State {
	return &State{contents: slices.Clone(contents)}
}

// Snapshot returns a copy of the current contents.
func (s *State) Snapshot() []models.Content {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.contents)
}

// Get returns the record with the given id.
func (s *State) Get(id string) (models.Content, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contents {
		if c.ID == id {
			return c, true
		}
	}
	return models.Content{}, false
}

// Track adds a record the client created itself, such as a freshly submitted generation.
// Existing records with the same id are replaced.
func (s *State) Track(c models.Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := slices.Clone(s.contents)
	for i := range next {
		if next[i].ID == c.ID {
			next[i] = c
			s.contents = next
			return
		}
	}
	s.contents = append(next, c)
}

// Reset replaces the whole collection, as after reloading a thread.
func (s *State) Reset(contents []models.Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents = slices.Clone(contents)
}

// Apply merges ev and reports whether a known record changed.
func (s *State) Apply(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := Apply(s.contents, ev)
	if ok {
		s.contents = next
	}
	return ok
}

// Consume applies events in arrival order until events is closed or ctx is done.
//
// onChange, if set, is called with each event that matched a known record.
// No event is applied once ctx is done, even if one was already queued.
func (s *State) Consume(ctx context.Context, events <-chan Event, onChange func(Event, models.Content)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if !s.Apply(ev) || onChange == nil {
				continue
			}
			if rec, found := s.Get(ev.ContentID()); found {
				onChange(ev, rec)
			}
		}
	}
}
