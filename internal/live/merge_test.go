package live

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/desertthunder/acs/internal/models"
)

func sampleContents() []models.Content {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return []models.Content{
		{ID: "c0", ThreadID: "t1", Prompt: "first", GeneratedContent: "done", Status: models.ContentCompleted},
		{ID: "c1", ThreadID: "t1", Prompt: "p", Status: models.ContentProcessing, Feedback: "x", CreatedAt: &created},
	}
}

func TestApply(t *testing.T) {
	t.Run("Merges Into New Record", func(t *testing.T) {
		before := sampleContents()
		original := sampleContents()

		ev, err := Decode("", []byte(`{"id":"c1","status":"completed","payload":"full text"}`))
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		after, ok := Apply(before, ev)
		if !ok {
			t.Fatal("expected known id to be applied")
		}

		want := original[1]
		want.Status = models.ContentCompleted
		want.GeneratedContent = "full text"
		if !reflect.DeepEqual(after[1], want) {
			t.Errorf("unexpected merged record:\n got %+v\nwant %+v", after[1], want)
		}
		if !reflect.DeepEqual(before, original) {
			t.Error("input slice was modified")
		}
		if &after[0] == &before[0] {
			t.Error("expected a new slice")
		}
		if !reflect.DeepEqual(after[0], before[0]) {
			t.Error("untouched records should be carried over")
		}
	})

	t.Run("Unknown ID Is Ignored", func(t *testing.T) {
		before := sampleContents()
		after, ok := Apply(before, StatusEvent{ID: "missing", Status: models.ContentCompleted})
		if ok {
			t.Error("expected no change for unknown id")
		}
		if len(after) != len(before) {
			t.Error("expected no insert")
		}
	})

	t.Run("Chunks Append", func(t *testing.T) {
		contents := sampleContents()
		contents, _ = Apply(contents, ContentEvent{ID: "c1", Text: "Hel", Chunk: true, Status: models.ContentProcessing})
		contents, _ = Apply(contents, ContentEvent{ID: "c1", Text: "lo", Chunk: true})
		if contents[1].GeneratedContent != "Hello" {
			t.Errorf("expected appended text, got %q", contents[1].GeneratedContent)
		}
	})

	t.Run("Error And Complete", func(t *testing.T) {
		contents := sampleContents()
		contents, _ = Apply(contents, ErrorEvent{ID: "c1", Message: "overloaded"})
		if contents[1].Status != models.ContentFailed || contents[1].Error != "overloaded" {
			t.Errorf("unexpected record after error %+v", contents[1])
		}

		contents, _ = Apply(contents, CompleteEvent{ID: "c1", Text: "final"})
		if contents[1].Status != models.ContentCompleted || contents[1].Error != "" || contents[1].GeneratedContent != "final" {
			t.Errorf("unexpected record after complete %+v", contents[1])
		}

		contents, _ = Apply(contents, CompleteEvent{ID: "c1"})
		if contents[1].GeneratedContent != "final" {
			t.Error("complete without text should keep existing text")
		}
	})

	t.Run("Nil Event", func(t *testing.T) {
		if _, ok := Apply(sampleContents(), nil); ok {
			t.Error("expected nil event to be ignored")
		}
	})
}

func TestState(t *testing.T) {
	t.Run("Snapshots Are Copies", func(t *testing.T) {
		s := NewState(sampleContents())
		snap := s.Snapshot()
		snap[1].Status = models.ContentFailed

		if c, _ := s.Get("c1"); c.Status != models.ContentProcessing {
			t.Error("snapshot mutation leaked into state")
		}
	})

	t.Run("Track And Reset", func(t *testing.T) {
		s := NewState(nil)
		s.Track(models.Content{ID: "c9", Status: models.ContentPending})
		s.Track(models.Content{ID: "c9", Status: models.ContentProcessing})
		if snap := s.Snapshot(); len(snap) != 1 || snap[0].Status != models.ContentProcessing {
			t.Errorf("unexpected state %+v", snap)
		}

		s.Reset(sampleContents())
		if len(s.Snapshot()) != 2 {
			t.Error("expected reset to replace contents")
		}
	})

	t.Run("Consume Applies In Order", func(t *testing.T) {
		s := NewState(sampleContents())
		events := make(chan Event, 4)
		events <- StatusEvent{ID: "c1", Status: models.ContentProcessing}
		events <- ContentEvent{ID: "c1", Text: "a", Chunk: true}
		events <- StatusEvent{ID: "unknown", Status: models.ContentFailed}
		events <- CompleteEvent{ID: "c1", Text: "abc"}
		close(events)

		var seen []Kind
		err := s.Consume(context.Background(), events, func(ev Event, _ models.Content) {
			seen = append(seen, ev.Kind())
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []Kind{KindStatus, KindContent, KindComplete}
		if !reflect.DeepEqual(seen, want) {
			t.Errorf("expected %v, got %v", want, seen)
		}
		if c, _ := s.Get("c1"); c.GeneratedContent != "abc" || c.Status != models.ContentCompleted {
			t.Errorf("unexpected final record %+v", c)
		}
	})

	t.Run("Consume Stops On Cancel", func(t *testing.T) {
		s := NewState(nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := s.Consume(ctx, make(chan Event), nil); err == nil {
			t.Error("expected context error")
		}
	})
}
