package live

import "github.com/desertthunder/acs/internal/models"

// Apply merges ev into the record with the matching id and returns a new slice.
//
// contents is never modified. When no record matches, contents is returned as is
// and the second result is false.
func Apply(contents []models.Content, ev Event) ([]models.Content, bool) {
	if ev == nil {
		return contents, false
	}

	idx := -1
	for i := range contents {
		if contents[i].ID == ev.ContentID() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return contents, false
	}

	rec := contents[idx]
	switch e := ev.(type) {
	case StatusEvent:
		rec.Status = e.Status
	case ContentEvent:
		if e.Chunk {
			rec.GeneratedContent += e.Text
		} else {
			rec.GeneratedContent = e.Text
		}
		if e.Status != "" {
			rec.Status = e.Status
		}
	case ErrorEvent:
		rec.Status = models.ContentFailed
		rec.Error = e.Message
	case CompleteEvent:
		rec.Status = models.ContentCompleted
		rec.Error = ""
		if e.Text != "" {
			rec.GeneratedContent = e.Text
		}
	default:
		return contents, false
	}

	next := make([]models.Content, len(contents))
	copy(next, contents)
	next[idx] = rec
	return next, true
}
