package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/shared"
)

var _ list.Item = contentItem{}

// contentItem wraps [models.Content] to implement [list.Item].
type contentItem struct {
	content models.Content
}

func (i contentItem) FilterValue() string { return i.content.Prompt }
func (i contentItem) Title() string       { return shared.Truncate(i.content.Prompt, 60) }
func (i contentItem) Description() string {
	c := i.content
	desc := styles.status(c.Status).Render(models.StatusLabel(string(c.Status)))
	if c.Sentiment != "" {
		desc = fmt.Sprintf("%s • %s", desc, shared.TitleCase(string(c.Sentiment)))
	}
	switch {
	case c.Status == models.ContentFailed && c.Error != "":
		desc = fmt.Sprintf("%s • %s", desc, shared.Truncate(c.Error, 40))
	case c.GeneratedContent != "":
		desc = fmt.Sprintf("%s • %s", desc, shared.Truncate(strings.ReplaceAll(c.GeneratedContent, "\n", " "), 40))
	}
	return desc
}

func contentItems(contents []models.Content) []list.Item {
	items := make([]list.Item, len(contents))
	for i, c := range contents {
		items[i] = contentItem{content: c}
	}
	return items
}
