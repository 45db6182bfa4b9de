// package formatter renders threads and their generated contents as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/shared"
)

// Format names an export encoding.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
)

// Formats lists the supported export formats.
func Formats() []Format {
	return []Format{JSON, CSV, Markdown, Text}
}

// ParseFormat accepts a format name or one of its common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case CSV:
		return ".csv"
	case Markdown:
		return ".md"
	case Text:
		return ".txt"
	default:
		return ".json"
	}
}

const timeLayout = "2006-01-02 15:04"

func stamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// ExportToCSV converts a thread's contents to CSV with columns: ID, Status, Sentiment, Prompt, Content, Error, Created
func ExportToCSV(d *models.ThreadDetails) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Status", "Sentiment", "Prompt", "Content", "Error", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, c := range d.Contents {
		record := []string{
			c.ID,
			string(c.Status),
			string(c.Sentiment),
			c.Prompt,
			c.GeneratedContent,
			c.Error,
			stamp(c.CreatedAt),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown converts a thread to a Markdown document with one section per generation.
func ExportToMarkdown(d *models.ThreadDetails) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title(d))
	fmt.Fprintf(&buf, "**Type**: %s\n", models.ContentTypeLabel(string(d.Type)))
	fmt.Fprintf(&buf, "**Status**: %s\n", models.StatusLabel(string(d.Status)))
	if created := stamp(d.CreatedAt); created != "" {
		fmt.Fprintf(&buf, "**Created**: %s\n", created)
	}
	fmt.Fprintf(&buf, "**Generations**: %d\n", len(d.Contents))

	for i, c := range d.Contents {
		fmt.Fprintf(&buf, "\n## %d. %s\n\n", i+1, models.StatusLabel(string(c.Status)))
		fmt.Fprintf(&buf, "> %s\n\n", strings.ReplaceAll(c.Prompt, "\n", "\n> "))

		switch {
		case c.Status == models.ContentFailed:
			fmt.Fprintf(&buf, "_Generation failed: %s_\n", fallback(c.Error, "unknown error"))
		case c.GeneratedContent == "":
			buf.WriteString("_No content yet._\n")
		default:
			buf.WriteString(c.GeneratedContent)
			buf.WriteString("\n")
		}

		if c.Sentiment != "" {
			fmt.Fprintf(&buf, "\n**Feedback**: %s\n", shared.TitleCase(string(c.Sentiment)))
		}
	}
	return buf.Bytes(), nil
}

// ExportToText converts a thread to plain text
func ExportToText(d *models.ThreadDetails) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Thread: %s\n", title(d))
	fmt.Fprintf(&buf, "Type: %s\n", models.ContentTypeLabel(string(d.Type)))
	fmt.Fprintf(&buf, "Generations: %d\n", len(d.Contents))

	for i, c := range d.Contents {
		fmt.Fprintf(&buf, "\n%d. [%s] %s\n", i+1, models.StatusLabel(string(c.Status)), c.Prompt)
		if c.Status == models.ContentFailed {
			fmt.Fprintf(&buf, "   error: %s\n", fallback(c.Error, "unknown error"))
			continue
		}
		for line := range strings.SplitSeq(c.GeneratedContent, "\n") {
			if line != "" {
				fmt.Fprintf(&buf, "   %s\n", line)
			}
		}
	}
	return buf.Bytes(), nil
}

// ExportToJSON encodes the thread as indented JSON using the API field names.
func ExportToJSON(d *models.ThreadDetails) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal thread: %w", err)
	}
	return append(data, '\n'), nil
}

// Render encodes d in format f.
func Render(d *models.ThreadDetails, f Format) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: thread", shared.ErrMissingArgument)
	}
	switch f {
	case CSV:
		return ExportToCSV(d)
	case Markdown:
		return ExportToMarkdown(d)
	case Text:
		return ExportToText(d)
	case JSON:
		return ExportToJSON(d)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// Write renders d to w.
func Write(w io.Writer, d *models.ThreadDetails, f Format) error {
	data, err := Render(d, f)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// WriteExport renders d to path and returns the path written.
//
// An empty path defaults to {thread id}{extension}; a directory gets the same name inside it.
func WriteExport(d *models.ThreadDetails, f Format, path string) (string, error) {
	data, err := Render(d, f)
	if err != nil {
		return "", err
	}

	name := d.ID + f.Extension()
	switch {
	case path == "":
		path = name
	case isDir(path):
		path = filepath.Join(path, name)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func title(d *models.ThreadDetails) string {
	return fallback(d.Title, "Untitled thread")
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
