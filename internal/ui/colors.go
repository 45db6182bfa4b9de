package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/acs/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF4D4F", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	body  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		body:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(h)).Padding(0, 1),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// status picks the style for a content status badge.
func (p *Palette) status(s models.ContentStatus) lipgloss.Style {
	switch s {
	case models.ContentCompleted:
		return p.ok
	case models.ContentFailed:
		return p.err
	case models.ContentProcessing:
		return p.warn
	default:
		return p.help
	}
}
