// Package style provides a functional API for composing lipgloss styles for CLI output.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mpfront/mpfront/color"
)

// New returns an empty lipgloss.Style used as a foundation for composition.
func New() lipgloss.Style {
	return lipgloss.NewStyle()
}

// Fg returns a rendering function that applies the foreground color c.
func Fg(c lipgloss.Color) func(string) string {
	return func(s string) string { return New().Foreground(c).Render(s) }
}

// Typographic helpers.
var (
	Faint  = func(s string) string { return New().Faint(true).Render(s) }
	Bold   = func(s string) string { return New().Bold(true).Render(s) }
	Italic = func(s string) string { return New().Italic(true).Render(s) }
)

// Heading renders a section title, e.g. "Video outputs".
var Heading = func(s string) string {
	return New().Bold(true).Foreground(color.HiPurple).Render(s)
}

// Tag returns a rendering function that encapsulates a string in a colored, padded block.
func Tag(fg, bg lipgloss.Color) func(string) string {
	return func(s string) string { return New().Foreground(fg).Background(bg).Padding(0, 1).Render(s) }
}
