// Package tui styles the terminal output of the interactive runner.
package tui

import (
	"github.com/charmbracelet/glamour"
)

// DefaultWordWrap is the column at which rendered messages wrap.
const DefaultWordWrap = 80

// NewRenderer returns a function that renders Markdown using glamour,
// detecting a light or dark background.
func NewRenderer(wordWrap int) (func(string) (string, error), error) {
	if wordWrap <= 0 {
		wordWrap = DefaultWordWrap
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}
