// Package delegate adapts a render function to list.ItemDelegate.
package delegate

import (
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// RenderFunc renders one list item.
type RenderFunc func(w io.Writer, m list.Model, index int, item list.Item)

// Base is a list.ItemDelegate that only renders.
type Base struct {
	height   int
	spacing  int
	renderFn RenderFunc
}

// New creates a single-line delegate.
func New(renderFn RenderFunc) Base {
	return Base{height: 1, renderFn: renderFn}
}

// NewMultiline creates a delegate whose items span height lines,
// separated by spacing blank lines.
func NewMultiline(renderFn RenderFunc, height, spacing int) Base {
	if height < 1 {
		height = 1
	}
	return Base{height: height, spacing: spacing, renderFn: renderFn}
}

func (d Base) Height() int { return d.height }

func (d Base) Spacing() int { return d.spacing }

func (d Base) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d Base) Render(w io.Writer, m list.Model, index int, item list.Item) {
	if d.renderFn != nil {
		d.renderFn(w, m, index, item)
	}
}
