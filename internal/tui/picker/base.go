// Package picker provides the list-selection model shared by the
// interactive pickers.
package picker

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
)

// ErrCanceled is returned when the user quits without choosing.
var ErrCanceled = errors.New("canceled by user")

// SelectHandler is called when an item is selected.
// Return true to quit the picker, false to continue.
type SelectHandler func(selectedItem list.Item) bool

// KeyHandler is called for custom key handling.
// Return true if the key was handled, false to pass through to default handling.
type KeyHandler func(msg tea.KeyMsg) (handled bool, cmd tea.Cmd)

// Config configures a base picker.
type Config struct {
	List list.Model

	QuitKeys   key.Binding
	SelectKeys key.Binding

	OnSelect   SelectHandler
	OnKeyPress KeyHandler

	// Footer is rendered below the list, inside the border.
	Footer func() string

	BorderStyle lipgloss.Style
	ShowBorder  bool
}

// Base provides common picker functionality.
// Embed it in picker models and forward Update and View.
type Base struct {
	config   Config
	list     list.Model
	selected list.Item
	quitting bool
	err      error
}

// New creates a new base picker.
func New(cfg Config) *Base {
	return &Base{
		config: cfg,
		list:   cfg.List,
	}
}

// List returns the underlying list model for direct access.
func (b *Base) List() *list.Model {
	return &b.list
}

// IsQuitting returns whether the picker is quitting.
func (b *Base) IsQuitting() bool {
	return b.quitting
}

// Error returns ErrCanceled after a quit key, otherwise nil.
func (b *Base) Error() error {
	return b.err
}

// Selected returns the item chosen with the select keys, or nil.
func (b *Base) Selected() list.Item {
	return b.selected
}

// Update handles standard picker updates.
func (b *Base) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Keys belong to the filter input while filtering.
		if b.list.FilterState() == list.Filtering {
			break
		}

		if b.config.OnKeyPress != nil {
			if handled, cmd := b.config.OnKeyPress(msg); handled {
				return cmd
			}
		}

		switch {
		case key.Matches(msg, b.config.QuitKeys):
			b.err = ErrCanceled
			b.quitting = true
			return tea.Quit

		case key.Matches(msg, b.config.SelectKeys):
			item := b.list.SelectedItem()
			if item == nil {
				return nil
			}
			if b.config.OnSelect == nil || b.config.OnSelect(item) {
				b.selected = item
				b.quitting = true
				return tea.Quit
			}
			return nil
		}

	case tea.WindowSizeMsg:
		w, h := msg.Width, msg.Height
		if b.config.ShowBorder {
			fw, fh := b.config.BorderStyle.GetFrameSize()
			w, h = w-fw, h-fh
		}
		if b.config.Footer != nil {
			h--
		}
		b.list.SetSize(w, h)
	}

	var cmd tea.Cmd
	b.list, cmd = b.list.Update(msg)
	return cmd
}

// View renders the picker.
func (b *Base) View() string {
	if b.quitting {
		return ""
	}

	view := b.list.View()
	if b.config.Footer != nil {
		view += "\n" + b.config.Footer()
	}
	if b.config.ShowBorder {
		return b.config.BorderStyle.Render(view)
	}
	return view
}

// SetItems replaces the list items and returns the list's command.
func (b *Base) SetItems(items []list.Item) tea.Cmd {
	return b.list.SetItems(items)
}

// SetTitle sets the list title.
func (b *Base) SetTitle(title string) {
	b.list.Title = title
}
