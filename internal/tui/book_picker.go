package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/blackwell-systems/shelfkeep/internal/catalog"
	"github.com/blackwell-systems/shelfkeep/internal/tui/delegate"
	"github.com/blackwell-systems/shelfkeep/internal/tui/picker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/pkg/errors"
)

// BookSource is the part of catalog.Store the book picker reads from.
type BookSource interface {
	List(ctx context.Context, opts catalog.ListOptions) ([]*catalog.Book, error)
	Subscribe() (<-chan catalog.Change, func())
}

// BookItem wraps a catalog book for list display.
type BookItem struct {
	Book *catalog.Book
}

// FilterValue matches title, author and genre.
func (b BookItem) FilterValue() string {
	parts := []string{b.Book.Title, b.Book.Author}
	if g := b.Book.GenreOrEmpty(); g != "" {
		parts = append(parts, g)
	}
	return strings.Join(parts, " ")
}

func (b BookItem) Title() string { return b.Book.Title }

func (b BookItem) Description() string { return b.Book.Author }

func bookItems(books []*catalog.Book) []list.Item {
	items := make([]list.Item, len(books))
	for i, b := range books {
		items[i] = BookItem{Book: b}
	}
	return items
}

// bookLine is the plain text of a picker row, truncated to width when
// width is positive.
func bookLine(b *catalog.Book, width int) string {
	line := fmt.Sprintf("%s by %s", b.Title, b.Author)
	if width > 0 {
		line = xansi.Truncate(line, width, "…")
	}
	return line
}

func bookMeta(b *catalog.Book) string {
	meta := []string{StyleGenre.Render(b.Format())}
	if g := b.GenreOrEmpty(); g != "" {
		meta = append(meta, StyleGenre.Render("["+g+"]"))
	}
	if b.LastPage > 0 {
		meta = append(meta, StyleProgress.Render(fmt.Sprintf("p.%d", b.LastPage)))
	}
	return strings.Join(meta, " ")
}

func renderBookItem(w io.Writer, m list.Model, index int, item list.Item) {
	bookItem, ok := item.(BookItem)
	if !ok {
		return
	}

	meta := bookMeta(bookItem.Book)
	width := 0
	if m.Width() > 0 {
		width = m.Width() - 3 - xansi.StringWidth(meta)
		if width < 10 {
			width = 10
		}
	}
	line := bookLine(bookItem.Book, width)

	if index == m.Index() {
		_, _ = fmt.Fprint(w, StyleHighlight.Render("› "+line)+" "+meta)
	} else {
		_, _ = fmt.Fprint(w, "  "+StyleNormal.Render(line)+" "+meta)
	}
}

// booksLoadedMsg carries a fresh listing of the catalog.
type booksLoadedMsg struct {
	books []*catalog.Book
	err   error
}

// catalogChangedMsg is sent when the store publishes a change.
type catalogChangedMsg struct {
	change catalog.Change
	open   bool
}

type bookPickerModel struct {
	ctx     context.Context
	source  BookSource
	opts    catalog.ListOptions
	changes <-chan catalog.Change
	base    *picker.Base
	err     error
}

func (m bookPickerModel) loadBooks() tea.Msg {
	books, err := m.source.List(m.ctx, m.opts)
	return booksLoadedMsg{books: books, err: err}
}

func waitForChange(changes <-chan catalog.Change) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-changes
		return catalogChangedMsg{change: c, open: ok}
	}
}

func (m bookPickerModel) Init() tea.Cmd {
	return waitForChange(m.changes)
}

func (m bookPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case catalogChangedMsg:
		if !msg.open {
			return m, nil
		}
		return m, tea.Batch(m.loadBooks, waitForChange(m.changes))

	case booksLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		return m, m.base.SetItems(bookItems(msg.books))
	}

	return m, m.base.Update(msg)
}

func (m bookPickerModel) View() string {
	return m.base.View()
}

// selected returns the chosen book, or nil.
func (m bookPickerModel) selected() *catalog.Book {
	if item, ok := m.base.Selected().(BookItem); ok {
		return item.Book
	}
	return nil
}

func newBookPickerModel(ctx context.Context, source BookSource, books []*catalog.Book, opts catalog.ListOptions, title string) bookPickerModel {
	l := list.New(bookItems(books), delegate.New(renderBookItem), 0, 0)
	if title != "" {
		l.Title = title
	} else {
		l.Title = "Select a book"
	}
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = StyleHeader
	l.Styles.PaginationStyle = StyleHelp
	l.Styles.HelpStyle = StyleHelp

	keys := NewPickerKeys()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Select}
	}

	return bookPickerModel{
		ctx:    ctx,
		source: source,
		opts:   opts,
		base: picker.New(picker.Config{
			List:        l,
			QuitKeys:    keys.Quit,
			SelectKeys:  keys.Select,
			ShowBorder:  true,
			BorderStyle: StyleBorder,
		}),
	}
}

// RunBookPicker lets the user pick a book from the catalog. The list
// reloads whenever the store reports a change while the picker is open.
func RunBookPicker(ctx context.Context, source BookSource, opts catalog.ListOptions, title string) (*catalog.Book, error) {
	books, err := source.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, errors.New("no books to display")
	}

	changes, cancel := source.Subscribe()
	defer cancel()

	m := newBookPickerModel(ctx, source, books, opts, title)
	m.changes = changes

	finalModel, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, errors.Wrap(err, "running TUI")
	}

	fm, ok := finalModel.(bookPickerModel)
	if !ok {
		return nil, picker.ErrCanceled
	}
	if fm.err != nil {
		return nil, fm.err
	}
	if b := fm.selected(); b != nil {
		return b, nil
	}
	if err := fm.base.Error(); err != nil {
		return nil, err
	}
	return nil, picker.ErrCanceled
}
