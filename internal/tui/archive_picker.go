package tui

import (
	"fmt"
	"io"

	"github.com/blackwell-systems/shelfkeep/internal/drive"
	"github.com/blackwell-systems/shelfkeep/internal/tui/delegate"
	"github.com/blackwell-systems/shelfkeep/internal/tui/picker"
	"github.com/blackwell-systems/shelfkeep/internal/util"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/pkg/errors"
)

// ArchiveItem wraps a Drive backup for list display.
type ArchiveItem struct {
	Archive drive.Archive
}

func (a ArchiveItem) FilterValue() string { return a.Archive.Name }

// ArchiveCreated formats the creation time for display.
func ArchiveCreated(a drive.Archive) string {
	t, ok := a.Created()
	if !ok {
		return "unknown date"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// ArchiveSize formats the size for display.
func ArchiveSize(a drive.Archive) string {
	if a.Size == nil {
		return "?"
	}
	return util.HumanBytes(*a.Size)
}

func archiveItems(archives []drive.Archive, mode drive.SortMode) []list.Item {
	sorted := drive.SortArchives(archives, mode)
	items := make([]list.Item, len(sorted))
	for i, a := range sorted {
		items[i] = ArchiveItem{Archive: a}
	}
	return items
}

func renderArchiveItem(w io.Writer, m list.Model, index int, item list.Item) {
	archiveItem, ok := item.(ArchiveItem)
	if !ok {
		return
	}
	a := archiveItem.Archive

	name := a.Name
	if m.Width() > 40 {
		name = xansi.Truncate(name, m.Width()-30, "…")
	}
	meta := StyleHelp.Render(ArchiveCreated(a)) + " " + StyleProgress.Render(fmt.Sprintf("%9s", ArchiveSize(a)))

	if index == m.Index() {
		_, _ = fmt.Fprint(w, StyleHighlight.Render("› "+name)+"  "+meta)
	} else {
		_, _ = fmt.Fprint(w, "  "+StyleNormal.Render(name)+"  "+meta)
	}
}

// nextSortMode cycles newest, oldest, largest, smallest.
func nextSortMode(m drive.SortMode) drive.SortMode {
	return (m + 1) % (drive.SortSmallest + 1)
}

type archivePickerModel struct {
	base      *picker.Base
	keys      PickerKeys
	archives  []drive.Archive
	mode      drive.SortMode
	activeKey string
}

func (m *archivePickerModel) footer() string {
	return RenderFooterBar([]ShortcutEntry{
		{Key: "enter", Label: "enter restore"},
		{Key: "s", Label: "s sort: " + m.mode.String()},
		{Key: "/", Label: "/ filter"},
		{Key: "q", Label: "q quit"},
	}, m.activeKey)
}

func (m *archivePickerModel) Init() tea.Cmd {
	return nil
}

func (m *archivePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(clearActiveMsg); ok {
		m.activeKey = ""
		return m, nil
	}
	return m, m.base.Update(msg)
}

func (m *archivePickerModel) View() string {
	return m.base.View()
}

func newArchivePickerModel(archives []drive.Archive, mode drive.SortMode) *archivePickerModel {
	m := &archivePickerModel{
		keys:     NewPickerKeys(),
		archives: archives,
		mode:     mode,
	}

	l := list.New(archiveItems(archives, mode), delegate.New(renderArchiveItem), 0, 0)
	l.Title = "Drive backups"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = StyleHeader
	l.Styles.PaginationStyle = StyleHelp

	m.base = picker.New(picker.Config{
		List:        l,
		QuitKeys:    m.keys.Quit,
		SelectKeys:  m.keys.Select,
		ShowBorder:  true,
		BorderStyle: StyleBorder,
		Footer:      m.footer,
		OnKeyPress: func(msg tea.KeyMsg) (bool, tea.Cmd) {
			if !key.Matches(msg, m.keys.Sort) {
				return false, nil
			}
			m.mode = nextSortMode(m.mode)
			m.activeKey = "s"
			cmd := m.base.SetItems(archiveItems(m.archives, m.mode))
			m.base.List().Select(0)
			return true, tea.Batch(cmd, highlightCmd())
		},
	})
	return m
}

// RunArchivePicker lets the user pick one of archives. The "s" key
// cycles the sort order starting from mode.
func RunArchivePicker(archives []drive.Archive, mode drive.SortMode) (drive.Archive, error) {
	if len(archives) == 0 {
		return drive.Archive{}, errors.New("no backups to display")
	}

	m := newArchivePickerModel(archives, mode)
	finalModel, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return drive.Archive{}, errors.Wrap(err, "running TUI")
	}

	fm, ok := finalModel.(*archivePickerModel)
	if !ok {
		return drive.Archive{}, picker.ErrCanceled
	}
	if item, ok := fm.base.Selected().(ArchiveItem); ok {
		return item.Archive, nil
	}
	if err := fm.base.Error(); err != nil {
		return drive.Archive{}, err
	}
	return drive.Archive{}, picker.ErrCanceled
}
