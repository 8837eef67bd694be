package app

import (
	"os/exec"
	"runtime"

	"github.com/blackwell-systems/shelfkeep/internal/catalog"
	"github.com/blackwell-systems/shelfkeep/internal/tui"
	"github.com/blackwell-systems/shelfkeep/internal/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newOpenCmd() *cobra.Command {
	var app string

	cmd := &cobra.Command{
		Use:   "open [id]",
		Short: "Open a book in the system viewer",
		Long: `Open a book with the default application for its file type.

Without an id an interactive picker is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if !tui.ShouldUseTUI(cmd) {
					return errors.New("book id required in non-interactive mode")
				}
				return pickAndOpen(cmd, app)
			}

			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			lib, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close()

			b, err := lib.store.Get(ctx, id)
			if err != nil {
				return err
			}
			return openBook(b, app)
		},
	}

	cmd.Flags().StringVar(&app, "app", "", "Application to open the file with")
	return cmd
}

// pickAndOpen shows the book picker and opens the choice.
func pickAndOpen(cmd *cobra.Command, app string) error {
	ctx := cmd.Context()
	lib, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer lib.Close()

	b, err := tui.RunBookPicker(ctx, lib.store, catalog.ListOptions{}, "Open a book")
	if err != nil {
		return err
	}
	return openBook(b, app)
}

func openBook(b *catalog.Book, app string) error {
	if !util.FileExists(b.FilePath) {
		return errors.Errorf("file for book #%d is missing: %s", b.ID, b.FilePath)
	}
	if err := openFile(b.FilePath, app); err != nil {
		return err
	}
	ok("Opened %s", b.Title)
	return nil
}

func openFile(path, app string) error {
	var cmdName string
	var args []string

	if app != "" {
		cmdName = app
		args = []string{path}
	} else {
		switch runtime.GOOS {
		case "darwin":
			cmdName = "open"
			args = []string{path}
		case "windows":
			cmdName = "cmd"
			args = []string{"/c", "start", "", path}
		default: // linux, freebsd, etc.
			cmdName = "xdg-open"
			args = []string{path}
		}
	}

	c := exec.Command(cmdName, args...)
	if err := c.Start(); err != nil {
		return errors.Wrapf(err, "opening file with %q", cmdName)
	}
	return nil
}
