package app

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/blackwell-systems/shelfkeep/internal/catalog"
	"github.com/blackwell-systems/shelfkeep/internal/tui"
	"github.com/blackwell-systems/shelfkeep/internal/util"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	var skipConfirm bool

	cmd := &cobra.Command{
		Use:     "delete [id]",
		Aliases: []string{"rm"},
		Short:   "Remove a book and its files",
		Long: `Remove a book from the catalog and delete its content and cover files.

This action is DESTRUCTIVE. Back up first with 'shelfkeep export' or
'shelfkeep drive backup'.

Examples:
  # Interactive book picker
  shelfkeep delete

  # Delete a specific book
  shelfkeep delete 12

  # Skip confirmation prompt
  shelfkeep delete 12 --yes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close()

			var b *catalog.Book
			if len(args) == 0 {
				if !tui.ShouldUseTUI(cmd) {
					return errors.New("book id required in non-interactive mode")
				}
				b, err = tui.RunBookPicker(ctx, lib.store, catalog.ListOptions{}, "Delete a book")
			} else {
				var id int64
				id, err = parseBookID(args[0])
				if err != nil {
					return err
				}
				b, err = lib.store.Get(ctx, id)
			}
			if err != nil {
				return err
			}

			if !skipConfirm {
				if !util.IsInteractive() {
					return errors.New("refusing to delete without confirmation (use --yes)")
				}
				fmt.Fprintf(stdout, "%s Delete #%d %s by %s and its files? Type the id to confirm: ",
					color.RedString("!"), b.ID, b.Title, b.Author)
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.TrimSpace(line) != fmt.Sprintf("%d", b.ID) {
					fmt.Fprintln(stdout, "Cancelled.")
					return nil
				}
			}

			if _, err := lib.store.Delete(ctx, b.ID); err != nil {
				return err
			}
			ok("Deleted #%d %s", b.ID, b.Title)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}
