package app

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <id> <page>",
		Short: "Record the last page read",
		Long: `Record the reading position of a book.

Example:
  shelfkeep progress 12 148`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			page, err := strconv.Atoi(args[1])
			if err != nil || page < 0 {
				return errors.Errorf("invalid page %q", args[1])
			}

			ctx := cmd.Context()
			lib, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close()

			if err := lib.store.SetLastPage(ctx, id, page); err != nil {
				return err
			}
			ok("Book #%d: page %d", id, page)
			return nil
		},
	}
}
