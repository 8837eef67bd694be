package app

import (
	"strings"

	"github.com/blackwell-systems/shelfkeep/internal/catalog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newEditCmd() *cobra.Command {
	var (
		title  string
		author string
		genre  string
		page   int
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit the catalog record of a book",
		Long: `Change title, author, genre or last page of a book.

Only the flags you pass are changed. An empty --genre clears the genre.
The content file and cover are tied to the import and cannot be edited.

Examples:
  shelfkeep edit 12 --title "Structure and Interpretation"
  shelfkeep edit 12 --author "Abelson & Sussman" --genre cs
  shelfkeep edit 12 --genre ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("title") && !flags.Changed("author") && !flags.Changed("genre") && !flags.Changed("page") {
				return errors.New("nothing to change; pass --title, --author, --genre or --page")
			}

			ctx := cmd.Context()
			lib, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close()

			book, err := lib.store.Get(ctx, id)
			if err != nil {
				return err
			}
			if flags.Changed("title") {
				book.Title = strings.TrimSpace(title)
			}
			if flags.Changed("author") {
				book.Author = strings.TrimSpace(author)
			}
			if flags.Changed("genre") {
				book.Genre = catalog.StringPtr(strings.TrimSpace(genre))
			}
			if flags.Changed("page") {
				book.LastPage = page
			}

			if err := lib.store.Update(ctx, book); err != nil {
				return err
			}
			ok("Updated #%d", book.ID)
			printBook(book)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&author, "author", "", "New author")
	cmd.Flags().StringVar(&genre, "genre", "", "New genre (empty clears it)")
	cmd.Flags().IntVar(&page, "page", 0, "New last page")
	return cmd
}
