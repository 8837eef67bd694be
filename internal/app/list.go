package app

import (
	"fmt"
	"io"
	"time"

	"github.com/blackwell-systems/shelfkeep/internal/catalog"
	"github.com/fatih/color"
	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
)

// bookJSON is the `list --json` row.
type bookJSON struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	Genre     *string `json:"genre"`
	Format    string  `json:"format"`
	FilePath  string  `json:"filePath"`
	CoverPath *string `json:"coverPath"`
	LastPage  int     `json:"lastPage"`
	CreatedAt string  `json:"createdAt"`
}

func writeBooksJSON(w io.Writer, books []*catalog.Book) error {
	rows := make([]bookJSON, 0, len(books))
	for _, b := range books {
		rows = append(rows, bookJSON{
			ID:        b.ID,
			Title:     b.Title,
			Author:    b.Author,
			Genre:     b.Genre,
			Format:    b.Format(),
			FilePath:  b.FilePath,
			CoverPath: b.CoverPath,
			LastPage:  b.LastPage,
			CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func writeBooksTable(w io.Writer, books []*catalog.Book) {
	for _, b := range books {
		line := fmt.Sprintf("%5s  %s %s %s",
			color.CyanString("#%d", b.ID),
			b.Title,
			color.New(color.Faint).Sprint("by "+b.Author),
			color.CyanString(b.Format()),
		)
		if g := b.GenreOrEmpty(); g != "" {
			line += " " + color.YellowString("[%s]", g)
		}
		if b.LastPage > 0 {
			line += " " + color.GreenString("p.%d", b.LastPage)
		}
		fmt.Fprintln(w, line)
	}
}

func newListCmd() *cobra.Command {
	var (
		filter catalog.Filter
		oldest bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List books in the catalog",
		Long: `List books, newest first.

Examples:
  shelfkeep list
  shelfkeep list --search tolkien
  shelfkeep list --genre fiction --format epub
  shelfkeep list --oldest --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close()

			opts := catalog.ListOptions{Order: catalog.OrderNewest, Filter: filter}
			if oldest {
				opts.Order = catalog.OrderOldest
			}
			books, err := lib.store.List(ctx, opts)
			if err != nil {
				return err
			}

			if asJSON {
				return writeBooksJSON(cmd.OutOrStdout(), books)
			}
			if len(books) == 0 {
				if filter.IsZero() {
					fmt.Fprintln(cmd.OutOrStdout(), "No books yet. Add one with 'shelfkeep add <file>'.")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No matching books.")
				}
				return nil
			}
			total, err := lib.store.Count(ctx)
			if err != nil {
				return err
			}
			if filter.IsZero() {
				header("%d book(s)", total)
			} else {
				header("%d of %d book(s)", len(books), total)
			}
			writeBooksTable(cmd.OutOrStdout(), books)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Search, "search", "", "Match title, author or genre")
	cmd.Flags().StringVar(&filter.Genre, "genre", "", "Only books with this genre")
	cmd.Flags().StringVar(&filter.Format, "format", "", "Only books of this format (pdf, epub)")
	cmd.Flags().BoolVar(&oldest, "oldest", false, "List oldest first")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}
