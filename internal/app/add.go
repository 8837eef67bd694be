package app

import (
	"github.com/blackwell-systems/shelfkeep/internal/ingest"
	"github.com/blackwell-systems/shelfkeep/internal/operations"
	"github.com/blackwell-systems/shelfkeep/internal/util"
	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	var opts operations.AddOptions

	cmd := &cobra.Command{
		Use:   "add <file|url>",
		Short: "Import a PDF or EPUB into the library",
		Long: `Copy a PDF or EPUB into private storage and add it to the catalog.

Title and author default to the document's own metadata, then to the file
name and "Unknown". PDFs get a cover rendered from page one when pdftoppm
is installed.

Examples:
  shelfkeep add ~/Downloads/sicp.pdf
  shelfkeep add https://example.com/book.epub --genre fiction
  shelfkeep add notes.pdf --title "Lecture notes" --author "Me" --no-cover`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close()

			opts.Input = args[0]
			opts.CoversDir = cfg.Library.BooksDir()
			book, imp, err := operations.AddBook(ctx, ingest.NewImporter(cfg.Library.BooksDir()), lib.store, opts)
			if err != nil {
				return err
			}

			ok("Added #%d %s by %s", book.ID, book.Title, book.Author)
			printField("file", imp.Path)
			printField("size", util.HumanBytes(imp.Size))
			printField("sha256", imp.SHA256)
			if book.HasCover() {
				printField("cover", *book.CoverPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "Book title (default: from document metadata)")
	cmd.Flags().StringVar(&opts.Author, "author", "", "Book author (default: from document metadata)")
	cmd.Flags().StringVar(&opts.Genre, "genre", "", "Genre")
	cmd.Flags().BoolVar(&opts.NoCover, "no-cover", false, "Skip cover extraction")
	return cmd
}
