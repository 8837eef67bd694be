package app

import (
	"fmt"
	"os"

	"github.com/blackwell-systems/shelfkeep/internal/catalog"
	"github.com/blackwell-systems/shelfkeep/internal/util"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <id>",
		Short: "Show metadata and storage status for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			printBook(b)
			return nil
		},
	}
}

func printBook(b *catalog.Book) {
	header("Book #%d", b.ID)
	printField("title", b.Title)
	printField("author", b.Author)
	if g := b.GenreOrEmpty(); g != "" {
		printField("genre", g)
	}
	printField("format", b.Format())
	printField("last_page", fmt.Sprintf("%d", b.LastPage))
	printField("added_at", b.CreatedAt.Local().Format("2006-01-02 15:04"))
	printField("file", fileStatus(b.FilePath))
	if sum, err := util.SHA256File(b.FilePath); err == nil {
		printField("sha256", sum)
	}
	if b.HasCover() {
		printField("cover", fileStatus(*b.CoverPath))
	}
}

// fileStatus renders path with its size, or flags it as missing.
func fileStatus(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return path + "  " + color.RedString("missing")
	}
	return path + "  " + color.GreenString(util.HumanBytes(info.Size()))
}
