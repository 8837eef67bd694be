package operations

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/blackwell-systems/shelfkeep/internal/catalog"
	"github.com/blackwell-systems/shelfkeep/internal/ingest"
)

// BookInserter adds a single book to the catalog.
type BookInserter interface {
	Insert(ctx context.Context, b *catalog.Book) error
}

// AddOptions controls AddBook. Empty Title, Author and Genre are filled
// from the document's own metadata.
type AddOptions struct {
	Input     string
	Title     string
	Author    string
	Genre     string
	CoversDir string
	NoCover   bool
}

// AddBook imports a document into storage and records it in the catalog.
// If the insert fails the imported files are removed again.
func AddBook(ctx context.Context, im *ingest.Importer, store BookInserter, opts AddOptions) (*catalog.Book, *ingest.Imported, error) {
	log := logger.FromContext(ctx)

	src, err := ingest.Resolve(ctx, opts.Input)
	if err != nil {
		return nil, nil, err
	}
	imp, err := im.Import(ctx, src)
	if err != nil {
		return nil, nil, err
	}

	title, author, genre := strings.TrimSpace(opts.Title), strings.TrimSpace(opts.Author), strings.TrimSpace(opts.Genre)
	if title == "" || author == "" || genre == "" {
		meta := ingest.Metadata(imp)
		if title == "" {
			title = meta.Title
		}
		if author == "" {
			author = meta.Author
		}
		if genre == "" {
			genre = strings.TrimSpace(meta.Genre)
		}
	}
	if author == "" {
		author = catalog.UnknownAuthor
	}

	book := &catalog.Book{
		Title:    title,
		Author:   author,
		Genre:    catalog.StringPtr(genre),
		FilePath: imp.Path,
	}

	if imp.Ext == "pdf" && !opts.NoCover && opts.CoversDir != "" {
		stem := strings.TrimSuffix(imp.Name, filepath.Ext(imp.Name))
		if cover := ingest.ExtractCover(ctx, imp.Path, opts.CoversDir, stem); cover != "" {
			book.CoverPath = &cover
		} else {
			log.Debug("no cover extracted", logger.Data{"path": imp.Path})
		}
	}

	if err := store.Insert(ctx, book); err != nil {
		_ = os.Remove(imp.Path)
		if book.HasCover() {
			_ = os.Remove(*book.CoverPath)
		}
		return nil, nil, errors.Wrap(err, "add to catalog")
	}

	log.Info("added book", logger.Data{"book_id": book.ID, "path": imp.Path, "sha256": imp.SHA256})
	return book, imp, nil
}
