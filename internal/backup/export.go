package backup

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/blackwell-systems/shelfkeep/internal/catalog"
)

// ExportReport summarizes a finished export.
type ExportReport struct {
	Path    string
	Books   int
	Files   int
	Size    int64
	Missing []string // referenced files that did not exist
}

// Lister reads the complete ordered catalog.
type Lister interface {
	List(ctx context.Context, opts catalog.ListOptions) ([]*catalog.Book, error)
}

// Exporter writes archives of a whole catalog.
type Exporter struct {
	store Lister
}

// NewExporter returns an Exporter reading books from store.
func NewExporter(store Lister) *Exporter {
	return &Exporter{store: store}
}

// ExportLibrary writes every book in id order to dest.
func (e *Exporter) ExportLibrary(ctx context.Context, dest string) (*ExportReport, error) {
	books, err := e.store.List(ctx, catalog.ListOptions{Order: catalog.OrderOldest})
	if err != nil {
		return nil, errors.Wrap(err, "list books")
	}
	return Export(ctx, books, dest)
}

// Export writes books and their files to a zip archive at dest. The
// archive is assembled at dest+".tmp" and renamed into place, so dest is
// either complete or untouched. Missing content or cover files are
// skipped and reported, their manifest entries are still written.
func Export(ctx context.Context, books []*catalog.Book, dest string) (report *ExportReport, err error) {
	log := logger.FromContext(ctx)

	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return nil, errors.WithStack(err)
	}

	tmpPath := dest + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return nil, errors.Wrap(err, "create archive")
	}
	defer func() {
		if err != nil {
			out.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	report = &ExportReport{Path: dest, Books: len(books)}
	zw := zip.NewWriter(out)
	written := map[string]bool{ManifestName: true}
	entries := make([]Entry, 0, len(books))

	for _, b := range books {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		entries = append(entries, EntryFromBook(b))

		paths := []string{b.FilePath}
		if b.HasCover() {
			paths = append(paths, *b.CoverPath)
		}
		for _, p := range paths {
			name := filepath.Base(p)
			if written[name] {
				continue
			}
			ok, err := addFile(zw, p, name)
			if err != nil {
				return nil, err
			}
			if !ok {
				log.Warn("book file missing, skipped in export", logger.Data{"book_id": b.ID, "path": p})
				report.Missing = append(report.Missing, p)
				continue
			}
			written[name] = true
			report.Files++
		}
	}

	manifest, err := MarshalManifest(entries)
	if err != nil {
		return nil, err
	}
	w, err := zw.Create(ManifestName)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if _, err := w.Write(manifest); err != nil {
		return nil, errors.Wrap(err, "write manifest")
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "finish archive")
	}
	if err := out.Close(); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return nil, errors.WithStack(err)
	}

	if fi, statErr := os.Stat(dest); statErr == nil {
		report.Size = fi.Size()
	}
	log.Info("exported library", logger.Data{"path": dest, "books": report.Books, "files": report.Files, "missing": len(report.Missing)})
	return report, nil
}

// addFile copies src into the archive as name. It reports false when src
// does not exist.
func addFile(zw *zip.Writer, src, name string) (bool, error) {
	f, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "open %s", src)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return false, errors.WithStack(err)
	}
	if fi.IsDir() {
		return false, nil
	}

	hdr, err := zip.FileInfoHeader(fi)
	if err != nil {
		return false, errors.WithStack(err)
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return false, errors.WithStack(err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return false, errors.Wrapf(err, "copy %s", src)
	}
	return true, nil
}
