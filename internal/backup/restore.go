package backup

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/blackwell-systems/shelfkeep/internal/catalog"
	"github.com/blackwell-systems/shelfkeep/internal/util"
)

// RestoreReport summarizes a finished restore.
type RestoreReport struct {
	Books   []*catalog.Book
	Files   int      // content and cover files copied into storage
	Missing []string // referenced names absent from the archive
	Skipped int      // manifest entries without a content file name

	// Unbacked lists restored books whose content file was not in the
	// archive. Their FilePath still names booksDir/<filePath>, which may
	// be absent or belong to another book.
	Unbacked []*catalog.Book
}

// Inserter adds rows to the catalog atomically.
type Inserter interface {
	InsertAll(ctx context.Context, books []*catalog.Book) error
}

// Restorer unpacks archives into the library.
type Restorer struct {
	store      Inserter
	booksDir   string
	scratchDir string
}

// NewRestorer returns a Restorer copying files into booksDir. Archives are
// unpacked below scratchDir, or the system temp dir when it is empty.
func NewRestorer(store Inserter, booksDir, scratchDir string) *Restorer {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	return &Restorer{store: store, booksDir: booksDir, scratchDir: scratchDir}
}

// Restore adds every manifest entry of the archive as a new book. Files
// are copied into the books directory under their base names, replacing
// any file of the same name. An archive without metadata.json yields
// ErrInvalidArchive and changes nothing in the catalog.
func (r *Restorer) Restore(ctx context.Context, archivePath string) (*RestoreReport, error) {
	log := logger.FromContext(ctx)

	// Insecure member names are filtered below, so ErrInsecurePath is not fatal.
	zr, err := zip.OpenReader(archivePath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, errors.Wrapf(err, "open archive %s", archivePath)
	}
	defer zr.Close()

	scratch := filepath.Join(r.scratchDir, "restore-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0750); err != nil {
		return nil, errors.WithStack(err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			log.Warn("failed to remove restore scratch dir", logger.Data{"path": scratch, "error": err.Error()})
		}
	}()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}
		name, ok := memberName(f)
		if !ok {
			log.Warn("skipping archive member", logger.Data{"name": f.Name})
			continue
		}
		if err := extract(f, filepath.Join(scratch, name)); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(filepath.Join(scratch, ManifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrInvalidArchive, "%s is missing", ManifestName)
		}
		return nil, errors.WithStack(err)
	}
	entries, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}

	if err := util.EnsureDir(r.booksDir); err != nil {
		return nil, err
	}

	report := &RestoreReport{}
	books := make([]*catalog.Book, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		fileName := filepath.Base(e.FilePath)
		if e.FilePath == "" || !validName(fileName) {
			report.Skipped++
			continue
		}

		contentPath := filepath.Join(r.booksDir, fileName)
		copied, err := r.restoreFile(scratch, fileName, contentPath)
		if err != nil {
			return nil, err
		}
		if copied {
			report.Files++
		} else {
			report.Missing = append(report.Missing, fileName)
		}

		var coverPath *string
		if e.CoverURI != nil {
			coverName := filepath.Base(*e.CoverURI)
			if validName(coverName) {
				dest := filepath.Join(r.booksDir, coverName)
				copied, err := r.restoreFile(scratch, coverName, dest)
				if err != nil {
					return nil, err
				}
				if copied {
					report.Files++
					coverPath = &dest
				} else {
					report.Missing = append(report.Missing, coverName)
				}
			}
		}

		title := e.Title
		if title == "" {
			title = strings.TrimSuffix(fileName, filepath.Ext(fileName))
		}
		author := e.Author
		if author == "" {
			author = catalog.UnknownAuthor
		}

		book := &catalog.Book{
			Title:     title,
			Author:    author,
			Genre:     e.Genre,
			FilePath:  contentPath,
			CoverPath: coverPath,
			LastPage:  e.LastPage,
		}
		if !copied {
			report.Unbacked = append(report.Unbacked, book)
		}
		books = append(books, book)
	}

	if err := r.store.InsertAll(ctx, books); err != nil {
		return nil, errors.Wrap(err, "insert restored books")
	}
	report.Books = books

	log.Info("restored library", logger.Data{"archive": archivePath, "books": len(books), "files": report.Files, "missing": len(report.Missing)})
	return report, nil
}

// restoreFile copies scratch/name to dest, leaving an identical file in
// place. It reports false when the archive did not contain name.
func (r *Restorer) restoreFile(scratch, name, dest string) (bool, error) {
	src := filepath.Join(scratch, name)
	if !util.FileExists(src) {
		return false, nil
	}
	if util.FileExists(dest) {
		if same, err := util.SameContent(src, dest); err == nil && same {
			return true, nil
		}
	}
	if err := util.CopyFile(src, dest); err != nil {
		return false, errors.Wrapf(err, "restore %s", name)
	}
	return true, nil
}

// memberName returns the flat name of an archive member. Directories and
// members with path components are rejected.
func memberName(f *zip.File) (string, bool) {
	if f.FileInfo().IsDir() {
		return "", false
	}
	name := f.Name
	if strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return name, validName(name)
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

func extract(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "read member %s", f.Name)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return errors.Wrapf(err, "extract %s", f.Name)
	}
	return errors.WithStack(out.Close())
}
