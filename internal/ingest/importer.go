// Package ingest copies documents into the library's private storage.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/blackwell-systems/shelfkeep/internal/util"
)

// ErrUnsupportedFormat is returned for anything other than PDF or EPUB.
var ErrUnsupportedFormat = errors.New("unsupported format: only pdf and epub can be imported")

var supportedExts = map[string]bool{
	".pdf":  true,
	".epub": true,
}

// Imported describes a document copied into storage.
type Imported struct {
	Path        string
	Name        string // base name inside the storage directory
	Ext         string // lowercase, without the dot
	DisplayName string // Name without extension
	Digest
}

// Importer copies sources into Dir.
type Importer struct {
	Dir string
}

// NewImporter returns an Importer writing into dir.
func NewImporter(dir string) *Importer {
	return &Importer{Dir: dir}
}

// Import streams src into the storage directory. The file is written under
// a temporary name and renamed once complete; an existing file with the
// same name is never overwritten.
func (im *Importer) Import(ctx context.Context, src *Source) (*Imported, error) {
	log := logger.FromContext(ctx)

	if err := util.EnsureDir(im.Dir); err != nil {
		return nil, err
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", src.Name)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(im.Dir, ".import-*.tmp")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	digest, err := copyDigest(tmp, rc)
	if err != nil {
		tmp.Close()
		return nil, errors.Wrapf(err, "copy %s", src.Name)
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.WithStack(err)
	}

	stem, ext := splitName(src.Name)
	if ext == "" {
		mt, err := mimetype.DetectFile(tmpPath)
		if err != nil {
			return nil, errors.Wrap(err, "detect content type")
		}
		ext = mt.Extension()
		log.Debug("detected extension", logger.Data{"name": src.Name, "mime": mt.String(), "ext": ext})
	}
	if !supportedExts[ext] {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", src.Name)
	}

	target := uniquePath(im.Dir, stem, ext)
	if err := os.Rename(tmpPath, target); err != nil {
		return nil, errors.WithStack(err)
	}
	committed = true

	name := filepath.Base(target)
	return &Imported{
		Path:        target,
		Name:        name,
		Ext:         strings.TrimPrefix(ext, "."),
		DisplayName: strings.TrimSuffix(name, ext),
		Digest:      digest,
	}, nil
}

// splitName returns a filesystem-safe stem and the lowercase extension.
func splitName(name string) (string, string) {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(name))
	stem := strings.TrimSpace(strings.TrimSuffix(name, filepath.Ext(name)))
	if stem == "" || stem == "." || stem == ".." {
		stem = "book"
	}
	return stem, ext
}

func uniquePath(dir, stem, ext string) string {
	candidate := filepath.Join(dir, stem+ext)
	for i := 1; util.FileExists(candidate); i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
	}
	return candidate
}

// DocMeta holds the catalog defaults read from a document.
type DocMeta struct {
	Title  string
	Author string
	Genre  string // EPUB dc:subject; PDFs carry none
}

// Metadata returns default catalog fields for an imported file, read from
// the document itself where possible. Title falls back to the display
// name; the other fields come back empty when unknown.
func Metadata(imp *Imported) DocMeta {
	var meta DocMeta
	switch imp.Ext {
	case "pdf":
		if m, err := ExtractPDFMetadata(imp.Path); err == nil {
			meta.Title, meta.Author = m.Title, m.Author
		}
	case "epub":
		if m, err := ExtractEPUBMetadata(imp.Path); err == nil {
			meta = DocMeta{Title: m.Title, Author: m.Author, Genre: m.Subject}
		}
	}
	if meta.Title == "" {
		meta.Title = imp.DisplayName
	}
	return meta
}
