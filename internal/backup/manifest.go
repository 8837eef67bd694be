// Package backup writes and restores portable library archives: a zip
// holding metadata.json plus the content and cover file of every book.
package backup

import (
	"bytes"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"

	"github.com/blackwell-systems/shelfkeep/internal/catalog"
)

// ManifestName is the archive member holding the catalog records.
const ManifestName = "metadata.json"

// ErrInvalidArchive is returned when an archive has no usable manifest.
var ErrInvalidArchive = errors.New("invalid backup archive")

// Entry is one manifest record. File references are base names of
// sibling archive members, never paths.
type Entry struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Genre    *string `json:"genre"`
	FilePath string  `json:"filePath"`
	CoverURI *string `json:"coverUri"`
	LastPage int     `json:"lastPage"`
}

// EntryFromBook projects a catalog record onto a manifest entry. A book
// without a genre is written with "genre": null.
func EntryFromBook(b *catalog.Book) Entry {
	e := Entry{
		ID:       b.ID,
		Title:    b.Title,
		Author:   b.Author,
		Genre:    b.Genre,
		FilePath: filepath.Base(b.FilePath),
		LastPage: b.LastPage,
	}
	if b.HasCover() {
		cover := filepath.Base(*b.CoverPath)
		e.CoverURI = &cover
	}
	return e
}

// MarshalManifest encodes entries as a two-space indented JSON array.
func MarshalManifest(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return nil, errors.WithStack(err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseManifest decodes a manifest leniently. The document must be a JSON
// array; inside it, malformed fields fall back to defaults instead of
// failing the whole restore:
//
//	title, author  non-string → ""
//	genre          absent, null or non-string → nil
//	coverUri       absent, null, "" or non-string → nil
//	lastPage       number or numeric string, else 0; negative → 0
//
// Elements that are not objects are dropped.
func ParseManifest(data []byte) ([]Entry, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(ErrInvalidArchive, "manifest is not a JSON array: %v", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, elem := range raw {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(elem, &obj); err != nil || obj == nil {
			continue
		}
		title, _ := stringField(obj, "title")
		author, _ := stringField(obj, "author")
		filePath, _ := stringField(obj, "filePath")
		e := Entry{
			ID:       int64(numberField(obj, "id")),
			Title:    title,
			Author:   author,
			FilePath: filePath,
			LastPage: int(numberField(obj, "lastPage")),
		}
		if genre, ok := stringField(obj, "genre"); ok {
			e.Genre = &genre
		}
		if cover, ok := stringField(obj, "coverUri"); ok && cover != "" {
			e.CoverURI = &cover
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// stringField reports false for absent, null and non-string values.
func stringField(obj map[string]json.RawMessage, key string) (string, bool) {
	v, ok := obj[key]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

// numberField returns a non-negative integer for key, or 0.
func numberField(obj map[string]json.RawMessage, key string) int64 {
	v, ok := obj[key]
	if !ok {
		return 0
	}

	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return 0
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
	}
	if math.IsNaN(f) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int64(f)
}
