package catalog

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// UnknownAuthor is recorded when a book's author cannot be determined.
const UnknownAuthor = "Unknown"

// Book is one row of the library catalog.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID        int64     `bun:",pk,autoincrement" json:"id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	Title     string    `bun:",notnull" json:"title"`
	Author    string    `bun:",notnull" json:"author"`
	Genre     *string   `json:"genre"`
	FilePath  string    `bun:",notnull" json:"file_path"`
	CoverPath *string   `json:"cover_path"`
	LastPage  int       `bun:",notnull" json:"last_page"`
}

// Format returns the lowercase extension of the content file without the dot.
func (b *Book) Format() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(b.FilePath), "."))
}

// GenreOrEmpty returns the genre, or "" when none is set.
func (b *Book) GenreOrEmpty() string {
	if b.Genre == nil {
		return ""
	}
	return *b.Genre
}

// HasCover reports whether a cover path is recorded.
func (b *Book) HasCover() bool {
	return b.CoverPath != nil && *b.CoverPath != ""
}

// StringPtr returns nil for "" and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
