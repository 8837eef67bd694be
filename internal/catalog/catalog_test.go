package catalog_test

import (
	"testing"

	"github.com/blackwell-systems/shelfkeep/internal/catalog"
)

func sampleBooks() []*catalog.Book {
	return []*catalog.Book{
		{
			ID:       1,
			Title:    "Structure and Interpretation of Computer Programs",
			Author:   "Abelson & Sussman",
			Genre:    catalog.StringPtr("Computing"),
			FilePath: "/lib/books/sicp.pdf",
		},
		{
			ID:       2,
			Title:    "Operating Systems: Three Easy Pieces",
			Author:   "Arpaci-Dusseau",
			Genre:    catalog.StringPtr("Systems"),
			FilePath: "/lib/books/ostep.EPUB",
		},
		{
			ID:       3,
			Title:    "Dune",
			Author:   "Frank Herbert",
			FilePath: "/lib/books/dune.pdf",
		},
	}
}

func ids(books []*catalog.Book) []int64 {
	out := make([]int64, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

// --- Filter ---

func TestFilter_ByGenreCaseInsensitive(t *testing.T) {
	result := catalog.Filter{Genre: "SYSTEMS"}.Apply(sampleBooks())
	if len(result) != 1 || result[0].ID != 2 {
		t.Errorf("genre filter: got %v", ids(result))
	}
}

func TestFilter_ByFormat(t *testing.T) {
	result := catalog.Filter{Format: "pdf"}.Apply(sampleBooks())
	if len(result) != 2 {
		t.Errorf("format filter: expected 2, got %v", ids(result))
	}

	result = catalog.Filter{Format: ".epub"}.Apply(sampleBooks())
	if len(result) != 1 || result[0].ID != 2 {
		t.Errorf("format filter with dot: got %v", ids(result))
	}
}

func TestFilter_BySearch_Title(t *testing.T) {
	result := catalog.Filter{Search: "operating systems"}.Apply(sampleBooks())
	if len(result) != 1 || result[0].ID != 2 {
		t.Errorf("search by title failed: got %v", ids(result))
	}
}

func TestFilter_BySearch_Author(t *testing.T) {
	result := catalog.Filter{Search: "herbert"}.Apply(sampleBooks())
	if len(result) != 1 || result[0].ID != 3 {
		t.Errorf("search by author failed: got %v", ids(result))
	}
}

func TestFilter_BySearch_Genre(t *testing.T) {
	result := catalog.Filter{Search: "comput"}.Apply(sampleBooks())
	if len(result) != 1 || result[0].ID != 1 {
		t.Errorf("search by genre failed: got %v", ids(result))
	}
}

func TestFilter_Combined_NoMatch(t *testing.T) {
	result := catalog.Filter{Genre: "systems", Format: "pdf"}.Apply(sampleBooks())
	if len(result) != 0 {
		t.Errorf("combined filter with no match: expected 0, got %v", ids(result))
	}
}

func TestFilter_Empty(t *testing.T) {
	result := catalog.Filter{}.Apply(sampleBooks())
	if len(result) != 3 {
		t.Errorf("empty filter should return all books, got %d", len(result))
	}
}

// --- Model helpers ---

func TestBook_Format(t *testing.T) {
	b := sampleBooks()[1]
	if got := b.Format(); got != "epub" {
		t.Errorf("Format() = %q, want %q", got, "epub")
	}
}

func TestBook_GenreAndCover(t *testing.T) {
	b := sampleBooks()[2]
	if b.GenreOrEmpty() != "" {
		t.Errorf("GenreOrEmpty() = %q, want empty", b.GenreOrEmpty())
	}
	if b.HasCover() {
		t.Error("HasCover() = true for book without cover")
	}
	b.CoverPath = catalog.StringPtr("")
	if b.HasCover() {
		t.Error("HasCover() = true for empty cover path")
	}
}

func TestStringPtr(t *testing.T) {
	if catalog.StringPtr("") != nil {
		t.Error("StringPtr(\"\") should be nil")
	}
	if p := catalog.StringPtr("x"); p == nil || *p != "x" {
		t.Errorf("StringPtr(\"x\") = %v", p)
	}
}
