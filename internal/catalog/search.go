package catalog

import "strings"

// Filter applies all non-empty criteria and returns matching books.
type Filter struct {
	Genre  string
	Search string // matches title, author, or genre
	Format string
}

// IsZero reports whether no criteria are set.
func (f Filter) IsZero() bool {
	return f.Genre == "" && f.Search == "" && f.Format == ""
}

// Apply returns the subset of books matching all non-empty filter fields.
func (f Filter) Apply(books []*Book) []*Book {
	if f.IsZero() {
		return books
	}
	out := make([]*Book, 0, len(books))
	for _, b := range books {
		if f.Genre != "" && !strings.EqualFold(b.GenreOrEmpty(), f.Genre) {
			continue
		}
		if f.Format != "" && !strings.EqualFold(b.Format(), strings.TrimPrefix(f.Format, ".")) {
			continue
		}
		if f.Search != "" && !matchesSearch(b, f.Search) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func matchesSearch(b *Book, q string) bool {
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(b.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(b.Author), q) {
		return true
	}
	return strings.Contains(strings.ToLower(b.GenreOrEmpty()), q)
}
