package catalog

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned when no book has the requested ID.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidBook is returned for records with an empty title or author,
	// an empty file path, or a negative page.
	ErrInvalidBook = errors.New("invalid book")
)

// Order selects the List ordering.
type Order int

const (
	// OrderNewest lists the most recently added books first.
	OrderNewest Order = iota
	OrderOldest
)

// ListOptions controls Store.List.
type ListOptions struct {
	Order  Order
	Filter Filter
}

// ChangeKind identifies what happened to a book.
type ChangeKind int

const (
	ChangeInserted ChangeKind = iota + 1
	ChangeUpdated
	ChangeDeleted
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInserted:
		return "inserted"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	}
	return "unknown"
}

// Change is published to subscribers after every committed write.
type Change struct {
	Kind ChangeKind
	ID   int64
}

const subscriberBuffer = 32

// Store is the persistent catalog of books.
type Store struct {
	db *bun.DB

	mu      sync.Mutex
	nextSub int
	subs    map[int]chan Change
}

// NewStore returns a Store over an already migrated database.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db, subs: make(map[int]chan Change)}
}

func validate(b *Book) error {
	switch {
	case b.Title == "":
		return errors.Wrap(ErrInvalidBook, "title is required")
	case b.Author == "":
		return errors.Wrap(ErrInvalidBook, "author is required")
	case b.FilePath == "":
		return errors.Wrap(ErrInvalidBook, "file path is required")
	case b.LastPage < 0:
		return errors.Wrap(ErrInvalidBook, "last page must not be negative")
	}
	return nil
}

// Insert adds a new book and assigns its ID and timestamps.
func (s *Store) Insert(ctx context.Context, b *Book) error {
	if err := s.insert(ctx, s.db, b); err != nil {
		return err
	}
	s.publish(Change{Kind: ChangeInserted, ID: b.ID})
	return nil
}

// InsertAll adds every book in one transaction. Either all rows are
// inserted or none are.
func (s *Store) InsertAll(ctx context.Context, books []*Book) error {
	for _, b := range books {
		if err := validate(b); err != nil {
			return err
		}
	}

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, b := range books {
			if err := s.insert(ctx, tx, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		for _, b := range books {
			b.ID = 0
		}
		return err
	}

	for _, b := range books {
		s.publish(Change{Kind: ChangeInserted, ID: b.ID})
	}
	return nil
}

func (s *Store) insert(ctx context.Context, db bun.IDB, b *Book) error {
	if err := validate(b); err != nil {
		return err
	}

	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = b.CreatedAt
	b.ID = 0

	_, err := db.
		NewInsert().
		Model(b).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

// Get returns the book with the given ID.
func (s *Store) Get(ctx context.Context, id int64) (*Book, error) {
	b := &Book{}
	err := s.db.
		NewSelect().
		Model(b).
		Where("b.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.WithStack(err)
	}
	return b, nil
}

// List returns every book matching opts.Filter in the requested order.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Book, error) {
	var books []*Book
	q := s.db.
		NewSelect().
		Model(&books)

	switch opts.Order {
	case OrderOldest:
		q = q.Order("b.id ASC")
	default:
		q = q.Order("b.id DESC")
	}

	if err := q.Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return opts.Filter.Apply(books), nil
}

// Count returns the number of books in the catalog.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.db.
		NewSelect().
		Model((*Book)(nil)).
		Count(ctx)
	return n, errors.WithStack(err)
}

// Update writes every column of b.
func (s *Store) Update(ctx context.Context, b *Book) error {
	if err := validate(b); err != nil {
		return err
	}
	b.UpdatedAt = time.Now()

	res, err := s.db.
		NewUpdate().
		Model(b).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	s.publish(Change{Kind: ChangeUpdated, ID: b.ID})
	return nil
}

// SetLastPage records the reading position of a book.
func (s *Store) SetLastPage(ctx context.Context, id int64, page int) error {
	if page < 0 {
		return errors.Wrap(ErrInvalidBook, "last page must not be negative")
	}

	res, err := s.db.
		NewUpdate().
		Model((*Book)(nil)).
		Set("last_page = ?", page).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	s.publish(Change{Kind: ChangeUpdated, ID: id})
	return nil
}

// Delete removes the book row, then its content and cover files.
// Files that are already gone are ignored.
func (s *Store) Delete(ctx context.Context, id int64) (*Book, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	_, err = s.db.
		NewDelete().
		Model(b).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	s.publish(Change{Kind: ChangeDeleted, ID: id})

	log := logger.FromContext(ctx)
	paths := []string{b.FilePath}
	if b.HasCover() {
		paths = append(paths, *b.CoverPath)
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to remove book file", logger.Data{"book_id": id, "path": p, "error": err.Error()})
		}
	}

	return b, nil
}

// Subscribe returns a channel receiving every committed change and a
// function that ends the subscription. A subscriber that falls behind
// misses events instead of blocking writers.
func (s *Store) Subscribe() (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Change, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publish(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
