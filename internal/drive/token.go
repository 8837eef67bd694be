package drive

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/oauth2"
)

// DefaultTokenTTL is the assumed lifetime of a token with no expiry.
const DefaultTokenTTL = time.Hour

// TokenStore holds the bearer token used for Drive calls.
type TokenStore interface {
	// Get returns the token unless it is absent or expired.
	Get() (string, bool)
	// Set stores token, valid for ttl from now. A ttl <= 0 uses DefaultTokenTTL.
	Set(token string, ttl time.Duration) error
	// Clear forgets the token.
	Clear() error
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return now.Add(ttl)
}

// MemoryTokenStore keeps the token in process memory.
type MemoryTokenStore struct {
	mu      sync.Mutex
	now     func() time.Time
	token   string
	expires time.Time
}

// NewMemoryTokenStore returns an empty store. now may be nil.
func NewMemoryTokenStore(now func() time.Time) *MemoryTokenStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryTokenStore{now: now}
}

func (s *MemoryTokenStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", false
	}
	if !s.now().Before(s.expires) {
		s.token = ""
		return "", false
	}
	return s.token, true
}

func (s *MemoryTokenStore) Set(token string, ttl time.Duration) error {
	if token == "" {
		return errors.New("token must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expires = expiry(s.now(), ttl)
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expires = time.Time{}
	return nil
}

// FileTokenStore persists an oauth2.Token as JSON with mode 0600.
// Expired tokens are deleted when read.
type FileTokenStore struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewFileTokenStore returns a store backed by path. now may be nil.
func NewFileTokenStore(path string, now func() time.Time) *FileTokenStore {
	if now == nil {
		now = time.Now
	}
	return &FileTokenStore{path: path, now: now}
}

// Path returns the backing file.
func (s *FileTokenStore) Path() string { return s.path }

// Token returns the stored token, including its refresh token and expiry.
func (s *FileTokenStore) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileTokenStore) load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, errors.Wrapf(err, "parse token file %s", s.path)
	}
	return &tok, nil
}

func (s *FileTokenStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.load()
	if err != nil || tok == nil || tok.AccessToken == "" {
		return "", false
	}
	if !tok.Expiry.IsZero() && !s.now().Before(tok.Expiry) {
		_ = os.Remove(s.path)
		return "", false
	}
	return tok.AccessToken, true
}

func (s *FileTokenStore) Set(token string, ttl time.Duration) error {
	if token == "" {
		return errors.New("token must not be empty")
	}
	return s.Save(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
		Expiry:      expiry(s.now(), ttl),
	})
}

// Save writes tok, keeping any refresh token it carries. A token without
// an expiry is given DefaultTokenTTL.
func (s *FileTokenStore) Save(tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok.Expiry.IsZero() {
		tok.Expiry = expiry(s.now(), 0)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return errors.WithStack(err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmp, s.path))
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}
