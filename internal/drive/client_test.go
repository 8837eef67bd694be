package drive_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blackwell-systems/shelfkeep/internal/drive"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts Clear calls on top of a MemoryTokenStore.
type countingStore struct {
	*drive.MemoryTokenStore
	clears int32
}

func (s *countingStore) Clear() error {
	atomic.AddInt32(&s.clears, 1)
	return s.MemoryTokenStore.Clear()
}

func newStore(t *testing.T, token string) *countingStore {
	t.Helper()
	s := &countingStore{MemoryTokenStore: drive.NewMemoryTokenStore(nil)}
	if token != "" {
		require.NoError(t, s.Set(token, time.Hour))
	}
	return s
}

func newClient(srv *httptest.Server, tokens drive.TokenStore) *drive.Client {
	return drive.New(tokens, drive.Options{
		APIBase:    srv.URL + "/drive/v3",
		UploadBase: srv.URL + "/upload/drive/v3",
	})
}

func TestList_ParsesResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v3/files", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "name contains 'books_export' and mimeType='application/zip'", q.Get("q"))
		assert.Equal(t, "createdTime desc", q.Get("orderBy"))
		assert.Contains(t, q.Get("fields"), "files(id,name,createdTime,size)")

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"files": [
			{"id": "1", "name": "books_export_1.zip", "createdTime": "2024-01-02T12:00:00.000Z", "size": "2048"},
			{"id": "2", "name": "books_export_2.zip", "size": 0},
			{"id": "3", "name": "books_export_3.zip", "size": 512}
		]}`)
	}))
	defer srv.Close()

	list, err := newClient(srv, newStore(t, "tok")).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "books_export_1.zip", list[0].Name)
	assert.Equal(t, "2024-01-02T12:00:00.000Z", list[0].CreatedTime)
	require.NotNil(t, list[0].Size)
	assert.Equal(t, int64(2048), *list[0].Size)

	assert.Equal(t, "", list[1].CreatedTime)
	assert.Nil(t, list[1].Size)

	require.NotNil(t, list[2].Size)
	assert.Equal(t, int64(512), *list[2].Size)
}

func TestList_FollowsPages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = io.WriteString(w, `{"nextPageToken": "p2", "files": [{"id": "a", "name": "books_export_2.zip"}]}`)
			return
		}
		assert.Equal(t, "p2", r.URL.Query().Get("pageToken"))
		_, _ = io.WriteString(w, `{"files": [{"id": "b", "name": "books_export_1.zip"}]}`)
	}))
	defer srv.Close()

	list, err := newClient(srv, newStore(t, "tok")).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
}

func TestList_UnauthorizedClearsTokenOnce(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := newStore(t, "stale")
	client := newClient(srv, store)

	list, err := client.List(context.Background())
	require.ErrorIs(t, err, drive.ErrUnauthorized)
	assert.Empty(t, list)
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.clears))

	_, ok := store.Get()
	assert.False(t, ok)

	_, err = client.List(context.Background())
	require.ErrorIs(t, err, drive.ErrNoToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "no request without a token")
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.clears))
}

func TestList_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "quota exceeded\n")
	}))
	defer srv.Close()

	store := newStore(t, "tok")
	_, err := newClient(srv, store).List(context.Background())

	var apiErr *drive.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "quota exceeded", apiErr.Body)
	assert.Zero(t, atomic.LoadInt32(&store.clears))

	_, ok := store.Get()
	assert.True(t, ok, "non-401 failures keep the token")
}

func TestList_MalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"files": [`)
	}))
	defer srv.Close()

	_, err := newClient(srv, newStore(t, "tok")).List(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, drive.ErrUnauthorized)
}

func TestDownload_SavesBytes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v3/files/abc", r.URL.Path)
		assert.Equal(t, "media", r.URL.Query().Get("alt"))
		_, _ = io.WriteString(w, "ZIPDATA")
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.zip")
	require.NoError(t, newClient(srv, newStore(t, "tok")).Download(context.Background(), "abc", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "ZIPDATA", string(data))
	assert.NoFileExists(t, dest+".tmp")
}

func TestDownload_FailureLeavesNoFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/drive/v3/files/gone" {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.zip")

	err := newClient(srv, newStore(t, "tok")).Download(context.Background(), "gone", dest)
	var apiErr *drive.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "File not found", apiErr.Body)
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, dest+".tmp")

	store := newStore(t, "tok")
	err = newClient(srv, store).Download(context.Background(), "locked", dest)
	require.ErrorIs(t, err, drive.ErrUnauthorized)
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.clears))
	assert.NoFileExists(t, dest)
}

func TestUpload_SendsMetadataAndFileParts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload/drive/v3/files", r.URL.Path)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		mr, err := r.MultipartReader()
		if !assert.NoError(t, err) {
			return
		}

		var names []string
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if !assert.NoError(t, err) {
				return
			}
			body, err := io.ReadAll(part)
			assert.NoError(t, err)
			names = append(names, part.FormName())

			switch part.FormName() {
			case "metadata":
				assert.Equal(t, "application/json; charset=UTF-8", part.Header.Get("Content-Type"))
				var meta map[string]string
				assert.NoError(t, json.Unmarshal(body, &meta))
				assert.Equal(t, "books_export_5.zip", meta["name"])
			case "file":
				assert.Equal(t, "application/zip", part.Header.Get("Content-Type"))
				assert.Equal(t, "PK-ZIP", string(body))
			}
		}
		assert.Equal(t, []string{"metadata", "file"}, names)

		_, _ = io.WriteString(w, `{"id": "new-id", "name": "books_export_5.zip", "size": "6"}`)
	}))
	defer srv.Close()

	local := filepath.Join(t.TempDir(), "books_export_5.zip")
	require.NoError(t, os.WriteFile(local, []byte("PK-ZIP"), 0600))

	archive, err := newClient(srv, newStore(t, "tok")).Upload(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, "new-id", archive.ID)
	assert.Equal(t, "books_export_5.zip", archive.Name)
	require.NotNil(t, archive.Size)
	assert.Equal(t, int64(6), *archive.Size)
}

func TestUpload_NoToken(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	local := filepath.Join(t.TempDir(), "books_export_1.zip")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0600))

	_, err := newClient(srv, newStore(t, "")).Upload(context.Background(), local)
	require.ErrorIs(t, err, drive.ErrNoToken)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestUpload_UnauthorizedClearsTokenOnce(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	dir := t.TempDir()
	local := filepath.Join(dir, "books_export_1.zip")
	require.NoError(t, os.WriteFile(local, []byte("ZIPDATA"), 0600))

	store := newStore(t, "stale")
	client := newClient(srv, store)

	archive, err := client.Upload(context.Background(), local)
	require.ErrorIs(t, err, drive.ErrUnauthorized)
	assert.Nil(t, archive)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.clears))
	_, ok := store.Get()
	assert.False(t, ok)

	_, err = client.Upload(context.Background(), local)
	require.ErrorIs(t, err, drive.ErrNoToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "no request without a token")
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.clears))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "local archive untouched")
	assert.Equal(t, "books_export_1.zip", entries[0].Name())
}

func TestDownload_UnauthorizedClearsTokenOnce(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error": {"code": 401}}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "books_export_1.zip")
	store := newStore(t, "stale")
	client := newClient(srv, store)

	err := client.Download(context.Background(), "abc", dest)
	require.ErrorIs(t, err, drive.ErrUnauthorized)
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.clears))
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, dest+".tmp")

	err = client.Download(context.Background(), "abc", dest)
	require.ErrorIs(t, err, drive.ErrNoToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.clears))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestList_RetriesTooManyRequests(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"files": []}`)
	}))
	defer srv.Close()

	client := drive.New(newStore(t, "tok"), drive.Options{APIBase: srv.URL, RetryCount: 2})
	list, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}
