package operations_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/shelfkeep/internal/backup"
	"github.com/blackwell-systems/shelfkeep/internal/catalog"
	"github.com/blackwell-systems/shelfkeep/internal/database"
	"github.com/blackwell-systems/shelfkeep/internal/drive"
	"github.com/blackwell-systems/shelfkeep/internal/ingest"
	"github.com/blackwell-systems/shelfkeep/internal/migrations"
	"github.com/blackwell-systems/shelfkeep/internal/operations"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRemote keeps uploaded archives in a directory.
type fakeRemote struct {
	dir        string
	archives   []drive.Archive
	uploaded   []string
	downloaded []string
	failWith   error
}

func (f *fakeRemote) NamePrefix() string { return drive.DefaultNamePrefix }

func (f *fakeRemote) List(context.Context) ([]drive.Archive, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.archives, nil
}

func (f *fakeRemote) Upload(_ context.Context, localPath string) (*drive.Archive, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(localPath)
	if err := os.WriteFile(filepath.Join(f.dir, name), data, 0600); err != nil {
		return nil, err
	}
	f.uploaded = append(f.uploaded, name)
	size := int64(len(data))
	a := drive.Archive{ID: name, Name: name, Size: &size}
	f.archives = append(f.archives, a)
	return &a, nil
}

func (f *fakeRemote) Download(_ context.Context, id, dest string) error {
	f.downloaded = append(f.downloaded, id)
	data, err := os.ReadFile(filepath.Join(f.dir, id))
	if err != nil {
		return &drive.APIError{Status: 404}
	}
	return os.WriteFile(dest, data, 0600)
}

func newTestStore(t *testing.T) *catalog.Store {
	t.Helper()

	db, err := database.New(database.MemoryPath, database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	return catalog.NewStore(db)
}

func TestCloudBackupThenRestore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := newTestStore(t)
	content := filepath.Join(t.TempDir(), "d.pdf")
	require.NoError(t, os.WriteFile(content, []byte("PDFDATA"), 0600))
	require.NoError(t, src.Insert(ctx, &catalog.Book{Title: "T", Author: "A", FilePath: content, LastPage: 3}))

	remote := &fakeRemote{dir: t.TempDir()}
	scratch := t.TempDir()

	res, err := operations.CloudBackup(ctx, backup.NewExporter(src), remote, scratch)
	require.NoError(t, err)
	require.Len(t, remote.uploaded, 1)
	assert.True(t, strings.HasPrefix(res.Archive.Name, "books_export_"))
	assert.True(t, strings.HasSuffix(res.Archive.Name, ".zip"))
	assert.Equal(t, 1, res.Export.Books)

	leftovers, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, leftovers, "local archive removed after upload")

	dst := newTestStore(t)
	booksDir := filepath.Join(t.TempDir(), "books")
	restored, err := operations.CloudRestore(ctx, backup.NewRestorer(dst, booksDir, scratch), remote, "", scratch)
	require.NoError(t, err)
	assert.Equal(t, res.Archive.Name, restored.Archive.Name)
	require.Len(t, restored.Restore.Books, 1)
	assert.Equal(t, 3, restored.Restore.Books[0].LastPage)

	leftovers, err = os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, leftovers, "downloaded archive removed after restore")
}

func TestCloudRestore_PicksNewest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	remote := &fakeRemote{
		dir: t.TempDir(),
		archives: []drive.Archive{
			{ID: "old", CreatedTime: "2024-01-01T00:00:00Z"},
			{ID: "new", CreatedTime: "2024-06-01T00:00:00Z"},
		},
	}

	_, err := operations.CloudRestore(ctx, backup.NewRestorer(newTestStore(t), t.TempDir(), ""), remote, "", t.TempDir())
	var apiErr *drive.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, []string{"new"}, remote.downloaded)
}

func TestCloudRestore_NoBackups(t *testing.T) {
	t.Parallel()

	_, err := operations.CloudRestore(context.Background(), backup.NewRestorer(newTestStore(t), t.TempDir(), ""), &fakeRemote{dir: t.TempDir()}, "", t.TempDir())
	assert.ErrorIs(t, err, operations.ErrNoBackups)
}

func TestCloudBackup_UploadFailureCleansUp(t *testing.T) {
	t.Parallel()
	scratch := t.TempDir()
	remote := &fakeRemote{dir: t.TempDir(), failWith: errors.WithStack(drive.ErrUnauthorized)}

	_, err := operations.CloudBackup(context.Background(), backup.NewExporter(newTestStore(t)), remote, scratch)
	require.ErrorIs(t, err, drive.ErrUnauthorized)

	leftovers, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestAddBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	booksDir := filepath.Join(t.TempDir(), "books")
	im := ingest.NewImporter(booksDir)

	input := filepath.Join(t.TempDir(), "dune.pdf")
	require.NoError(t, os.WriteFile(input, []byte("%PDF-1.4\n<< /Title (Dune) /Author (Frank Herbert) >>\n%%EOF\n"), 0600))

	book, imp, err := operations.AddBook(ctx, im, store, operations.AddOptions{Input: input, Genre: "SF", NoCover: true})
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, "SF", book.GenreOrEmpty())
	assert.Equal(t, filepath.Join(booksDir, "dune.pdf"), book.FilePath)
	assert.Equal(t, imp.Path, book.FilePath)

	plain := filepath.Join(t.TempDir(), "notes.epub")
	require.NoError(t, os.WriteFile(plain, []byte("not really an epub"), 0600))
	book, _, err = operations.AddBook(ctx, im, store, operations.AddOptions{Input: plain, Title: "Notes"})
	require.NoError(t, err)
	assert.Equal(t, "Notes", book.Title)
	assert.Equal(t, catalog.UnknownAuthor, book.Author)
	assert.Nil(t, book.Genre)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func writeEPUB(t *testing.T, p, subject string) {
	t.Helper()
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range map[string]string{
		"META-INF/container.xml": `<container><rootfiles><rootfile full-path="content.opf"/></rootfiles></container>`,
		"content.opf": `<package xmlns:dc="http://purl.org/dc/elements/1.1/"><metadata>` +
			`<dc:title>Leaves of Grass</dc:title><dc:creator>Walt Whitman</dc:creator>` +
			`<dc:subject>` + subject + `</dc:subject></metadata></package>`,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestAddBook_GenreFromEPUBSubject(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	im := ingest.NewImporter(filepath.Join(t.TempDir(), "books"))

	input := filepath.Join(t.TempDir(), "leaves.epub")
	writeEPUB(t, input, " Poetry ")

	book, _, err := operations.AddBook(ctx, im, store, operations.AddOptions{Input: input})
	require.NoError(t, err)
	assert.Equal(t, "Leaves of Grass", book.Title)
	assert.Equal(t, "Walt Whitman", book.Author)
	require.NotNil(t, book.Genre)
	assert.Equal(t, "Poetry", *book.Genre)

	book, _, err = operations.AddBook(ctx, im, store, operations.AddOptions{Input: input, Genre: "Verse"})
	require.NoError(t, err)
	assert.Equal(t, "Verse", book.GenreOrEmpty())

	stored, err := store.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Verse", stored.GenreOrEmpty())
}
