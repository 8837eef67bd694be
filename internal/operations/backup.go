package operations

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/blackwell-systems/shelfkeep/internal/backup"
	"github.com/blackwell-systems/shelfkeep/internal/drive"
)

// ErrNoBackups is returned by CloudRestore when Drive holds no archive.
var ErrNoBackups = errors.New("no backups found on drive")

// LibraryExporter writes the whole library to an archive.
type LibraryExporter interface {
	ExportLibrary(ctx context.Context, dest string) (*backup.ExportReport, error)
}

// LibraryRestorer adds the contents of an archive to the library.
type LibraryRestorer interface {
	Restore(ctx context.Context, archivePath string) (*backup.RestoreReport, error)
}

// Remote stores archives off-device.
type Remote interface {
	List(ctx context.Context) ([]drive.Archive, error)
	Upload(ctx context.Context, localPath string) (*drive.Archive, error)
	Download(ctx context.Context, id, dest string) error
	NamePrefix() string
}

// CloudBackupResult describes a finished CloudBackup.
type CloudBackupResult struct {
	Archive *drive.Archive
	Export  *backup.ExportReport
}

// CloudBackup exports the library into scratchDir, uploads the archive
// and removes the local copy.
func CloudBackup(ctx context.Context, exp LibraryExporter, remote Remote, scratchDir string) (*CloudBackupResult, error) {
	if err := os.MkdirAll(scratchDir, 0750); err != nil {
		return nil, errors.WithStack(err)
	}
	local := filepath.Join(scratchDir, drive.BackupNameWithPrefix(remote.NamePrefix(), time.Now()))
	defer removeScratch(ctx, local)

	report, err := exp.ExportLibrary(ctx, local)
	if err != nil {
		return nil, errors.Wrap(err, "export library")
	}

	archive, err := remote.Upload(ctx, local)
	if err != nil {
		return nil, err
	}
	return &CloudBackupResult{Archive: archive, Export: report}, nil
}

// CloudRestoreResult describes a finished CloudRestore.
type CloudRestoreResult struct {
	Archive drive.Archive
	Restore *backup.RestoreReport
}

// CloudRestore downloads an archive and restores it. With an empty
// archiveID the newest archive on Drive is used.
func CloudRestore(ctx context.Context, rest LibraryRestorer, remote Remote, archiveID, scratchDir string) (*CloudRestoreResult, error) {
	target := drive.Archive{ID: archiveID}
	if archiveID == "" {
		list, err := remote.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, ErrNoBackups
		}
		target = drive.SortArchives(list, drive.SortNewest)[0]
	}

	if err := os.MkdirAll(scratchDir, 0750); err != nil {
		return nil, errors.WithStack(err)
	}
	local := filepath.Join(scratchDir, "download-"+uuid.NewString()+".zip")
	defer removeScratch(ctx, local)

	if err := remote.Download(ctx, target.ID, local); err != nil {
		return nil, err
	}

	report, err := rest.Restore(ctx, local)
	if err != nil {
		return nil, err
	}
	return &CloudRestoreResult{Archive: target, Restore: report}, nil
}

func removeScratch(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.FromContext(ctx).Warn("failed to remove scratch archive", logger.Data{"path": path, "error": err.Error()})
	}
}
