package app

import (
	"path/filepath"
	"time"

	"github.com/blackwell-systems/shelfkeep/internal/backup"
	"github.com/blackwell-systems/shelfkeep/internal/drive"
	"github.com/blackwell-systems/shelfkeep/internal/util"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [dest.zip]",
		Short: "Write the whole library to a ZIP archive",
		Long: `Write every book and its files to a ZIP archive with a metadata.json
manifest. The default destination is books_export_<millis>.zip in the
current directory.

Examples:
  shelfkeep export
  shelfkeep export ~/backups/library.zip`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := cfg.Drive.NamePrefix
			if prefix == "" {
				prefix = drive.DefaultNamePrefix
			}
			dest := drive.BackupNameWithPrefix(prefix, time.Now())
			if len(args) == 1 {
				dest = util.ExpandHome(args[0])
			}

			ctx := cmd.Context()
			lib, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close()

			report, err := backup.NewExporter(lib.store).ExportLibrary(ctx, dest)
			if err != nil {
				return err
			}
			printExportReport(report)
			return nil
		},
	}
}

func printExportReport(report *backup.ExportReport) {
	for _, m := range report.Missing {
		warn("Missing file not exported: %s", m)
	}
	ok("Exported %d book(s), %d file(s)", report.Books, report.Files)
	if report.Path != "" {
		if abs, err := filepath.Abs(report.Path); err == nil {
			printField("archive", abs)
		}
	}
	printField("size", util.HumanBytes(report.Size))
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <archive.zip>",
		Short: "Add the books of a ZIP archive to the library",
		Long: `Restore a ZIP archive written by 'shelfkeep export' or 'shelfkeep drive backup'.

Every manifest entry becomes a new book; existing books are kept. Files
are copied into storage under their archive names, replacing files of
the same name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close()

			report, err := newRestorer(lib).Restore(ctx, util.ExpandHome(args[0]))
			if err != nil {
				return err
			}
			printRestoreReport(report)
			return nil
		},
	}
}

func newRestorer(lib *library) *backup.Restorer {
	return backup.NewRestorer(lib.store, cfg.Library.BooksDir(), cfg.Library.ScratchDir())
}

func printRestoreReport(report *backup.RestoreReport) {
	for _, m := range report.Missing {
		warn("File not in archive: %s", m)
	}
	for _, b := range report.Unbacked {
		warn("Book #%d %q points at %s, which was not restored from the archive", b.ID, b.Title, b.FilePath)
	}
	if report.Skipped > 0 {
		warn("Skipped %d manifest entr(ies) without a file name", report.Skipped)
	}
	ok("Restored %d book(s), %d file(s)", len(report.Books), report.Files)
}
