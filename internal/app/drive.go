package app

import (
	"fmt"

	"github.com/blackwell-systems/shelfkeep/internal/backup"
	"github.com/blackwell-systems/shelfkeep/internal/drive"
	"github.com/blackwell-systems/shelfkeep/internal/operations"
	"github.com/blackwell-systems/shelfkeep/internal/tui"
	"github.com/blackwell-systems/shelfkeep/internal/util"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drive",
		Short: "Back up to and restore from Google Drive",
		Long: `Manage library backups stored in Google Drive.

Sign in first with 'shelfkeep auth login' or 'shelfkeep auth token <token>'.`,
	}
	cmd.AddCommand(
		newDriveListCmd(),
		newDriveBackupCmd(),
		newDriveRestoreCmd(),
		newDriveDownloadCmd(),
	)
	return cmd
}

func printArchives(archives []drive.Archive) {
	for _, a := range archives {
		fmt.Fprintf(stdout, "  %s  %s  %9s  %s\n",
			a.Name,
			color.New(color.Faint).Sprint(tui.ArchiveCreated(a)),
			tui.ArchiveSize(a),
			color.CyanString(a.ID),
		)
	}
}

// chooseArchive lists the backups and lets the user pick one.
func chooseArchive(cmd *cobra.Command, client *drive.Client, mode drive.SortMode) (drive.Archive, error) {
	if !tui.ShouldUseTUI(cmd) {
		return drive.Archive{}, errors.New("--pick needs an interactive terminal")
	}
	archives, err := client.List(cmd.Context())
	if err != nil {
		return drive.Archive{}, err
	}
	if len(archives) == 0 {
		return drive.Archive{}, operations.ErrNoBackups
	}
	return tui.RunArchivePicker(archives, mode)
}

func newDriveListCmd() *cobra.Command {
	var (
		sortFlag string
		pick     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backups stored in Drive",
		Long: `List backup archives stored in Drive.

With --pick an interactive picker is shown and the chosen archive id is
printed, for use with 'shelfkeep drive download' or 'drive restore'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := drive.ParseSortMode(sortFlag)
			if err != nil {
				return err
			}
			client := newDriveClient()

			if pick {
				a, err := chooseArchive(cmd, client, mode)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), a.ID)
				return nil
			}

			archives, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(archives) == 0 {
				fmt.Fprintln(stdout, "No backups in Drive yet. Create one with 'shelfkeep drive backup'.")
				return nil
			}
			header("%d backup(s), %s first", len(archives), mode)
			printArchives(drive.SortArchives(archives, mode))
			return nil
		},
	}

	cmd.Flags().StringVar(&sortFlag, "sort", "newest", "Sort order: newest, oldest, largest, smallest")
	cmd.Flags().BoolVar(&pick, "pick", false, "Pick an archive interactively and print its id")
	return cmd
}

func newDriveBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Export the library and upload it to Drive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close()

			res, err := operations.CloudBackup(ctx, backup.NewExporter(lib.store), newDriveClient(), cfg.Library.ScratchDir())
			if err != nil {
				return err
			}
			for _, m := range res.Export.Missing {
				warn("Missing file not exported: %s", m)
			}
			ok("Uploaded %s (%d book(s))", res.Archive.Name, res.Export.Books)
			printField("id", res.Archive.ID)
			printField("size", util.HumanBytes(res.Export.Size))
			return nil
		},
	}
}

func newDriveRestoreCmd() *cobra.Command {
	var pick bool

	cmd := &cobra.Command{
		Use:   "restore [archive-id]",
		Short: "Download a backup from Drive and restore it",
		Long: `Download a backup archive from Drive and add its books to the library.

Without an id the newest backup is restored; --pick chooses one
interactively.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := newDriveClient()

			var id string
			if len(args) == 1 {
				id = args[0]
			} else if pick {
				a, err := chooseArchive(cmd, client, drive.SortNewest)
				if err != nil {
					return err
				}
				id = a.ID
			}

			lib, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close()

			res, err := operations.CloudRestore(ctx, newRestorer(lib), client, id, cfg.Library.ScratchDir())
			if err != nil {
				return err
			}
			if res.Archive.Name != "" {
				header("Restored from %s", res.Archive.Name)
			}
			printRestoreReport(res.Restore)
			return nil
		},
	}

	cmd.Flags().BoolVar(&pick, "pick", false, "Pick the archive interactively")
	return cmd
}

func newDriveDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <archive-id> <dest>",
		Short: "Download a backup archive without restoring it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := util.ExpandHome(args[1])
			if err := newDriveClient().Download(cmd.Context(), args[0], dest); err != nil {
				return err
			}
			ok("Downloaded %s", dest)
			return nil
		},
	}
}
