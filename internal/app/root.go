package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/blackwell-systems/shelfkeep/internal/backup"
	"github.com/blackwell-systems/shelfkeep/internal/catalog"
	"github.com/blackwell-systems/shelfkeep/internal/config"
	"github.com/blackwell-systems/shelfkeep/internal/drive"
	"github.com/blackwell-systems/shelfkeep/internal/ingest"
	"github.com/blackwell-systems/shelfkeep/internal/operations"
	"github.com/blackwell-systems/shelfkeep/internal/tui"
	"github.com/blackwell-systems/shelfkeep/internal/tui/picker"
	"github.com/blackwell-systems/shelfkeep/internal/util"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func newRootCmd() *cobra.Command {
	var (
		flagNoColor bool
		flagConfig  string
	)

	root := &cobra.Command{
		Use:   "shelfkeep",
		Short: "Keep a personal PDF/EPUB library with local and Drive backups",
		Long: `shelfkeep catalogs PDF and EPUB files in a private storage directory,
tracks reading progress, and backs the library up to portable ZIP archives,
locally or in Google Drive.

Run 'shelfkeep' with no arguments to pick a book and open it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !tui.ShouldUseTUI(cmd) {
				return cmd.Help()
			}
			return pickAndOpen(cmd, "")
		},
	}

	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().Bool("no-interactive", false, "Disable interactive TUI mode")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/shelfkeep/config.yml)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		util.InitColor(flagNoColor)
		stdout, stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()

		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return errors.Wrap(err, "loading config")
		}

		log := logger.NewWithLevel(cfg.Log.Level)
		cmd.SetContext(log.WithContext(commandContext(cmd)))
		return nil
	}

	root.AddCommand(
		newInitCmd(),
		newAddCmd(),
		newListCmd(),
		newInfoCmd(),
		newEditCmd(),
		newProgressCmd(),
		newOpenCmd(),
		newDeleteCmd(),
		newExportCmd(),
		newRestoreCmd(),
		newDriveCmd(),
		newAuthCmd(),
		newCompletionCmd(),
		newVersionCmd(),
	)
	for _, c := range root.Commands() {
		switch c.Name() {
		case "info", "progress", "open", "delete", "edit":
			c.ValidArgsFunction = completeBookIDs
		}
	}
	return root
}

// Execute is the entry point called from main.
func Execute() {
	err := newRootCmd().ExecuteContext(context.Background())
	if err == nil || errors.Is(err, picker.ErrCanceled) {
		return
	}
	fmt.Fprintln(os.Stderr, color.RedString("error:"), describeError(err))
	os.Exit(1)
}

// describeError turns the error kinds users can act on into a hint.
func describeError(err error) string {
	var apiErr *drive.APIError
	switch {
	case errors.Is(err, drive.ErrUnauthorized):
		return "Drive rejected the access token; run 'shelfkeep auth login' or 'shelfkeep auth token <token>'"
	case errors.Is(err, drive.ErrNoToken):
		return "not signed in to Drive; run 'shelfkeep auth login' or 'shelfkeep auth token <token>'"
	case errors.Is(err, operations.ErrNoBackups):
		return "no backups found on Drive; run 'shelfkeep drive backup' first"
	case errors.Is(err, backup.ErrInvalidArchive):
		return fmt.Sprintf("%v (is this a shelfkeep backup?)", err)
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return fmt.Sprintf("%v (only PDF and EPUB files can be added)", err)
	case errors.Is(err, catalog.ErrNotFound):
		return fmt.Sprintf("%v (see 'shelfkeep list')", err)
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Drive request failed: %v", apiErr)
	}
	return err.Error()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// ok prints a green success line.
func ok(format string, a ...interface{}) {
	fmt.Fprintln(stdout, color.GreenString("✓"), fmt.Sprintf(format, a...))
}

// warn prints a yellow warning line.
func warn(format string, a ...interface{}) {
	fmt.Fprintln(stderr, color.YellowString("!"), fmt.Sprintf(format, a...))
}

// header prints a cyan section heading.
func header(format string, a ...interface{}) {
	fmt.Fprintln(stdout, color.CyanString(fmt.Sprintf(format, a...)))
}

func printField(label, value string) {
	fmt.Fprintf(stdout, "  %-14s %s\n", color.CyanString(label+":"), value)
}
