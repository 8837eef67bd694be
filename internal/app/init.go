package app

import (
	"github.com/blackwell-systems/shelfkeep/internal/config"
	"github.com/blackwell-systems/shelfkeep/internal/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the current settings",
		Long: `Write the settings in effect (defaults, environment and any existing
config file) to the config file, and create the library directories.

An existing config file is left alone unless --force is given.

Examples:
  shelfkeep init
  SHELFKEEP_LIBRARY_DIR=~/books shelfkeep init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = config.Path()
			}
			if util.FileExists(path) && !force {
				return errors.Errorf("config file %s already exists (use --force to overwrite)", path)
			}

			if err := util.EnsureDir(cfg.Library.BooksDir()); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return errors.Wrap(err, "writing config")
			}

			ok("Wrote %s", path)
			printField("library", cfg.Library.Dir)
			printField("database", cfg.Library.DatabasePath())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
