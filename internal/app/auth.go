package app

import (
	"time"

	"github.com/blackwell-systems/shelfkeep/internal/drive"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Google Drive access token",
	}
	cmd.AddCommand(
		newAuthTokenCmd(),
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
	)
	return cmd
}

func newAuthTokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <access-token>",
		Short: "Store an access token obtained elsewhere",
		Long: `Store a Drive access token, for example one printed by the OAuth
playground. It is used until it expires (default: drive.token_ttl).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				ttl = cfg.Drive.EffectiveTokenTTL()
			}
			tokens := newTokenStore()
			if err := tokens.Set(args[0], ttl); err != nil {
				return err
			}
			ok("Token saved to %s (valid for %s)", tokens.Path(), ttl)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: drive.token_ttl)")
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to Google Drive in the browser",
		Long: `Run the OAuth consent flow for the client configured as drive.client_id.
The client secret is read from the variable named by drive.client_secret_env.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := drive.Login(cmd.Context(), drive.LoginConfig{
				ClientID:     cfg.Drive.ClientID,
				ClientSecret: cfg.Drive.ClientSecret,
			}, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			tokens := newTokenStore()
			if err := tokens.Save(tok); err != nil {
				return err
			}
			ok("Signed in; token saved to %s", tokens.Path())
			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newTokenStore().Clear(); err != nil {
				return err
			}
			ok("Signed out")
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a usable access token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens := newTokenStore()
			tok, err := tokens.Token()
			if err != nil {
				return err
			}

			header("Drive")
			printField("token_file", tokens.Path())
			if _, valid := tokens.Get(); !valid || tok == nil {
				printField("status", color.RedString("signed out"))
				return nil
			}
			printField("status", color.GreenString("signed in"))
			printField("expires", tok.Expiry.Local().Format("2006-01-02 15:04"))
			printField("refreshable", boolWord(tok.RefreshToken != ""))
			return nil
		},
	}
}

func boolWord(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
