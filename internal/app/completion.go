package app

import (
	"io"
	"strconv"
	"strings"

	"github.com/blackwell-systems/shelfkeep/internal/catalog"
	"github.com/blackwell-systems/shelfkeep/internal/config"
	"github.com/blackwell-systems/shelfkeep/internal/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var completionScripts = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion <bash|zsh|fish|powershell>",
		Short: "Generate shell autocompletion scripts",
		Long: `Generate autocompletion scripts for your shell. Book commands complete
catalog IDs with their titles.

Examples:
  # Bash (add to ~/.bashrc)
  source <(shelfkeep completion bash)

  # Zsh (add to ~/.zshrc)
  source <(shelfkeep completion zsh)

  # Fish
  shelfkeep completion fish > ~/.config/fish/completions/shelfkeep.fish

  # PowerShell
  shelfkeep completion powershell | Out-String | Invoke-Expression`,
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, found := completionScripts[strings.ToLower(args[0])]
			if !found {
				return errors.Errorf("unsupported shell %q", args[0])
			}
			return gen(cmd.Root(), cmd.OutOrStdout())
		},
	}
}

// completeBookIDs completes the first argument with catalog IDs, described
// by title. It never creates a library that does not exist yet.
func completeBookIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	// Completion runs without the root pre-run hook.
	path, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(path)
	if err != nil || !util.FileExists(loaded.Library.DatabasePath()) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg = loaded

	ctx := commandContext(cmd)
	lib, err := openLibrary(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer lib.Close()

	books, err := lib.store.List(ctx, catalog.ListOptions{Order: catalog.OrderOldest})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	out := make([]string, 0, len(books))
	for _, b := range books {
		id := strconv.FormatInt(b.ID, 10)
		if strings.HasPrefix(id, toComplete) {
			out = append(out, id+"\t"+b.Title)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
