package tui

import (
	"github.com/blackwell-systems/shelfkeep/internal/util"
	"github.com/spf13/cobra"
)

// scriptingFlags are boolean flags that mean a script, not a person, is
// calling.
var scriptingFlags = []string{"no-interactive", "json"}

// ShouldUseTUI reports whether cmd may take over the terminal with a
// picker: stdin and stdout must be terminals and no scripting flag set.
func ShouldUseTUI(cmd *cobra.Command) bool {
	return util.IsInteractive() && !scriptingRequested(cmd)
}

func scriptingRequested(cmd *cobra.Command) bool {
	for _, name := range scriptingFlags {
		if on, _ := cmd.Flags().GetBool(name); on {
			return true
		}
	}
	return false
}
