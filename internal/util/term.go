package util

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// IsTTY reports whether stdout is a terminal.
func IsTTY() bool {
	return isTerminal(os.Stdout)
}

// IsInteractive reports whether stdin and stdout are both terminals, so a
// prompt or picker can read keys and draw.
func IsInteractive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// InitColor turns colored output off for --no-color, NO_COLOR or a
// redirected stdout.
func InitColor(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !IsTTY() {
		color.NoColor = true
	}
}
