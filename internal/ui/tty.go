package ui

import (
	"os"

	"github.com/mattn/go-isatty"
)

// IsTTY reports whether both stdin and stdout are terminals, which is what
// the interactive prompts and bubbletea renderers need.
func IsTTY() bool {
	return isTerminal(os.Stdout.Fd()) && isTerminal(os.Stdin.Fd())
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
