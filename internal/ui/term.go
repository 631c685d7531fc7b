package ui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// IsTTY reports whether w is a terminal file descriptor.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether the NO_COLOR environment variable is set,
// per the convention at https://no-color.org.
func DetectNoColor() bool {
	_, set := os.LookupEnv("NO_COLOR")
	return set
}

// AutoStyles picks styled or plain components for out, honoring an
// explicit noColor flag, the NO_COLOR convention, and whether out is
// actually a terminal.
func AutoStyles(out io.Writer, noColor bool) Styles {
	if noColor || DetectNoColor() || !IsTTY(out) {
		return NoColorStyles()
	}
	return DefaultStyles()
}
