package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

type fdWriter interface {
	Fd() uintptr
}

// ColorEnabled reports whether styled output should be written to w. It is
// false for non-terminals, TERM=dumb and when NO_COLOR is present.
// See https://no-color.org for the convention
func ColorEnabled(w io.Writer) bool {
	if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}

	f, ok := w.(fdWriter)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ConfigureRenderer makes the default lipgloss renderer target w, with colour
// switched off when w cannot show it
func ConfigureRenderer(w io.Writer) {
	r := lipgloss.NewRenderer(w)
	if !ColorEnabled(w) {
		r.SetColorProfile(termenv.Ascii)
	}
	lipgloss.SetDefaultRenderer(r)
}
