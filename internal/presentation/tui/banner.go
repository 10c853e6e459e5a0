package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the TaskUp banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	// Teal to indigo.
	lines := []struct {
		text, color string
	}{
		{"  _____         _    _   _       ", "#2dd4bf"},
		{" |_   _|_ _ ___| | _| | | |_ __  ", "#38bdf8"},
		{"   | |/ _` / __| |/ / | | | '_ \\ ", "#60a5fa"},
		{"   | | (_| \\__ \\   <| |_| | |_) |", "#818cf8"},
		{"   |_|\\__,_|___/_|\\_\\\\___/| .__/ ", "#a78bfa"},
		{"                           |_|    ", "#a78bfa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
