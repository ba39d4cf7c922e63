package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the serve banner.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"   __                                      _    ", "#34d399"},
		{"  / _| ___  _ __ _ __ _____      _____  _ _| | __", "#2dd4bf"},
		{" | |_ / _ \\| '__| '_ ` _ \\ \\ /\\ / / _ \\| '__| |/ /", "#22d3ee"},
		{" |  _| (_) | |  | | | | | \\ V  V / (_) | |  |   < ", "#38bdf8"},
		{" |_|  \\___/|_|  |_| |_| |_|\\_/\\_/ \\___/|_|  |_|\\_\\", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
