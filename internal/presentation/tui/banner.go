package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  ____        _          ", "#22d3ee"},
	{" |  _ \\ _   _| |___  ___ ", "#38bdf8"},
	{" | |_) | | | | / __|/ _ \\", "#60a5fa"},
	{" |  __/| |_| | \\__ \\  __/", "#818cf8"},
	{" |_|    \\__,_|_|___/\\___|", "#a78bfa"},
}

// PrintBanner writes the pulse banner to w using the given color profile.
func PrintBanner(w io.Writer, p termenv.Profile) {
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
