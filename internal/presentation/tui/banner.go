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
	{`     _        _                   _   _     `, "#818cf8"},
	{` ___| |_ __ _| |_ ___ _ __   __ _| |_| |__  `, "#a78bfa"},
	{`/ __| __/ _' | __/ _ \ '_ \ / _' | __| '_ \ `, "#c084fc"},
	{`\__ \ || (_| | ||  __/ |_) | (_| | |_| | | |`, "#e879f9"},
	{`|___/\__\__,_|\__\___| .__/ \__,_|\__|_| |_|`, "#f472b6"},
	{`                     |_|                    `, "#fb7185"},
}

// PrintBanner writes the statepath banner and version to w, coloured when
// w is a capable terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(out)
	for _, l := range bannerLines {
		fmt.Fprintln(out, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(out, out.String("  version "+version).Faint())
	}
	fmt.Fprintln(out)
}
