package patrol

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Preview renders up to limit patrol entries as an aligned text table for
// console output. System names can contain wide runes, so alignment uses
// display width rather than byte length.
func Preview(entries []Entry, limit int) string {
	if len(entries) == 0 {
		return "patrol is empty\n"
	}

	shown := entries
	truncated := 0
	if limit > 0 && len(entries) > limit {
		shown = entries[:limit]
		truncated = len(entries) - limit
	}

	idWidth := runewidth.StringWidth("ID64")
	nameWidth := runewidth.StringWidth("SYSTEM")
	for _, e := range shown {
		if w := runewidth.StringWidth(e.ID64); w > idWidth {
			idWidth = w
		}
		if w := runewidth.StringWidth(e.System); w > nameWidth {
			nameWidth = w
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s\n",
		runewidth.FillRight("ID64", idWidth),
		runewidth.FillRight("SYSTEM", nameWidth),
		"COORDINATES")

	for _, e := range shown {
		coords := fmt.Sprintf("(%s, %s, %s)", e.X, e.Y, e.Z)
		fmt.Fprintf(&b, "%s  %s  %s\n",
			runewidth.FillRight(e.ID64, idWidth),
			runewidth.FillRight(e.System, nameWidth),
			coords)
	}

	if truncated > 0 {
		fmt.Fprintf(&b, "... and %d more\n", truncated)
	}

	return b.String()
}
