// Package chart emits a supplementary SVG bar chart of the top
// self-cost functions in a sampling window (`-g`, additive to the
// core Callgrind/Graphviz artifacts).
package chart

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"

	"github.com/orbcode/orbprofile/internal/names"
	"github.com/orbcode/orbprofile/internal/stats"
)

const (
	width     = 800
	rowHeight = 24
	barMax    = 600
	marginTop = 20
)

// Write draws a horizontal bar for each of the top entries in
// summary.Top (already sorted by self cost, descending), labeled with
// the function name resolved through cache.
func Write(w io.Writer, summary stats.Summary, cache *names.Cache, top int) {
	if top <= 0 || top > len(summary.Top) {
		top = len(summary.Top)
	}
	height := marginTop*2 + top*rowHeight

	canvas := svg.New(w)
	canvas.Start(width, height)

	var max uint64
	for _, fc := range summary.Top[:top] {
		if fc.Self > max {
			max = fc.Self
		}
	}

	for i, fc := range summary.Top[:top] {
		y := marginTop + i*rowHeight
		barWidth := barMax
		if max > 0 {
			barWidth = int(fc.Self * uint64(barMax) / max)
		}
		canvas.Rect(120, y, barWidth, rowHeight-4, "fill:steelblue")

		in := cache.LookupOrInsert(fc.Addr)
		canvas.Text(0, y+rowHeight-8, in.Record.Function, "font-size:12px")
		canvas.Text(120+barWidth+4, y+rowHeight-8, fmt.Sprintf("%d", fc.Self), "font-size:12px")
	}

	canvas.End()
}
