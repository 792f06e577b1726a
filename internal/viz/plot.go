package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fluidsim/internal/sim"
)

var plotColors = []asciigraph.AnsiColor{
	asciigraph.DodgerBlue,
	asciigraph.Goldenrod,
	asciigraph.MediumSeaGreen,
	asciigraph.IndianRed,
	asciigraph.Orchid,
}

// PlotSeries draws one chart per requested metric. An empty names list plots
// every column. Unknown names are reported in place of a chart.
func PlotSeries(series *sim.Series, names []string, width, height int) string {
	if series == nil || series.Len() == 0 {
		return Default.Subtle.Render("no per-step data")
	}
	if len(names) == 0 {
		names = series.Names
	}

	charts := make([]string, 0, len(names))
	for i, name := range names {
		col := series.Column(name)
		if col == nil {
			charts = append(charts, Default.StatusWarn.Render(fmt.Sprintf("unknown metric %q", name)))
			continue
		}
		charts = append(charts, asciigraph.Plot(col,
			asciigraph.Width(width),
			asciigraph.Height(height),
			asciigraph.SeriesColors(plotColors[i%len(plotColors)]),
			asciigraph.Caption(name),
		))
	}
	return strings.Join(charts, "\n\n")
}
