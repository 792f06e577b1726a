// Package export renders run diagnostics to standalone files.
package export

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/san-kum/fluidsim/internal/sim"
)

var strokeColors = []string{"#1e90ff", "#daa520", "#3cb371", "#cd5c5c", "#da70d6"}

// SeriesToSVG draws the named metrics of a series as line charts stacked
// vertically, each scaled to its own range. An empty names list draws every
// column.
func SeriesToSVG(series *sim.Series, names []string, width, height int) (string, error) {
	if series == nil || series.Len() < 2 {
		return "", fmt.Errorf("export: need at least two steps to draw")
	}
	if len(names) == 0 {
		names = series.Names
	}

	total := height * len(names)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, total, width, total))

	for i, name := range names {
		col := series.Column(name)
		if col == nil {
			return "", fmt.Errorf("export: unknown metric %q", name)
		}
		top := float64(i * height)
		sb.WriteString(fmt.Sprintf(`<text x="8" y="%.0f" fill="#888888" font-family="monospace" font-size="12">%s</text>
`, top+16, name))
		sb.WriteString(linePath(col, top, float64(width), float64(height), strokeColors[i%len(strokeColors)]))
	}

	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

// linePath maps values into a band of the given height starting at top, with
// a tenth of padding on each side. Non-finite values break the line.
func linePath(values []float64, top, width, height float64, stroke string) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return ""
	}

	rng := hi - lo
	if rng == 0 {
		rng = 1
	}
	lo -= rng * 0.1
	rng *= 1.2

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="`, stroke))
	pen := "M"
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			pen = "M"
			continue
		}
		x := float64(i) / float64(len(values)-1) * width
		y := top + height - (v-lo)/rng*height
		sb.WriteString(fmt.Sprintf("%s%.1f,%.1f ", pen, x, y))
		pen = "L"
	}
	sb.WriteString(`"/>
`)
	return sb.String()
}

func WriteSVG(path string, series *sim.Series, names []string, width, height int) error {
	svg, err := SeriesToSVG(series, names, width, height)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(svg), 0644)
}
