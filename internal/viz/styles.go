package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/fluidsim/internal/physics"
)

type Styles struct {
	Panel       lipgloss.Style
	Title       lipgloss.Style
	Bar         lipgloss.Style
	MetricLabel lipgloss.Style
	MetricValue lipgloss.Style
	Subtle      lipgloss.Style
	StatusOK    lipgloss.Style
	StatusWarn  lipgloss.Style
	StatusError lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 2),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary).
			MarginBottom(1),
		Bar: lipgloss.NewStyle().
			Foreground(t.Accent),
		MetricLabel: lipgloss.NewStyle().
			Foreground(t.Muted).
			Width(16),
		MetricValue: lipgloss.NewStyle().
			Foreground(t.Text).
			Bold(true),
		Subtle: lipgloss.NewStyle().
			Foreground(t.Muted),
		StatusOK: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Success),
		StatusWarn: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Warning),
		StatusError: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Error),
	}
}

// Default is used by the package level helpers.
var Default = NewStyles(ThemeOcean)

// SetTheme replaces the styles used by the package level helpers.
func SetTheme(name string) {
	Default = NewStyles(GetTheme(name))
}

// Row is one label/value line of a panel.
type Row struct {
	Label string
	Value string
}

// Render draws rows under a title inside a rounded border.
func (s Styles) Render(title string, rows []Row) string {
	var b strings.Builder
	b.WriteString(s.Title.Render(title))
	b.WriteString("\n")
	for i, r := range rows {
		b.WriteString(s.MetricLabel.Render(r.Label))
		b.WriteString(s.MetricValue.Render(r.Value))
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	return s.Panel.Render(b.String())
}

// ParametersPanel summarizes the constants and grid layout of a run.
func ParametersPanel(c *physics.Constants, particles int, counts [3]int, size [3]float64) string {
	return Default.Render("Simulation parameters", ParameterRows(c, particles, counts, size))
}

func ParameterRows(c *physics.Constants, particles int, counts [3]int, size [3]float64) []Row {
	return []Row{
		{"Particles", fmt.Sprintf("%d", particles)},
		{"Per meter", fmt.Sprintf("%g", c.PPM)},
		{"Smoothing", fmt.Sprintf("%.6g", c.H)},
		{"Mass", fmt.Sprintf("%.6g", c.Mass)},
		{"Time step", fmt.Sprintf("%g", c.TimeStep)},
		{"Grid", fmt.Sprintf("%d x %d x %d", counts[0], counts[1], counts[2])},
		{"Blocks", fmt.Sprintf("%d", counts[0]*counts[1]*counts[2])},
		{"Block size", fmt.Sprintf("%.6g x %.6g x %.6g", size[0], size[1], size[2])},
	}
}

// MetricsPanel lists metric values in name order.
func MetricsPanel(title string, metrics map[string]float64) string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]Row, len(names))
	for i, name := range names {
		rows[i] = Row{Label: name, Value: FormatValue(metrics[name])}
	}
	return Default.Render(title, rows)
}

func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		return Default.StatusError.Render(fmt.Sprintf("%v", v))
	case v != 0 && (math.Abs(v) < 1e-3 || math.Abs(v) >= 1e6):
		return fmt.Sprintf("%.4e", v)
	default:
		return fmt.Sprintf("%.6f", v)
	}
}

// ProgressBar renders a bar filled to percent in [0, 1].
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Sparkline renders values as one line of block characters, sampled to width.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))
		b.WriteRune(chars[idx])
	}
	return b.String()
}

func Separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(mid-3, 0))
	right := strings.Repeat("─", max(width-mid-3, 0))
	return Default.Subtle.Render(left + " ◆ " + right)
}
