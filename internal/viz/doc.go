// Package viz renders run information for the terminal.
//
// It does not draw particles. It provides:
//
//   - [Styles]: lipgloss styles derived from a [Theme]
//   - [ParametersPanel]: the parameter summary printed before stepping
//   - [MetricsPanel]: final diagnostics of a run
//   - [PlotSeries]: asciigraph line charts of per-step diagnostics
package viz
