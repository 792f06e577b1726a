// Package analysis reduces the per-step diagnostics of a run.
//
//   - [Summarize]: mean, spread and drift of one series
//   - [PowerSpectrum]: frequency content, e.g. the sloshing period of a tank
//
// A sloshing fluid shows up as a peak in the spectrum of its kinetic energy:
//
//	sp := analysis.PowerSpectrum(series.Column("kinetic_energy"), dt)
//	freq, _ := sp.Dominant()
package analysis
