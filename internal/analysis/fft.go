package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Spectrum is the one-sided amplitude spectrum of a series sampled once per
// time step.
type Spectrum struct {
	Freq      []float64 // Hz
	Amplitude []float64
}

// PowerSpectrum transforms data after removing its mean. dt is the time
// between samples in seconds.
func PowerSpectrum(data []float64, dt float64) Spectrum {
	n := len(data)
	if n < 2 || dt <= 0 {
		return Spectrum{}
	}

	centered := make([]float64, n)
	copy(centered, data)
	floats.AddConst(-stat.Mean(centered, nil), centered)

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, centered)

	s := Spectrum{
		Freq:      make([]float64, len(coeff)),
		Amplitude: make([]float64, len(coeff)),
	}
	for i, c := range coeff {
		s.Freq[i] = fft.Freq(i) / dt
		s.Amplitude[i] = cmplx.Abs(c) / float64(n)
	}
	return s
}

// Dominant returns the strongest non-zero frequency and its amplitude. A
// flat or empty spectrum yields zeros.
func (s Spectrum) Dominant() (freq, amp float64) {
	for i := 1; i < len(s.Amplitude); i++ {
		if s.Amplitude[i] > amp {
			freq, amp = s.Freq[i], s.Amplitude[i]
		}
	}
	return freq, amp
}

// Summary describes one per-step series.
type Summary struct {
	Samples int
	Mean    float64
	StdDev  float64
	Min     float64
	Max     float64
	First   float64
	Last    float64
	// Drift is the change from the first to the last sample, relative to the
	// first when it is non-zero.
	Drift float64
}

// Summarize ignores non-finite samples. An empty series yields a zero Summary.
func Summarize(data []float64) Summary {
	finite := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return Summary{}
	}

	s := Summary{
		Samples: len(finite),
		Min:     floats.Min(finite),
		Max:     floats.Max(finite),
		First:   finite[0],
		Last:    finite[len(finite)-1],
	}
	s.Mean, s.StdDev = stat.MeanStdDev(finite, nil)
	if len(finite) == 1 {
		s.StdDev = 0
	}

	s.Drift = s.Last - s.First
	if s.First != 0 {
		s.Drift /= math.Abs(s.First)
	}
	return s
}
