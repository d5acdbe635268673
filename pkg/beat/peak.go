package beat

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PeakConfig holds the onset detector parameters.
type PeakConfig struct {
	SampleRate    int     // Hz
	WindowSize    int     // FFT size, power of two
	LowHz         float64 // Band start
	HighHz        float64 // Band end
	Threshold     float64 // Minimum normalized band energy for a peak
	FramesPerPeak int     // Frames to hold the cutoff after a peak
	CutoffMult    float64 // Cutoff raise factor after a peak
	Decay         float64 // Cutoff decay per frame once the hold expires
	Smoothing     float64 // Temporal smoothing of bin magnitudes (0-1)
	MinDecibels   float64 // dB mapped to 0
	MaxDecibels   float64 // dB mapped to 1
}

// DefaultPeakConfig detects kick/bass onsets in the 20-200Hz band.
func DefaultPeakConfig() PeakConfig {
	return PeakConfig{
		SampleRate:    44100,
		WindowSize:    1024,
		LowHz:         20,
		HighHz:        200,
		Threshold:     0.15,
		FramesPerPeak: 20,
		CutoffMult:    1.5,
		Decay:         0.95,
		Smoothing:     0.8,
		MinDecibels:   -100,
		MaxDecibels:   -30,
	}
}

// PeakDetector is a band-energy onset detector with an adaptive cutoff.
type PeakDetector struct {
	cfg    PeakConfig
	fft    *fourier.FFT
	window []float64
	mags   []float64
	buf    []float64
	coeffs []complex128

	lowBin, highBin int

	energy     float64
	prevEnergy float64
	cutoff     float64
	sinceLast  int
	isDetected bool
}

// NewPeakDetector creates a detector for windows of cfg.WindowSize samples.
func NewPeakDetector(cfg PeakConfig) *PeakDetector {
	n := cfg.WindowSize
	d := &PeakDetector{
		cfg:    cfg,
		fft:    fourier.NewFFT(n),
		window: hann(n),
		mags:   make([]float64, n/2+1),
		buf:    make([]float64, n),
	}

	binHz := float64(cfg.SampleRate) / float64(n)
	d.lowBin = int(math.Round(cfg.LowHz / binHz))
	d.highBin = int(math.Round(cfg.HighHz / binHz))
	if d.lowBin < 0 {
		d.lowBin = 0
	}
	if d.highBin > n/2 {
		d.highBin = n / 2
	}
	if d.highBin < d.lowBin {
		d.highBin = d.lowBin
	}

	return d
}

// Update analyzes one window of samples in [-1,1] and reports whether an
// onset was detected. Short windows are zero-padded.
func (d *PeakDetector) Update(samples []float64) bool {
	n := d.cfg.WindowSize
	for i := 0; i < n; i++ {
		v := 0.0
		if i < len(samples) {
			v = samples[i]
		}
		d.buf[i] = v * d.window[i]
	}

	d.coeffs = d.fft.Coefficients(d.coeffs, d.buf)

	scale := 2.0 / float64(n)
	for k := range d.mags {
		mag := cmplx.Abs(d.coeffs[k]) * scale
		d.mags[k] = d.cfg.Smoothing*d.mags[k] + (1-d.cfg.Smoothing)*mag
	}

	nrg := d.bandEnergy()
	d.energy = nrg

	if nrg > d.cutoff && nrg > d.cfg.Threshold && nrg-d.prevEnergy > 0 {
		d.isDetected = true
		d.cutoff = nrg * d.cfg.CutoffMult
		d.sinceLast = 0
	} else {
		d.isDetected = false
		if d.sinceLast <= d.cfg.FramesPerPeak {
			d.sinceLast++
		} else {
			d.cutoff *= d.cfg.Decay
			d.cutoff = math.Max(d.cutoff, d.cfg.Threshold)
		}
	}

	d.prevEnergy = nrg
	return d.isDetected
}

// Energy returns the last normalized band energy (0-1).
func (d *PeakDetector) Energy() float64 {
	return d.energy
}

func (d *PeakDetector) bandEnergy() float64 {
	var sum float64
	count := 0
	for k := d.lowBin; k <= d.highBin; k++ {
		sum += d.normalize(d.mags[k])
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// normalize maps a linear magnitude onto [0,1] over the dB range.
func (d *PeakDetector) normalize(mag float64) float64 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := (db - d.cfg.MinDecibels) / (d.cfg.MaxDecibels - d.cfg.MinDecibels)
	return clamp(v, 0, 1)
}

func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
