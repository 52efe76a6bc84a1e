package fingerprint

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	DefaultCoefficients = 20
	DefaultMels         = 128
	DefaultFFTSize      = 2048
	DefaultHopSize      = 512
	DefaultTopDB        = 80.0

	// amin keeps log10 finite on silent bins.
	amin = 1e-10
)

// MFCCConfig holds the parameters of the cepstral transform. Zero values
// fall back to the defaults above.
type MFCCConfig struct {
	Coefficients int
	Mels         int
	FFTSize      int
	HopSize      int
	MinFreq      float64
	MaxFreq      float64 // 0 means Nyquist
	TopDB        float64
}

func DefaultMFCCConfig() MFCCConfig {
	return MFCCConfig{
		Coefficients: DefaultCoefficients,
		Mels:         DefaultMels,
		FFTSize:      DefaultFFTSize,
		HopSize:      DefaultHopSize,
		TopDB:        DefaultTopDB,
	}
}

func (c MFCCConfig) withDefaults() MFCCConfig {
	d := DefaultMFCCConfig()
	if c.Coefficients <= 0 {
		c.Coefficients = d.Coefficients
	}
	if c.Mels <= 0 {
		c.Mels = d.Mels
	}
	if c.FFTSize <= 0 {
		c.FFTSize = d.FFTSize
	}
	if c.HopSize <= 0 {
		c.HopSize = d.HopSize
	}
	if c.TopDB <= 0 {
		c.TopDB = d.TopDB
	}
	return c
}

// MFCC computes mel-frequency cepstral coefficients. Filter banks are built
// lazily per sample rate, so one MFCC value can serve a whole library of
// mixed-rate files from many goroutines.
type MFCC struct {
	cfg    MFCCConfig
	window []float64
	dct    [][]float64
	banks  sync.Map // sample rate -> *melBank
}

type melBank struct {
	weights [][]float64 // [mel][fft bin]
	start   []int       // first non-zero bin per filter
	end     []int       // one past the last non-zero bin per filter
}

func NewMFCC(cfg MFCCConfig) (*MFCC, error) {
	cfg = cfg.withDefaults()
	if cfg.Coefficients > cfg.Mels {
		return nil, fmt.Errorf("coefficients (%d) cannot exceed mel bands (%d)", cfg.Coefficients, cfg.Mels)
	}
	if cfg.HopSize > cfg.FFTSize {
		return nil, fmt.Errorf("hop size (%d) larger than FFT size (%d)", cfg.HopSize, cfg.FFTSize)
	}

	// Periodic Hann: the first N points of an N+1 symmetric window.
	win := window.Hann(cfg.FFTSize + 1)[:cfg.FFTSize]

	return &MFCC{
		cfg:    cfg,
		window: win,
		dct:    dctMatrix(cfg.Coefficients, cfg.Mels),
	}, nil
}

func (m *MFCC) Config() MFCCConfig { return m.cfg }

// FrameCount returns the number of frames Compute yields for n samples.
func (m *MFCC) FrameCount(n int) int {
	return 1 + n/m.cfg.HopSize
}

// Compute returns a coefficient-major matrix: out[c][t].
func (m *MFCC) Compute(samples []float32, sampleRate int) ([][]float64, error) {
	if len(samples) == 0 {
		return nil, errors.New("samples cannot be empty")
	}
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}

	bank := m.bank(sampleRate)
	nfft := m.cfg.FFTSize
	hop := m.cfg.HopSize
	bins := nfft/2 + 1

	// Centered frames: zero padding of nfft/2 on both sides.
	pad := nfft / 2
	padded := make([]float64, len(samples)+2*pad)
	for i, s := range samples {
		padded[pad+i] = float64(s)
	}

	frames := 1 + (len(padded)-nfft)/hop
	melDB := make([][]float64, frames)

	frame := make([]float64, nfft)
	power := make([]float64, bins)
	maxDB := math.Inf(-1)

	for t := 0; t < frames; t++ {
		start := t * hop
		for i := 0; i < nfft; i++ {
			frame[i] = padded[start+i] * m.window[i]
		}
		spectrum := fft.FFTReal(frame)
		for k := 0; k < bins; k++ {
			a := cmplx.Abs(spectrum[k])
			power[k] = a * a
		}

		row := make([]float64, m.cfg.Mels)
		for j, w := range bank.weights {
			var e float64
			for k := bank.start[j]; k < bank.end[j]; k++ {
				e += w[k] * power[k]
			}
			db := 10 * math.Log10(math.Max(amin, e))
			row[j] = db
			if db > maxDB {
				maxDB = db
			}
		}
		melDB[t] = row
	}

	floor := maxDB - m.cfg.TopDB
	out := make([][]float64, m.cfg.Coefficients)
	for c := range out {
		out[c] = make([]float64, frames)
	}
	for t, row := range melDB {
		for j := range row {
			if row[j] < floor {
				row[j] = floor
			}
		}
		for c, basis := range m.dct {
			var v float64
			for j, b := range basis {
				v += b * row[j]
			}
			out[c][t] = v
		}
	}
	return out, nil
}

func (m *MFCC) bank(sampleRate int) *melBank {
	if b, ok := m.banks.Load(sampleRate); ok {
		return b.(*melBank)
	}
	b, _ := m.banks.LoadOrStore(sampleRate, newMelBank(sampleRate, m.cfg))
	return b.(*melBank)
}

// newMelBank builds Slaney-style triangular filters with area normalization.
func newMelBank(sampleRate int, cfg MFCCConfig) *melBank {
	nfft := cfg.FFTSize
	bins := nfft/2 + 1
	fmax := cfg.MaxFreq
	if fmax <= 0 || fmax > float64(sampleRate)/2 {
		fmax = float64(sampleRate) / 2
	}

	fftFreqs := make([]float64, bins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(nfft)
	}

	lo, hi := hzToMel(cfg.MinFreq), hzToMel(fmax)
	melF := make([]float64, cfg.Mels+2)
	for i := range melF {
		melF[i] = melToHz(lo + (hi-lo)*float64(i)/float64(cfg.Mels+1))
	}

	b := &melBank{
		weights: make([][]float64, cfg.Mels),
		start:   make([]int, cfg.Mels),
		end:     make([]int, cfg.Mels),
	}
	for j := 0; j < cfg.Mels; j++ {
		w := make([]float64, bins)
		lower, center, upper := melF[j], melF[j+1], melF[j+2]
		enorm := 2.0 / (upper - lower)
		first, last := -1, -1
		for k, f := range fftFreqs {
			var v float64
			if center > lower && f > lower && f < center {
				v = (f - lower) / (center - lower)
			} else if upper > center && f >= center && f < upper {
				v = (upper - f) / (upper - center)
			}
			if v > 0 {
				w[k] = v * enorm
				if first < 0 {
					first = k
				}
				last = k
			}
		}
		b.weights[j] = w
		if first >= 0 {
			b.start[j], b.end[j] = first, last+1
		}
	}
	return b
}

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSP      = 200.0 / 3
	melMinLogHz = 1000.0
	melMinLog   = melMinLogHz / melFSP
)

var melLogStep = math.Log(6.4) / 27.0

func hzToMel(hz float64) float64 {
	if hz < melMinLogHz {
		return hz / melFSP
	}
	return melMinLog + math.Log(hz/melMinLogHz)/melLogStep
}

func melToHz(mel float64) float64 {
	if mel < melMinLog {
		return mel * melFSP
	}
	return melMinLogHz * math.Exp(melLogStep*(mel-melMinLog))
}

// dctMatrix returns the first n rows of the orthonormal DCT-II basis of size m.
func dctMatrix(n, m int) [][]float64 {
	out := make([][]float64, n)
	for k := 0; k < n; k++ {
		scale := math.Sqrt(2.0 / float64(m))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(m))
		}
		row := make([]float64, m)
		for j := 0; j < m; j++ {
			row[j] = scale * math.Cos(math.Pi*float64(k)*(2*float64(j)+1)/(2*float64(m)))
		}
		out[k] = row
	}
	return out
}
