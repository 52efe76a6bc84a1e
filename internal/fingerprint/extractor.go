package fingerprint

import (
	"fmt"

	"github.com/himanishpuri/SoundAlike/internal/audio"
)

// Config fixes the fingerprint shape and the MFCC parameters behind it.
//
// Frames is a deliberate lossy normalization: anything past
// Frames*HopSize/sampleRate seconds (about 9.3 s for 22.05 kHz audio with
// the defaults) is dropped, and shorter clips are zero padded, which pulls
// distances toward clips of similar duration.
type Config struct {
	MFCC   MFCCConfig
	Frames int
}

func DefaultConfig() Config {
	return Config{MFCC: DefaultMFCCConfig(), Frames: DefaultFrames}
}

// ClipDecoder is the part of audio.Registry the extractor needs.
type ClipDecoder interface {
	Decode(path string) (*audio.Clip, error)
}

// Extractor decodes files and turns them into fixed-shape fingerprints.
// It is safe for concurrent use.
type Extractor struct {
	decoder ClipDecoder
	mfcc    *MFCC
	frames  int
}

func NewExtractor(decoder ClipDecoder, cfg Config) (*Extractor, error) {
	if decoder == nil {
		decoder = audio.NewRegistry()
	}
	if cfg.Frames <= 0 {
		cfg.Frames = DefaultFrames
	}
	m, err := NewMFCC(cfg.MFCC)
	if err != nil {
		return nil, err
	}
	return &Extractor{decoder: decoder, mfcc: m, frames: cfg.Frames}, nil
}

// Shape returns the (coefficients, frames) every Extract result has.
func (e *Extractor) Shape() (int, int) {
	return e.mfcc.cfg.Coefficients, e.frames
}

// Extract decodes path and computes its fingerprint. Errors wrap
// audio.ErrDecode or audio.ErrIO.
func (e *Extractor) Extract(path string) (Fingerprint, error) {
	clip, err := e.decoder.Decode(path)
	if err != nil {
		return Fingerprint{}, err
	}
	fp, err := e.FromClip(clip)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %s: %w", audio.ErrDecode, path, err)
	}
	return fp, nil
}

// FromClip fingerprints already decoded audio.
func (e *Extractor) FromClip(clip *audio.Clip) (Fingerprint, error) {
	mfcc, err := e.mfcc.Compute(clip.Samples, clip.SampleRate)
	if err != nil {
		return Fingerprint{}, err
	}
	return fit(mfcc, e.frames), nil
}

// FromSamples fingerprints mono samples without a decoder, for callers that
// already hold PCM data.
func FromSamples(samples []float32, sampleRate int, cfg Config) (Fingerprint, error) {
	e, err := NewExtractor(nilDecoder{}, cfg)
	if err != nil {
		return Fingerprint{}, err
	}
	return e.FromClip(&audio.Clip{Samples: samples, SampleRate: sampleRate, Channels: 1})
}

type nilDecoder struct{}

func (nilDecoder) Decode(path string) (*audio.Clip, error) {
	return nil, fmt.Errorf("%w: no decoder configured for %s", audio.ErrDecode, path)
}
