package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

const wavFormatIEEEFloat = 3

// WAVDecoder decodes integer PCM WAV files.
type WAVDecoder struct{}

func (d *WAVDecoder) Extensions() []string {
	return []string{".wav", ".wave"}
}

func (d *WAVDecoder) Decode(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr(path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, decodeErr(path, fmt.Errorf("not a valid WAV file"))
	}
	if dec.WavAudioFormat == wavFormatIEEEFloat {
		return nil, decodeErr(path, fmt.Errorf("%w: IEEE float WAV", ErrUnsupported))
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, decodeErr(path, fmt.Errorf("invalid channel count %d", channels))
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, decodeErr(path, fmt.Errorf("reading PCM data: %w", err))
	}

	bitDepth := int(dec.BitDepth)
	samples := make([]float64, len(buf.Data))
	if bitDepth == 8 {
		// 8-bit WAV is unsigned with a 128 midpoint.
		for i, s := range buf.Data {
			samples[i] = float64(s-128) / 128.0
		}
	} else {
		scale := 1.0 / fullScale(bitDepth)
		for i, s := range buf.Data {
			samples[i] = float64(s) * scale
		}
	}

	return &Clip{
		Samples:    Downmix(samples, channels),
		SampleRate: int(dec.SampleRate),
		Channels:   channels,
		BitDepth:   bitDepth,
		Format:     "WAV",
	}, nil
}
