package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MPEG-1/2 Layer III files. go-mp3 always produces
// 16-bit little-endian interleaved stereo.
type MP3Decoder struct{}

const mp3Channels = 2

func (d *MP3Decoder) Extensions() []string {
	return []string{".mp3"}
}

func (d *MP3Decoder) Decode(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr(path, err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, decodeErr(path, err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, decodeErr(path, fmt.Errorf("reading MP3 stream: %w", err))
	}

	const frameBytes = 2 * mp3Channels
	frames := len(raw) / frameBytes
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(raw[i*frameBytes:]))
		r := int16(binary.LittleEndian.Uint16(raw[i*frameBytes+2:]))
		samples[i] = float32((float64(l) + float64(r)) / (2 * 32768.0))
	}

	return &Clip{
		Samples:    samples,
		SampleRate: dec.SampleRate(),
		Channels:   mp3Channels,
		BitDepth:   16,
		Format:     "MP3",
	}, nil
}
