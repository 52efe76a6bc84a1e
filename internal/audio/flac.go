package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

// maxPrealloc caps the capacity taken from a possibly corrupt header.
const maxPrealloc = 1 << 24

// FLACDecoder decodes FLAC streams.
type FLACDecoder struct{}

func (d *FLACDecoder) Extensions() []string {
	return []string{".flac"}
}

func (d *FLACDecoder) Decode(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr(path, err)
	}
	defer f.Close()

	stream, err := flac.New(f)
	if err != nil {
		return nil, decodeErr(path, err)
	}

	info := stream.Info
	if info == nil || info.NChannels == 0 {
		return nil, decodeErr(path, fmt.Errorf("missing STREAMINFO"))
	}

	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	inv := 1.0 / (fullScale(bitDepth) * float64(channels))

	samples := make([]float32, 0, min(info.NSamples, maxPrealloc))
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, decodeErr(path, fmt.Errorf("parsing frame: %w", err))
		}
		if len(frame.Subframes) < channels {
			return nil, decodeErr(path, fmt.Errorf("frame has %d subframes, want %d", len(frame.Subframes), channels))
		}

		// Each subframe holds one channel, so averaging happens per sample index
		// across subframes rather than over an interleaved buffer.
		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			var sum float64
			for ch := 0; ch < channels; ch++ {
				sum += float64(frame.Subframes[ch].Samples[i])
			}
			samples = append(samples, float32(sum*inv))
		}
	}

	return &Clip{
		Samples:    samples,
		SampleRate: int(info.SampleRate),
		Channels:   channels,
		BitDepth:   bitDepth,
		Format:     "FLAC",
	}, nil
}
