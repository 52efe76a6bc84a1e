// Package audiotest writes small synthetic audio fixtures for tests.
package audiotest

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// flacBlockSize is the number of samples per channel in each FLAC frame.
const flacBlockSize = 4096

// Tone returns seconds of a mono sine wave at freq Hz.
func Tone(freq, seconds float64, sampleRate int, amplitude float64) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// Silence returns seconds of zero samples.
func Silence(seconds float64, sampleRate int) []float64 {
	return make([]float64, int(seconds*float64(sampleRate)))
}

// Interleave zips per-channel sample slices of equal length into one
// interleaved buffer.
func Interleave(channels ...[]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	n := len(channels[0])
	out := make([]float64, 0, n*len(channels))
	for i := 0; i < n; i++ {
		for _, ch := range channels {
			out = append(out, ch[i])
		}
	}
	return out
}

// WriteWAV writes interleaved samples in [-1, 1] as a 16-bit PCM WAV file,
// creating parent directories as needed.
func WriteWAV(path string, sampleRate, channels int, interleaved []float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := make([]int, len(interleaved))
	for i, s := range interleaved {
		data[i] = int(toInt16(s))
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

func toInt16(s float64) int32 {
	v := math.Round(s * 32767)
	return int32(math.Max(-32768, math.Min(32767, v)))
}

// WriteFLAC writes one sample slice per channel, all of equal length and in
// [-1, 1], as a 16-bit FLAC file with verbatim subframes.
func WriteFLAC(path string, sampleRate int, channels ...[]float64) error {
	var assignment frame.Channels
	switch len(channels) {
	case 1:
		assignment = frame.ChannelsMono
	case 2:
		assignment = frame.ChannelsLR
	default:
		return fmt.Errorf("unsupported channel count %d", len(channels))
	}
	n := len(channels[0])
	for _, ch := range channels {
		if len(ch) != n {
			return fmt.Errorf("channel lengths differ: %d vs %d", len(ch), n)
		}
	}
	if rest := n % flacBlockSize; n == 0 || (rest != 0 && rest < 16) {
		return fmt.Errorf("cannot split %d samples into FLAC blocks of at least 16", n)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info := &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(len(channels)),
		BitsPerSample: 16,
	}
	enc, err := flac.NewEncoder(f, info)
	if err != nil {
		return err
	}

	for start := 0; start < n; start += flacBlockSize {
		end := min(start+flacBlockSize, n)
		subframes := make([]*frame.Subframe, len(channels))
		for c, ch := range channels {
			samples := make([]int32, end-start)
			for i := range samples {
				samples[i] = toInt16(ch[start+i])
			}
			subframes[c] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   samples,
				NSamples:  len(samples),
			}
		}
		fr := &frame.Frame{
			Header: frame.Header{
				BlockSize:     uint16(end - start),
				SampleRate:    uint32(sampleRate),
				Channels:      assignment,
				BitsPerSample: 16,
			},
			Subframes: subframes,
		}
		if err := enc.WriteFrame(fr); err != nil {
			return err
		}
	}
	return enc.Close()
}

// WriteCorrupt writes bytes that carry a .wav name but are not audio.
func WriteCorrupt(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("definitely not a RIFF header"), 0o644)
}
