package audio

// Clip is a decoded audio file reduced to a single channel.
type Clip struct {
	Samples    []float32 // mono, scaled to [-1, 1]
	SampleRate int
	Channels   int // channel count of the source before downmixing
	BitDepth   int
	Format     string
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c == nil || c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Downmix averages interleaved multi-channel samples into one channel.
// A trailing partial frame is dropped.
func Downmix(interleaved []float64, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(interleaved))
		for i, s := range interleaved {
			out[i] = float32(s)
		}
		return out
	}

	frames := len(interleaved) / channels
	out := make([]float32, frames)
	inv := 1.0 / float64(channels)
	for i := 0; i < frames; i++ {
		var sum float64
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[base+ch]
		}
		out[i] = float32(sum * inv)
	}
	return out
}

// fullScale returns the divisor that maps signed integer PCM of the given
// bit depth onto [-1, 1].
func fullScale(bitDepth int) float64 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	return float64(int64(1) << uint(bitDepth-1))
}
