package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/hajimehoshi/go-mp3"

	"github.com/himanishpuri/SoundAlike/internal/audio/audiotest"
)

// stereoMP3 holds 40 MPEG-1 Layer III frames of 44.1 kHz stereo music.
const (
	stereoMP3       = "testdata/stereo_44100.mp3"
	stereoMP3Frames = 40 * 1152
)

func writeWAV(t *testing.T, name string, sampleRate, channels int, interleaved []float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := audiotest.WriteWAV(path, sampleRate, channels, interleaved); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestDecodeMonoWAV(t *testing.T) {
	samples := audiotest.Tone(440, 0.5, 22050, 0.5)
	path := writeWAV(t, "mono.wav", 22050, 1, samples)

	clip, err := NewRegistry().Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if clip.SampleRate != 22050 {
		t.Errorf("Expected sample rate 22050, got %d", clip.SampleRate)
	}
	if clip.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", clip.Channels)
	}
	if len(clip.Samples) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(clip.Samples))
	}
	for i := range samples {
		if math.Abs(float64(clip.Samples[i])-samples[i]) > 1e-3 {
			t.Fatalf("Sample %d: expected %.4f, got %.4f", i, samples[i], clip.Samples[i])
		}
	}
	if d := clip.Duration(); math.Abs(d-0.5) > 1e-6 {
		t.Errorf("Expected duration 0.5s, got %f", d)
	}
}

func TestDecodeStereoWAVIsAveraged(t *testing.T) {
	n := 1000
	left := make([]float64, n)
	right := make([]float64, n)
	for i := 0; i < n; i++ {
		left[i] = 0.5
		right[i] = -0.25
	}
	path := writeWAV(t, "stereo.wav", 8000, 2, audiotest.Interleave(left, right))

	clip, err := NewRegistry().Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// Treating interleaved stereo as mono would double the sample count.
	if len(clip.Samples) != n {
		t.Fatalf("Expected %d mono frames, got %d", n, len(clip.Samples))
	}
	if clip.Channels != 2 {
		t.Errorf("Expected source channel count 2, got %d", clip.Channels)
	}
	for i, s := range clip.Samples {
		if math.Abs(float64(s)-0.125) > 1e-3 {
			t.Fatalf("Frame %d: expected average 0.125, got %f", i, s)
		}
	}
}

func TestDecodeStereoFLACIsAveraged(t *testing.T) {
	const sampleRate = 8000
	n := 4096 + 1000
	left := audiotest.Tone(440, 1, sampleRate, 0.5)[:n]
	right := audiotest.Tone(1000, 1, sampleRate, 0.3)[:n]

	path := filepath.Join(t.TempDir(), "stereo.flac")
	if err := audiotest.WriteFLAC(path, sampleRate, left, right); err != nil {
		t.Fatalf("Failed to write FLAC: %v", err)
	}

	clip, err := NewRegistry().Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if clip.SampleRate != sampleRate {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, clip.SampleRate)
	}
	if clip.Channels != 2 || clip.BitDepth != 16 {
		t.Errorf("Expected 2 channels of 16-bit, got %d of %d-bit", clip.Channels, clip.BitDepth)
	}
	if len(clip.Samples) != n {
		t.Fatalf("Expected %d mono frames across both FLAC frames, got %d", n, len(clip.Samples))
	}
	for i, s := range clip.Samples {
		want := (left[i] + right[i]) / 2
		if math.Abs(float64(s)-want) > 1e-3 {
			t.Fatalf("Frame %d: expected average %.4f, got %.4f", i, want, s)
		}
	}
}

func TestDecodeStereoMP3(t *testing.T) {
	clip, err := NewRegistry().Decode(stereoMP3)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if clip.SampleRate != 44100 {
		t.Errorf("Expected sample rate 44100, got %d", clip.SampleRate)
	}
	if clip.Channels != 2 || clip.BitDepth != 16 {
		t.Errorf("Expected 2 channels of 16-bit, got %d of %d-bit", clip.Channels, clip.BitDepth)
	}
	if len(clip.Samples) != stereoMP3Frames {
		t.Fatalf("Expected %d mono frames, got %d", stereoMP3Frames, len(clip.Samples))
	}

	var energy float64
	for i, s := range clip.Samples {
		if s < -1 || s > 1 {
			t.Fatalf("Frame %d out of range: %f", i, s)
		}
		energy += float64(s) * float64(s)
	}
	if energy == 0 {
		t.Error("Expected audible content, got silence")
	}
}

func TestDecodeMP3AveragesChannels(t *testing.T) {
	f, err := os.Open(stereoMP3)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		t.Fatal(err)
	}

	clip, err := NewRegistry().Decode(stereoMP3)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(clip.Samples) != len(raw)/4 {
		t.Fatalf("Expected %d mono frames, got %d", len(raw)/4, len(clip.Samples))
	}

	differ := false
	for i, s := range clip.Samples {
		l := float64(int16(binary.LittleEndian.Uint16(raw[i*4:])))
		r := float64(int16(binary.LittleEndian.Uint16(raw[i*4+2:])))
		if l != r {
			differ = true
		}
		if want := (l + r) / 65536; math.Abs(float64(s)-want) > 1e-6 {
			t.Fatalf("Frame %d: expected %.6f, got %.6f", i, want, s)
		}
	}
	if !differ {
		t.Error("fixture channels are identical, averaging is not exercised")
	}
}

func TestDecodeCorruptWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := audiotest.WriteCorrupt(path); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	_, err := NewRegistry().Decode(path)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Expected ErrDecode, got %v", err)
	}
	if errors.Is(err, ErrIO) {
		t.Errorf("Corrupt file should not be reported as ErrIO: %v", err)
	}
}

func TestDecodeMissingFile(t *testing.T) {
	_, err := NewRegistry().Decode(filepath.Join(t.TempDir(), "missing.wav"))
	if !errors.Is(err, ErrIO) {
		t.Fatalf("Expected ErrIO, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected underlying os.ErrNotExist to be preserved, got %v", err)
	}
}

func TestDecodeUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewRegistry().Decode(path)
	if !errors.Is(err, ErrDecode) || !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Expected ErrDecode wrapping ErrUnsupported, got %v", err)
	}
}

func TestDecodeEmptyWAV(t *testing.T) {
	path := writeWAV(t, "empty.wav", 22050, 1, nil)

	_, err := NewRegistry().Decode(path)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Expected ErrDecode for a file without samples, got %v", err)
	}
}

func TestRegistrySupports(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		path string
		want bool
	}{
		{"a.wav", true},
		{"a.WAV", true},
		{"b.flac", true},
		{"c.mp3", true},
		{"d.ogg", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := r.Supports(tt.path); got != tt.want {
			t.Errorf("Supports(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDownmix(t *testing.T) {
	got := Downmix([]float64{1, 0, 0.5, 0.5, -1, 1, 0.3}, 2)
	want := []float32{0.5, 0.5, 0}
	if len(got) != len(want) {
		t.Fatalf("Expected %d frames, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("Frame %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}
