package fingerprint

import (
	"math"
	"testing"

	"github.com/himanishpuri/SoundAlike/internal/audio/audiotest"
)

func TestMFCCFrameCount(t *testing.T) {
	m, err := NewMFCC(DefaultMFCCConfig())
	if err != nil {
		t.Fatal(err)
	}

	for _, n := range []int{1, 511, 512, 22050} {
		out, err := m.Compute(make([]float32, n), 22050)
		if err != nil {
			t.Fatalf("Compute(%d samples) failed: %v", n, err)
		}
		if len(out) != DefaultCoefficients {
			t.Fatalf("expected %d coefficient rows, got %d", DefaultCoefficients, len(out))
		}
		if want := m.FrameCount(n); len(out[0]) != want {
			t.Errorf("%d samples: expected %d frames, got %d", n, want, len(out[0]))
		}
	}
}

func TestMFCCSilenceIsFlat(t *testing.T) {
	m, err := NewMFCC(DefaultMFCCConfig())
	if err != nil {
		t.Fatal(err)
	}

	out, err := m.Compute(toFloat32(audiotest.Silence(0.5, 22050)), 22050)
	if err != nil {
		t.Fatal(err)
	}

	// All mel bands sit at the amin floor, so only the DC cepstral term survives.
	for c := 1; c < len(out); c++ {
		for _, v := range out[c] {
			if math.Abs(v) > 1e-6 {
				t.Fatalf("coefficient %d should be ~0 for silence, got %g", c, v)
			}
		}
	}
	if out[0][0] >= 0 {
		t.Errorf("expected negative energy term for silence, got %g", out[0][0])
	}
}

func TestMFCCRejectsBadInput(t *testing.T) {
	m, err := NewMFCC(DefaultMFCCConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Compute(nil, 22050); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := m.Compute([]float32{0.1}, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := NewMFCC(MFCCConfig{Coefficients: 40, Mels: 20}); err == nil {
		t.Error("expected error when coefficients exceed mel bands")
	}
}

func TestMelScaleRoundTrip(t *testing.T) {
	for _, hz := range []float64{0, 440, 999, 1000, 4000, 11025} {
		if got := melToHz(hzToMel(hz)); math.Abs(got-hz) > 1e-6 {
			t.Errorf("melToHz(hzToMel(%g)) = %g", hz, got)
		}
	}
}
