package fingerprint

import (
	"errors"
	"testing"

	"github.com/himanishpuri/SoundAlike/internal/audio/audiotest"
)

func mustFingerprint(t *testing.T, samples []float64, cfg Config) Fingerprint {
	t.Helper()
	fp, err := FromSamples(toFloat32(samples), 22050, cfg)
	if err != nil {
		t.Fatalf("FromSamples failed: %v", err)
	}
	return fp
}

func TestDistanceReflexive(t *testing.T) {
	fp := mustFingerprint(t, audiotest.Tone(440, 1, 22050, 0.5), DefaultConfig())

	d, err := Distance(fp, fp)
	if err != nil {
		t.Fatalf("Distance failed: %v", err)
	}
	if d != 0 {
		t.Errorf("distance(f, f) = %f, want 0", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := mustFingerprint(t, audiotest.Tone(440, 1, 22050, 0.5), DefaultConfig())
	b := mustFingerprint(t, audiotest.Tone(880, 2, 22050, 0.2), DefaultConfig())

	ab, err := Distance(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := Distance(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if ab != ba {
		t.Errorf("distance not symmetric: %f vs %f", ab, ba)
	}
	if ab <= 0 {
		t.Errorf("different clips should have positive distance, got %f", ab)
	}
}

func TestDistanceShapeMismatch(t *testing.T) {
	tone := audiotest.Tone(440, 1, 22050, 0.5)
	a := mustFingerprint(t, tone, DefaultConfig())

	cfg := DefaultConfig()
	cfg.MFCC.Coefficients = 13
	b := mustFingerprint(t, tone, cfg)

	if _, err := Distance(a, b); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for 20 vs 13 coefficients, got %v", err)
	}
}

func TestToneCloserToToneThanSilence(t *testing.T) {
	ref := mustFingerprint(t, audiotest.Tone(440, 1, 22050, 0.5), DefaultConfig())
	same := mustFingerprint(t, audiotest.Tone(440, 1, 22050, 0.5), DefaultConfig())
	silent := mustFingerprint(t, audiotest.Silence(1, 22050), DefaultConfig())

	dSame, _ := Distance(ref, same)
	dSilent, _ := Distance(ref, silent)
	if dSame != 0 {
		t.Errorf("identical tone should have distance 0, got %f", dSame)
	}
	if dSilent <= 100 {
		t.Errorf("silence should be far from the tone, got %f", dSilent)
	}
}
