package fingerprint

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrShapeMismatch means two fingerprints with different shapes were
// compared. It points at inconsistent extractor settings, not bad input.
var ErrShapeMismatch = errors.New("fingerprint shape mismatch")

// Distance is the Euclidean distance between the flattened matrices.
// Lower is more similar; it is not normalized by length or energy.
func Distance(a, b Fingerprint) (float64, error) {
	if a.Coeffs != b.Coeffs || a.Frames != b.Frames || len(a.Data) != len(b.Data) {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, a.Coeffs, a.Frames, b.Coeffs, b.Frames)
	}
	return floats.Distance(widen(a.Data), widen(b.Data), 2), nil
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
