package fingerprint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// DefaultFrames is the fixed time-axis length of every fingerprint.
const DefaultFrames = 400

// Fingerprint is a Coeffs x Frames matrix stored coefficient-major:
// the value for coefficient c at frame t lives at Data[c*Frames+t].
// Treat it as immutable once built.
type Fingerprint struct {
	Coeffs int
	Frames int
	Data   []float32
}

// Shape returns (coefficients, frames).
func (f Fingerprint) Shape() (int, int) {
	return f.Coeffs, f.Frames
}

// At returns the value for coefficient c at frame t.
func (f Fingerprint) At(c, t int) float32 {
	return f.Data[c*f.Frames+t]
}

func (f Fingerprint) valid() bool {
	return f.Coeffs > 0 && f.Frames > 0 && len(f.Data) == f.Coeffs*f.Frames
}

// fit copies an MFCC matrix into a fingerprint of exactly frames columns,
// right-padding short inputs with zeros and dropping trailing columns of
// long ones.
func fit(mfcc [][]float64, frames int) Fingerprint {
	coeffs := len(mfcc)
	data := make([]float32, coeffs*frames)
	for c, row := range mfcc {
		n := min(len(row), frames)
		dst := data[c*frames : c*frames+n]
		for t := range dst {
			dst[t] = float32(row[t])
		}
	}
	return Fingerprint{Coeffs: coeffs, Frames: frames, Data: data}
}

const headerSize = 8

// MarshalBinary encodes the fingerprint as two little-endian uint32 (coeffs,
// frames) followed by the flattened float32 values.
func (f Fingerprint) MarshalBinary() ([]byte, error) {
	if !f.valid() {
		return nil, fmt.Errorf("invalid fingerprint %dx%d with %d values", f.Coeffs, f.Frames, len(f.Data))
	}
	buf := make([]byte, headerSize+4*len(f.Data))
	binary.LittleEndian.PutUint32(buf[0:], uint32(f.Coeffs))
	binary.LittleEndian.PutUint32(buf[4:], uint32(f.Frames))
	for i, v := range f.Data {
		binary.LittleEndian.PutUint32(buf[headerSize+4*i:], math.Float32bits(v))
	}
	return buf, nil
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (f *Fingerprint) UnmarshalBinary(buf []byte) error {
	if len(buf) < headerSize {
		return errors.New("fingerprint payload too short")
	}
	coeffs := int(binary.LittleEndian.Uint32(buf[0:]))
	frames := int(binary.LittleEndian.Uint32(buf[4:]))
	if coeffs <= 0 || frames <= 0 {
		return fmt.Errorf("invalid fingerprint shape %dx%d", coeffs, frames)
	}
	if want := headerSize + 4*coeffs*frames; len(buf) != want {
		return fmt.Errorf("fingerprint payload is %d bytes, want %d for %dx%d", len(buf), want, coeffs, frames)
	}

	data := make([]float32, coeffs*frames)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[headerSize+4*i:]))
	}
	*f = Fingerprint{Coeffs: coeffs, Frames: frames, Data: data}
	return nil
}
