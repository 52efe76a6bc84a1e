//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"fmt"

	"github.com/himanishpuri/SoundAlike/pkg/soundalike"
)

const (
	// MaxUploadBytes bounds a reference clip upload.
	MaxUploadBytes = 100 << 20

	// MaxFingerprintValues bounds POST /api/search/fingerprint bodies
	// (128 coefficients x 4000 frames).
	MaxFingerprintValues = 128 * 4000
)

// FingerprintSearchRequest is the request body for POST /api/search/fingerprint
type FingerprintSearchRequest struct {
	Label        string    `json:"label,omitempty"`
	Coefficients int       `json:"coefficients"`
	Frames       int       `json:"frames"`
	Values       []float32 `json:"values"`
	Roots        []string  `json:"roots,omitempty"`
}

// Validate checks if the request is valid
func (r *FingerprintSearchRequest) Validate() error {
	if r.Coefficients <= 0 || r.Frames <= 0 {
		return fmt.Errorf("coefficients and frames must be positive")
	}
	if r.Coefficients*r.Frames > MaxFingerprintValues {
		return fmt.Errorf("fingerprint too large: %dx%d", r.Coefficients, r.Frames)
	}
	if len(r.Values) != r.Coefficients*r.Frames {
		return fmt.Errorf("expected %d values for %dx%d, got %d",
			r.Coefficients*r.Frames, r.Coefficients, r.Frames, len(r.Values))
	}
	return nil
}

func (r *FingerprintSearchRequest) Fingerprint() soundalike.Fingerprint {
	return soundalike.Fingerprint{Coeffs: r.Coefficients, Frames: r.Frames, Data: r.Values}
}

// SearchStartedResponse is returned with 202 when a search job starts
type SearchStartedResponse struct {
	JobID     string `json:"job_id"`
	Reference string `json:"reference"`
	Roots     int    `json:"roots"`
	StatusURL string `json:"status_url"`
}

// RootsResponse is the response for GET /api/roots
type RootsResponse struct {
	Roots []string `json:"roots"`
	Count int      `json:"count"`
}

// MetricsResponse provides server health and cache metrics
type MetricsResponse struct {
	Status    string                `json:"status"`
	Cache     soundalike.CacheStats `json:"cache"`
	ActiveJob string                `json:"active_job,omitempty"`
	Roots     int                   `json:"roots"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
