//go:build !js && !wasm
// +build !js,!wasm

package soundalike

import (
	"context"
)

type Service interface {
	// Fingerprint returns the cached or freshly computed fingerprint of path.
	Fingerprint(ctx context.Context, path string) (Fingerprint, error)
	// Compare returns the distance between two files.
	Compare(ctx context.Context, a, b string) (float64, error)
	// Search ranks the library against reference and blocks until done.
	// Empty roots fall back to the configured library roots.
	Search(ctx context.Context, reference string, roots []string) ([]Match, error)
	StartSearch(ctx context.Context, reference string, roots []string) (*Job, error)
	StartSearchWithFingerprint(ctx context.Context, label string, reference Fingerprint, roots []string) (*Job, error)
	Job(id string) (*Job, bool)
	// ForgetJob drops a finished job so it can no longer be looked up.
	ForgetJob(id string) bool
	ActiveJob() *Job
	LibraryRoots() []string
	CacheStats() (CacheStats, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
