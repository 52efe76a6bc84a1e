// Package soundalike finds the audio files in a library that sound most like
// a reference clip.
package soundalike

import (
	"github.com/himanishpuri/SoundAlike/internal/audio"
	"github.com/himanishpuri/SoundAlike/internal/fingerprint"
	"github.com/himanishpuri/SoundAlike/internal/job"
	"github.com/himanishpuri/SoundAlike/internal/scanner"
)

type (
	// Fingerprint is a fixed-shape MFCC matrix.
	Fingerprint = fingerprint.Fingerprint
	// FingerprintConfig controls the MFCC transform and fingerprint shape.
	FingerprintConfig = fingerprint.Config
	// Match is one ranked library file.
	Match = scanner.Match
	// Job is a background search.
	Job = job.Job
	// JobStatus is a snapshot of a Job.
	JobStatus = job.Status
	// JobState is the lifecycle position of a Job.
	JobState = job.State
	// Event is delivered on Job.Events.
	Event = job.Event
	// EventType tags an Event.
	EventType = job.EventType
	// OverlapPolicy decides what a new search does to a running one.
	OverlapPolicy = job.Policy
)

const (
	EventProgress  = job.EventProgress
	EventFileError = job.EventFileError
	EventCompleted = job.EventCompleted
	EventCanceled  = job.EventCanceled
	EventFailed    = job.EventFailed

	PolicyReplace = job.PolicyReplace
	PolicyReject  = job.PolicyReject
)

var (
	ErrDecode        = audio.ErrDecode
	ErrIO            = audio.ErrIO
	ErrUnsupported   = audio.ErrUnsupported
	ErrShapeMismatch = fingerprint.ErrShapeMismatch
	ErrReference     = job.ErrReference
	ErrBusy          = job.ErrBusy
)

// DefaultFingerprintConfig returns the default 20x400 settings.
func DefaultFingerprintConfig() FingerprintConfig {
	return fingerprint.DefaultConfig()
}

// FingerprintSamples fingerprints interleaved PCM samples in [-1, 1]
// without touching the filesystem.
func FingerprintSamples(interleaved []float64, sampleRate, channels int, cfg FingerprintConfig) (Fingerprint, error) {
	return fingerprint.FromSamples(audio.Downmix(interleaved, channels), sampleRate, cfg)
}

// Distance is the Euclidean distance between two fingerprints of equal
// shape.
func Distance(a, b Fingerprint) (float64, error) {
	return fingerprint.Distance(a, b)
}
