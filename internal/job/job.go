// Package job runs library scans in the background.
package job

import (
	"context"
	"sync"
	"time"

	"github.com/himanishpuri/SoundAlike/internal/scanner"
)

// State is the lifecycle position of a Job.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCanceled  State = "canceled"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCanceled || s == StateFailed
}

type EventType string

const (
	EventProgress  EventType = "progress"
	EventFileError EventType = "file_error"
	EventCompleted EventType = "completed"
	EventCanceled  EventType = "canceled"
	EventFailed    EventType = "failed"
)

// Event is delivered on Job.Events. Only the fields relevant to Type are
// set.
type Event struct {
	Type      EventType       `json:"type"`
	Processed int             `json:"processed,omitempty"`
	Total     int             `json:"total,omitempty"`
	Path      string          `json:"path,omitempty"`
	Error     string          `json:"error,omitempty"`
	Matches   []scanner.Match `json:"matches,omitempty"`
}

// Skipped is a library file that could not be scored.
type Skipped struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Status is a point-in-time snapshot of a Job.
type Status struct {
	ID         string          `json:"id"`
	State      State           `json:"state"`
	Reference  string          `json:"reference,omitempty"`
	Processed  int             `json:"processed"`
	Total      int             `json:"total"`
	Skipped    []Skipped       `json:"skipped,omitempty"`
	Matches    []scanner.Match `json:"matches,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`
}

// Job is one background scan. Its methods are safe for concurrent use.
type Job struct {
	id        string
	reference string
	ctx       context.Context
	cancel    context.CancelFunc
	events    chan Event
	done      chan struct{}

	mu     sync.Mutex
	status Status
}

func newJob(ctx context.Context, cancel context.CancelFunc, id, reference string, buffer int) *Job {
	return &Job{
		id:        id,
		reference: reference,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan Event, buffer),
		done:      make(chan struct{}),
		status: Status{
			ID:        id,
			State:     StateRunning,
			Reference: reference,
			StartedAt: time.Now(),
		},
	}
}

func (j *Job) ID() string { return j.id }

// Events yields progress and file errors followed by exactly one terminal
// event, after which it is closed. Progress events may be dropped when the
// reader falls behind; Status always has the latest counts.
func (j *Job) Events() <-chan Event { return j.events }

// Done is closed once the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Cancel asks the job to stop. Files already being processed finish first.
func (j *Job) Cancel() { j.cancel() }

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) (Status, error) {
	select {
	case <-j.done:
		return j.Status(), nil
	case <-ctx.Done():
		return j.Status(), ctx.Err()
	}
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.status
	s.Skipped = append([]Skipped(nil), j.status.Skipped...)
	s.Matches = append([]scanner.Match(nil), j.status.Matches...)
	return s
}

// emit sends a non-terminal event without blocking. The last buffer slot is
// kept for the terminal event.
func (j *Job) emit(ev Event) {
	if len(j.events) >= cap(j.events)-1 {
		return
	}
	select {
	case j.events <- ev:
	default:
	}
}

func (j *Job) progress(processed, total int) {
	j.mu.Lock()
	j.status.Processed = processed
	j.status.Total = total
	j.mu.Unlock()
	j.emit(Event{Type: EventProgress, Processed: processed, Total: total})
}

func (j *Job) fileError(path string, err error) {
	j.mu.Lock()
	j.status.Skipped = append(j.status.Skipped, Skipped{Path: path, Error: err.Error()})
	j.mu.Unlock()
	j.emit(Event{Type: EventFileError, Path: path, Error: err.Error()})
}

// finish records the terminal state, sends the terminal event and closes
// both channels. It must be called exactly once, by the job's goroutine.
func (j *Job) finish(state State, matches []scanner.Match, err error) {
	ev := Event{Type: EventCompleted}
	j.mu.Lock()
	j.status.State = state
	j.status.FinishedAt = time.Now()
	switch state {
	case StateCompleted:
		j.status.Matches = matches
		ev.Matches = matches
	case StateCanceled:
		ev.Type = EventCanceled
	case StateFailed:
		ev.Type = EventFailed
	}
	if err != nil {
		j.status.Error = err.Error()
		ev.Error = err.Error()
	}
	ev.Processed, ev.Total = j.status.Processed, j.status.Total
	j.mu.Unlock()

	j.events <- ev
	close(j.events)
	close(j.done)
}
