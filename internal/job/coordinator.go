package job

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/himanishpuri/SoundAlike/internal/fingerprint"
	"github.com/himanishpuri/SoundAlike/internal/scanner"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
)

var (
	// ErrReference means the reference clip could not be fingerprinted. No
	// scan is started.
	ErrReference = errors.New("reference fingerprint failed")
	// ErrBusy is returned by Start under PolicyReject while a job runs.
	ErrBusy = errors.New("a search is already running")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("coordinator closed")
)

// Policy decides what Start does while another job is running.
type Policy string

const (
	// PolicyReplace cancels the running job, waits for it to finish and
	// then starts the new one.
	PolicyReplace Policy = "replace"
	// PolicyReject refuses to start with ErrBusy.
	PolicyReject Policy = "reject"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyReplace:
		return PolicyReplace, nil
	case PolicyReject:
		return PolicyReject, nil
	}
	return "", fmt.Errorf("unknown overlap policy %q", s)
}

const DefaultEventBuffer = 64

// DefaultKeepFinished is how many finished jobs stay addressable by id.
const DefaultKeepFinished = 32

// Extractor fingerprints the reference clip.
type Extractor interface {
	Extract(path string) (fingerprint.Fingerprint, error)
	Shape() (int, int)
}

type Options struct {
	Extensions  []string
	Workers     int
	Policy      Policy
	EventBuffer int
	// KeepFinished bounds the finished jobs retained for Get. Older ones
	// are evicted as new jobs finish.
	KeepFinished int
	Logger       scanner.Logger
}

// Coordinator owns at most one running scan and keeps the most recent
// finished jobs addressable by id.
type Coordinator struct {
	extractor Extractor
	scanner   *scanner.Scanner
	opts      Options
	log       scanner.Logger

	mu       sync.Mutex
	active   *Job
	jobs     map[string]*Job
	finished []string // oldest first
	closed   bool
}

func NewCoordinator(extractor Extractor, source scanner.Fingerprinter, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger().WithPrefix("[job]")
	}
	if opts.Policy == "" {
		opts.Policy = PolicyReplace
	}
	if opts.EventBuffer < 2 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.KeepFinished < 1 {
		opts.KeepFinished = DefaultKeepFinished
	}
	return &Coordinator{
		extractor: extractor,
		scanner:   scanner.New(source, opts.Logger),
		opts:      opts,
		log:       opts.Logger,
		jobs:      make(map[string]*Job),
	}
}

// Start fingerprints referencePath and launches a scan of roots. A reference
// that cannot be fingerprinted fails here, wrapped in ErrReference, before
// any job exists. ctx bounds the scan itself.
func (c *Coordinator) Start(ctx context.Context, referencePath string, roots []string) (*Job, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	if c.opts.Policy == PolicyReject && c.Active() != nil {
		return nil, ErrBusy
	}
	ref, err := c.extractor.Extract(referencePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReference, err)
	}
	return c.start(ctx, referencePath, ref, roots)
}

// StartWithFingerprint launches a scan against an already computed
// reference, such as one uploaded by a browser client.
func (c *Coordinator) StartWithFingerprint(ctx context.Context, label string, ref fingerprint.Fingerprint, roots []string) (*Job, error) {
	coeffs, frames := c.extractor.Shape()
	if ref.Coeffs != coeffs || ref.Frames != frames || len(ref.Data) != coeffs*frames {
		return nil, fmt.Errorf("%w: %w: got %dx%d, want %dx%d",
			ErrReference, fingerprint.ErrShapeMismatch, ref.Coeffs, ref.Frames, coeffs, frames)
	}
	return c.start(ctx, label, ref, roots)
}

func (c *Coordinator) start(ctx context.Context, label string, ref fingerprint.Fingerprint, roots []string) (*Job, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	for prev := c.active; prev != nil; prev = c.active {
		if c.opts.Policy == PolicyReject {
			c.mu.Unlock()
			return nil, ErrBusy
		}
		c.log.Infof("replacing running search %s", prev.id)
		prev.Cancel()
		c.mu.Unlock()
		<-prev.Done()
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
	}

	jobCtx, cancel := context.WithCancel(ctx)
	j := newJob(jobCtx, cancel, uuid.NewString(), label, c.opts.EventBuffer)
	c.active = j
	c.jobs[j.id] = j
	c.mu.Unlock()

	roots = append([]string(nil), roots...)
	go c.run(j, ref, roots)
	c.log.Infof("search %s started for %s over %d roots", j.id, label, len(roots))
	return j, nil
}

func (c *Coordinator) run(j *Job, ref fingerprint.Fingerprint, roots []string) {
	defer j.cancel()

	matches, err := c.scanner.Scan(j.ctx, roots, ref, scanner.Options{
		Extensions: c.opts.Extensions,
		Workers:    c.opts.Workers,
		OnProgress: j.progress,
		OnError:    j.fileError,
	})

	c.mu.Lock()
	if c.active == j {
		c.active = nil
	}
	c.retire(j.id)
	c.mu.Unlock()

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.log.Infof("search %s canceled", j.id)
		j.finish(StateCanceled, nil, err)
	case err != nil:
		c.log.Errorf("search %s failed: %v", j.id, err)
		j.finish(StateFailed, nil, err)
	default:
		st := j.Status()
		c.log.Infof("search %s completed: %d matches, %d skipped", j.id, len(matches), len(st.Skipped))
		j.finish(StateCompleted, matches, nil)
	}
}

// Active returns the running job, or nil.
func (c *Coordinator) Active() *Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Get looks up a job by id, running or finished.
func (c *Coordinator) Get(id string) (*Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[id]
	return j, ok
}

// Forget drops a finished job from the registry and reports whether it did.
// Running jobs are kept.
func (c *Coordinator) Forget(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[id]
	if !ok {
		return false
	}
	select {
	case <-j.done:
	default:
		return false
	}
	delete(c.jobs, id)
	c.finished = slices.DeleteFunc(c.finished, func(f string) bool { return f == id })
	return true
}

// retire records id as finished and evicts the oldest finished jobs beyond
// KeepFinished. c.mu must be held.
func (c *Coordinator) retire(id string) {
	c.finished = append(c.finished, id)
	for len(c.finished) > c.opts.KeepFinished {
		delete(c.jobs, c.finished[0])
		c.finished = c.finished[1:]
	}
}

// Close cancels the running job, waits for it and refuses new ones.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	active := c.active
	c.mu.Unlock()

	if active != nil {
		active.Cancel()
		<-active.Done()
	}
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
