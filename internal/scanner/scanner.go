// Package scanner ranks a music library by similarity to a reference clip.
package scanner

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/himanishpuri/SoundAlike/internal/fingerprint"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
)

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Fingerprinter resolves a path to its fingerprint. *cache.Cache is the
// usual implementation.
type Fingerprinter interface {
	GetOrCompute(path string) (fingerprint.Fingerprint, error)
}

// Match is one ranked library file.
type Match struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Distance float64 `json:"distance"`
}

type Options struct {
	// Extensions filters library files; defaults to DefaultExtensions.
	Extensions []string
	// Workers bounds concurrent extractions; defaults to runtime.NumCPU().
	Workers int
	// OnProgress runs after every file, success or failure, on the goroutine
	// that called Scan.
	OnProgress func(processed, total int)
	// OnError runs for every file that could not be scored.
	OnError func(path string, err error)
}

type Scanner struct {
	source Fingerprinter
	log    Logger
}

func New(source Fingerprinter, log Logger) *Scanner {
	if log == nil {
		log = logger.GetLogger().WithPrefix("[scan]")
	}
	return &Scanner{source: source, log: log}
}

// Scan enumerates roots and ranks every file against reference, closest
// first. Ties keep enumeration order. Per-file failures go to OnError and
// do not stop the scan. On cancellation Scan stops dispatching, waits for
// in-flight files and returns what it has along with ctx.Err().
func (s *Scanner) Scan(ctx context.Context, roots []string, reference fingerprint.Fingerprint, opts Options) ([]Match, error) {
	files := enumerate(roots, opts.Extensions, s.log)
	s.log.Debugf("found %d files under %d roots", len(files), len(roots))
	return s.ScanFiles(ctx, files, reference, opts)
}

type task struct {
	index int
	path  string
}

type result struct {
	index    int
	path     string
	distance float64
	err      error
}

// ScanFiles ranks an explicit file list. See Scan.
func (s *Scanner) ScanFiles(ctx context.Context, files []string, reference fingerprint.Fingerprint, opts Options) ([]Match, error) {
	total := len(files)
	matches := make([]Match, 0, total)
	if total == 0 {
		return matches, ctx.Err()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, total)

	jobs := make(chan task)
	results := make(chan result, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				results <- s.score(t, reference)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, path := range files {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- task{index: i, path: path}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	indexed := make([]result, 0, total)
	processed := 0
	for r := range results {
		processed++
		if r.err != nil {
			s.log.Debugf("skipping %s: %v", r.path, r.err)
			if opts.OnError != nil {
				opts.OnError(r.path, r.err)
			}
		} else {
			indexed = append(indexed, r)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(processed, total)
		}
	}

	sort.Slice(indexed, func(i, j int) bool { return indexed[i].index < indexed[j].index })
	sort.SliceStable(indexed, func(i, j int) bool { return indexed[i].distance < indexed[j].distance })

	for _, r := range indexed {
		matches = append(matches, Match{
			Name:     filepath.Base(r.path),
			Path:     r.path,
			Distance: r.distance,
		})
	}

	if err := ctx.Err(); err != nil {
		s.log.Infof("scan canceled after %d of %d files", processed, total)
		return matches, err
	}
	return matches, nil
}

func (s *Scanner) score(t task, reference fingerprint.Fingerprint) result {
	r := result{index: t.index, path: t.path}
	fp, err := s.source.GetOrCompute(t.path)
	if err != nil {
		r.err = err
		return r
	}
	r.distance, r.err = fingerprint.Distance(reference, fp)
	return r
}
