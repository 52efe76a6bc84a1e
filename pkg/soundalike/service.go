//go:build !js && !wasm
// +build !js,!wasm

package soundalike

import (
	"context"
	"fmt"

	"github.com/himanishpuri/SoundAlike/internal/audio"
	"github.com/himanishpuri/SoundAlike/internal/cache"
	"github.com/himanishpuri/SoundAlike/internal/fingerprint"
	"github.com/himanishpuri/SoundAlike/internal/job"
	"github.com/himanishpuri/SoundAlike/internal/storage"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
)

// CacheStats combines in-process counters with the persisted entry count.
type CacheStats struct {
	cache.Stats
	Entries int64  `json:"entries"`
	Backend string `json:"backend"`
	Path    string `json:"path,omitempty"`
}

// soundalikeService is the default implementation of the Service interface.
type soundalikeService struct {
	extractor   *fingerprint.Extractor
	cache       *cache.Cache
	coordinator *job.Coordinator
	log         Logger
	config      *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	extractor, err := fingerprint.NewExtractor(audio.NewRegistry(), cfg.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("invalid fingerprint settings: %w", err)
	}

	store := cfg.Store
	if store == nil {
		backend, err := storage.ParseBackend(cfg.CacheBackend)
		if err != nil {
			return nil, err
		}
		if cfg.CachePath == "" {
			cfg.CachePath = backend.DefaultPath()
		}
		store, err = storage.Open(backend, cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open fingerprint cache: %w", err)
		}
	}

	fc := cache.New(store, extractor, cfg.Logger)
	coord := job.NewCoordinator(extractor, fc, job.Options{
		Extensions:   cfg.Extensions,
		Workers:      cfg.Workers,
		Policy:       cfg.Policy,
		KeepFinished: cfg.JobHistory,
		Logger:       cfg.Logger,
	})

	return &soundalikeService{
		extractor:   extractor,
		cache:       fc,
		coordinator: coord,
		log:         cfg.Logger,
		config:      cfg,
	}, nil
}

func (s *soundalikeService) Fingerprint(ctx context.Context, path string) (Fingerprint, error) {
	if err := ctx.Err(); err != nil {
		return Fingerprint{}, err
	}
	return s.cache.GetOrCompute(path)
}

func (s *soundalikeService) Compare(ctx context.Context, a, b string) (float64, error) {
	fa, err := s.Fingerprint(ctx, a)
	if err != nil {
		return 0, err
	}
	fb, err := s.Fingerprint(ctx, b)
	if err != nil {
		return 0, err
	}
	return fingerprint.Distance(fa, fb)
}

// Search runs a job to completion. Canceling ctx cancels the job.
func (s *soundalikeService) Search(ctx context.Context, reference string, roots []string) ([]Match, error) {
	j, err := s.StartSearch(ctx, reference, roots)
	if err != nil {
		return nil, err
	}

	<-j.Done()
	st := j.Status()
	switch st.State {
	case job.StateCompleted:
		if len(st.Skipped) > 0 {
			s.log.Warnf("skipped %d unreadable files", len(st.Skipped))
		}
		return st.Matches, nil
	case job.StateCanceled:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, context.Canceled
	default:
		return nil, fmt.Errorf("search failed: %s", st.Error)
	}
}

func (s *soundalikeService) StartSearch(ctx context.Context, reference string, roots []string) (*Job, error) {
	return s.coordinator.Start(ctx, reference, s.roots(roots))
}

func (s *soundalikeService) StartSearchWithFingerprint(ctx context.Context, label string, reference Fingerprint, roots []string) (*Job, error) {
	return s.coordinator.StartWithFingerprint(ctx, label, reference, s.roots(roots))
}

func (s *soundalikeService) roots(roots []string) []string {
	if len(roots) > 0 {
		return roots
	}
	return s.config.LibraryRoots
}

func (s *soundalikeService) Job(id string) (*Job, bool) {
	return s.coordinator.Get(id)
}

func (s *soundalikeService) ForgetJob(id string) bool {
	return s.coordinator.Forget(id)
}

func (s *soundalikeService) ActiveJob() *Job {
	return s.coordinator.Active()
}

func (s *soundalikeService) LibraryRoots() []string {
	return append([]string(nil), s.config.LibraryRoots...)
}

func (s *soundalikeService) CacheStats() (CacheStats, error) {
	st := CacheStats{
		Stats:   s.cache.Stats(),
		Backend: s.config.CacheBackend,
		Path:    s.config.CachePath,
	}
	n, err := s.cache.Len()
	if err != nil {
		return st, err
	}
	st.Entries = n
	return st, nil
}

// Close stops any running search and closes the cache.
func (s *soundalikeService) Close() error {
	s.coordinator.Close()
	return s.cache.Close()
}
