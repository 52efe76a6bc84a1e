//go:build !js && !wasm
// +build !js,!wasm

package soundalike

import (
	"github.com/himanishpuri/SoundAlike/internal/config"
	"github.com/himanishpuri/SoundAlike/internal/storage"
)

// Store persists encoded fingerprints. See WithStore.
type Store = storage.Store

type Config struct {
	CachePath    string
	CacheBackend string
	Workers      int
	Extensions   []string
	LibraryRoots []string
	Fingerprint  FingerprintConfig
	Policy       OverlapPolicy
	JobHistory   int
	Logger       Logger
	Store        Store
}

type Option func(*Config)

func WithCachePath(path string) Option {
	return func(c *Config) {
		c.CachePath = path
	}
}

// WithCacheBackend selects "sqlite" (default) or "badger".
func WithCacheBackend(backend string) Option {
	return func(c *Config) {
		c.CacheBackend = backend
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func WithExtensions(exts ...string) Option {
	return func(c *Config) {
		c.Extensions = exts
	}
}

func WithLibraryRoots(roots ...string) Option {
	return func(c *Config) {
		c.LibraryRoots = roots
	}
}

func WithFingerprintConfig(cfg FingerprintConfig) Option {
	return func(c *Config) {
		c.Fingerprint = cfg
	}
}

func WithOverlapPolicy(p OverlapPolicy) Option {
	return func(c *Config) {
		c.Policy = p
	}
}

// WithJobHistory sets how many finished searches stay retrievable by id.
func WithJobHistory(n int) Option {
	return func(c *Config) {
		c.JobHistory = n
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithStore replaces the on-disk cache store. The service closes it.
func WithStore(store Store) Option {
	return func(c *Config) {
		c.Store = store
	}
}

// WithSettings applies a loaded settings file.
func WithSettings(s *config.Settings) Option {
	return func(c *Config) {
		c.CachePath = s.CachePath
		c.CacheBackend = s.CacheBackend
		c.Workers = s.Workers
		c.Extensions = s.Extensions
		c.LibraryRoots = s.LibraryRoots
		c.Fingerprint = s.Fingerprint()
		c.Policy = s.Policy()
	}
}

func defaultConfig() *Config {
	return &Config{
		CacheBackend: string(storage.BackendSQLite),
		Fingerprint:  DefaultFingerprintConfig(),
		Policy:       PolicyReplace,
	}
}
