// Package cache memoizes fingerprint extraction in a persistent store.
package cache

import (
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/himanishpuri/SoundAlike/internal/fingerprint"
	"github.com/himanishpuri/SoundAlike/internal/storage"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/utils"
)

// ErrCache marks store failures. The cache logs them and falls back to
// extraction, so callers of GetOrCompute never receive it.
var ErrCache = errors.New("fingerprint cache error")

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Extractor is what the cache needs from fingerprint.Extractor.
type Extractor interface {
	Extract(path string) (fingerprint.Fingerprint, error)
	Shape() (int, int)
}

// Stats counts cache activity since the cache was created.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Extractions   int64 `json:"extractions"`
	StoreFailures int64 `json:"store_failures"`
}

// Cache maps canonical file paths to fingerprints. Entries are never
// invalidated when the file changes on disk.
type Cache struct {
	store     storage.Store
	extractor Extractor
	log       Logger
	group     singleflight.Group

	hits          atomic.Int64
	misses        atomic.Int64
	extractions   atomic.Int64
	storeFailures atomic.Int64
}

// New wraps store. A nil log falls back to the package logger.
func New(store storage.Store, extractor Extractor, log Logger) *Cache {
	if log == nil {
		log = logger.GetLogger().WithPrefix("[cache]")
	}
	return &Cache{store: store, extractor: extractor, log: log}
}

// GetOrCompute returns the fingerprint for path, extracting and storing it
// on a miss. Concurrent calls for the same path share one extraction.
// Returned errors come from extraction only.
func (c *Cache) GetOrCompute(path string) (fingerprint.Fingerprint, error) {
	key, err := utils.CanonicalPath(path)
	if err != nil {
		key = path
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if fp, ok := c.lookup(key); ok {
			c.hits.Add(1)
			return fp, nil
		}
		c.misses.Add(1)

		fp, err := c.extractor.Extract(key)
		c.extractions.Add(1)
		if err != nil {
			return fingerprint.Fingerprint{}, err
		}
		c.save(key, fp)
		return fp, nil
	})
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	return v.(fingerprint.Fingerprint), nil
}

func (c *Cache) lookup(key string) (fingerprint.Fingerprint, bool) {
	if c.store == nil {
		return fingerprint.Fingerprint{}, false
	}
	payload, err := c.store.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return fingerprint.Fingerprint{}, false
	}
	if err != nil {
		c.fail("read", key, err)
		return fingerprint.Fingerprint{}, false
	}

	var fp fingerprint.Fingerprint
	if err := fp.UnmarshalBinary(payload); err != nil {
		c.fail("decode", key, err)
		return fingerprint.Fingerprint{}, false
	}

	coeffs, frames := c.extractor.Shape()
	if fp.Coeffs != coeffs || fp.Frames != frames {
		c.log.Debugf("stale entry for %s: %dx%d, want %dx%d", key, fp.Coeffs, fp.Frames, coeffs, frames)
		return fingerprint.Fingerprint{}, false
	}
	return fp, true
}

func (c *Cache) save(key string, fp fingerprint.Fingerprint) {
	if c.store == nil {
		return
	}
	payload, err := fp.MarshalBinary()
	if err == nil {
		err = c.store.Put(key, payload)
	}
	if err != nil {
		c.fail("write", key, err)
	}
}

func (c *Cache) fail(op, key string, err error) {
	c.storeFailures.Add(1)
	c.log.Warnf("%v", fmt.Errorf("%w: %s %s: %w", ErrCache, op, key, err))
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Extractions:   c.extractions.Load(),
		StoreFailures: c.storeFailures.Load(),
	}
}

// Len reports how many entries the backing store holds.
func (c *Cache) Len() (int64, error) {
	if c.store == nil {
		return 0, nil
	}
	n, err := c.store.Count()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCache, err)
	}
	return n, nil
}

// Close closes the backing store.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
