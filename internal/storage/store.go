//go:build !js && !wasm
// +build !js,!wasm

// Package storage persists encoded fingerprints keyed by file path.
package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// Store is a minimal persistent key-value store. Implementations are safe
// for concurrent use.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Count() (int64, error)
	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*BadgerStore)(nil)
)

// Backend names a Store implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBadger Backend = "badger"
)

// DefaultSQLiteFile and DefaultBadgerDir are the paths used when none is
// configured.
const (
	DefaultSQLiteFile = "soundalike.sqlite3"
	DefaultBadgerDir  = "soundalike.badger"
)

// ParseBackend accepts "sqlite" or "badger", case-insensitively. An empty
// string selects SQLite.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackendSQLite:
		return BackendSQLite, nil
	case BackendBadger:
		return BackendBadger, nil
	}
	return "", fmt.Errorf("unknown cache backend %q", s)
}

// DefaultPath returns the default location for the backend.
func (b Backend) DefaultPath() string {
	if b == BackendBadger {
		return DefaultBadgerDir
	}
	return DefaultSQLiteFile
}

// Open opens the store for backend at path, falling back to the backend's
// default path when path is empty.
func Open(backend Backend, path string) (Store, error) {
	if path == "" {
		path = backend.DefaultPath()
	}
	switch backend {
	case BackendSQLite, "":
		return OpenSQLite(path)
	case BackendBadger:
		return OpenBadger(path)
	}
	return nil, fmt.Errorf("unknown cache backend %q", backend)
}
