// Package config loads and persists user settings.
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/SoundAlike/internal/fingerprint"
	"github.com/himanishpuri/SoundAlike/internal/job"
	"github.com/himanishpuri/SoundAlike/internal/scanner"
	"github.com/himanishpuri/SoundAlike/internal/storage"
	"github.com/himanishpuri/SoundAlike/pkg/utils"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid settings")

const (
	DefaultPath          = "soundalike.yaml"
	DefaultRefreshRateMs = 500

	EnvConfig       = "SOUNDALIKE_CONFIG"
	EnvCachePath    = "SOUNDALIKE_CACHE_PATH"
	EnvCacheBackend = "SOUNDALIKE_CACHE_BACKEND"
	EnvWorkers      = "SOUNDALIKE_WORKERS"
)

type Settings struct {
	LibraryRoots        []string `yaml:"library_roots"`
	Extensions          []string `yaml:"extensions"`
	ReferenceExtensions []string `yaml:"reference_extensions"`
	CacheBackend        string   `yaml:"cache_backend"`
	CachePath           string   `yaml:"cache_path,omitempty"`
	Workers             int      `yaml:"workers,omitempty"`
	Coefficients        int      `yaml:"coefficients"`
	Frames              int      `yaml:"frames"`
	RefreshRateMs       int      `yaml:"refresh_rate_ms"`
	OverlapPolicy       string   `yaml:"overlap_policy"`
}

func Default() *Settings {
	return &Settings{
		LibraryRoots:        []string{},
		Extensions:          append([]string(nil), scanner.DefaultExtensions...),
		ReferenceExtensions: []string{".wav", ".mp3", ".flac"},
		CacheBackend:        string(storage.BackendSQLite),
		Coefficients:        fingerprint.DefaultCoefficients,
		Frames:              fingerprint.DefaultFrames,
		RefreshRateMs:       DefaultRefreshRateMs,
		OverlapPolicy:       string(job.PolicyReplace),
	}
}

// Path returns the settings file location: $SOUNDALIKE_CONFIG or
// DefaultPath.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	return parse(path, data)
}

func parse(path string, data []byte) (*Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes the settings as YAML, replacing path atomically.
func (s *Settings) Save(path string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return utils.WriteFileAtomic(path, data, 0o644)
}

// Import reads settings from src, which must exist.
func Import(src string) (*Settings, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("importing settings: %w", err)
	}
	return parse(src, data)
}

// Export writes a copy of the settings to dst.
func (s *Settings) Export(dst string) error {
	return s.Save(dst)
}

// ImportLegacy reads the plain-text format: one library root per line and
// the refresh rate in milliseconds on the last line. A last line that is not
// an integer falls back to DefaultRefreshRateMs.
func ImportLegacy(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("importing legacy settings: %w", err)
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("importing legacy settings: %w", err)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	s := Default()
	if len(lines) == 0 {
		return s, nil
	}
	for _, root := range lines[:len(lines)-1] {
		s.AddRoot(root)
	}
	if rate, err := strconv.Atoi(lines[len(lines)-1]); err == nil && rate > 0 {
		s.RefreshRateMs = rate
	}
	return s, s.Validate()
}

// ExportLegacy writes the roots and refresh rate in the plain-text format.
func (s *Settings) ExportLegacy(path string) error {
	var b strings.Builder
	for _, root := range s.LibraryRoots {
		b.WriteString(root)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d\n", s.RefreshRateMs)
	return utils.WriteFileAtomic(path, []byte(b.String()), 0o644)
}

// AddRoot appends dir unless it is blank or already present. It reports
// whether the set changed.
func (s *Settings) AddRoot(dir string) bool {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return false
	}
	dir = filepath.Clean(dir)
	for _, r := range s.LibraryRoots {
		if r == dir {
			return false
		}
	}
	s.LibraryRoots = append(s.LibraryRoots, dir)
	return true
}

// RemoveRoot drops dir and reports whether it was present.
func (s *Settings) RemoveRoot(dir string) bool {
	dir = filepath.Clean(strings.TrimSpace(dir))
	for i, r := range s.LibraryRoots {
		if r == dir {
			s.LibraryRoots = append(s.LibraryRoots[:i], s.LibraryRoots[i+1:]...)
			return true
		}
	}
	return false
}

// ApplyEnv overrides cache and worker settings from the environment.
func (s *Settings) ApplyEnv() error {
	if v := os.Getenv(EnvCachePath); v != "" {
		s.CachePath = v
	}
	if v := os.Getenv(EnvCacheBackend); v != "" {
		s.CacheBackend = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, EnvWorkers, v, err)
		}
		s.Workers = n
	}
	return s.Validate()
}

func (s *Settings) normalize() {
	roots := s.LibraryRoots
	s.LibraryRoots = []string{}
	for _, r := range roots {
		s.AddRoot(r)
	}
	s.Extensions = scanner.NormalizeExtensions(s.Extensions)
	if len(s.ReferenceExtensions) == 0 {
		s.ReferenceExtensions = Default().ReferenceExtensions
	}
	s.ReferenceExtensions = scanner.NormalizeExtensions(s.ReferenceExtensions)
}

func (s *Settings) Validate() error {
	var errs []error
	if _, err := storage.ParseBackend(s.CacheBackend); err != nil {
		errs = append(errs, err)
	}
	if _, err := job.ParsePolicy(s.OverlapPolicy); err != nil {
		errs = append(errs, err)
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", s.Workers))
	}
	if s.Coefficients < 1 || s.Coefficients > fingerprint.DefaultMels {
		errs = append(errs, fmt.Errorf("coefficients must be between 1 and %d, got %d", fingerprint.DefaultMels, s.Coefficients))
	}
	if s.Frames < 1 {
		errs = append(errs, fmt.Errorf("frames must be positive, got %d", s.Frames))
	}
	if s.RefreshRateMs < 1 {
		errs = append(errs, fmt.Errorf("refresh_rate_ms must be positive, got %d", s.RefreshRateMs))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func (s *Settings) Backend() storage.Backend {
	b, _ := storage.ParseBackend(s.CacheBackend)
	return b
}

func (s *Settings) Policy() job.Policy {
	p, _ := job.ParsePolicy(s.OverlapPolicy)
	return p
}

// Fingerprint returns the extractor settings for the configured shape.
func (s *Settings) Fingerprint() fingerprint.Config {
	cfg := fingerprint.DefaultConfig()
	cfg.MFCC.Coefficients = s.Coefficients
	cfg.Frames = s.Frames
	return cfg
}
