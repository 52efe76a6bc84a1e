package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/himanishpuri/SoundAlike/internal/audio"
	"github.com/himanishpuri/SoundAlike/internal/audio/audiotest"
	"github.com/himanishpuri/SoundAlike/internal/cache"
	"github.com/himanishpuri/SoundAlike/internal/fingerprint"
	"github.com/himanishpuri/SoundAlike/internal/storage"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
)

type env struct {
	extractor *fingerprint.Extractor
	scanner   *Scanner
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ext, err := fingerprint.NewExtractor(audio.NewRegistry(), fingerprint.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "cache.sqlite3"))
	if err != nil {
		t.Fatal(err)
	}
	c := cache.New(store, ext, logger.Discard())
	t.Cleanup(func() { c.Close() })
	return &env{extractor: ext, scanner: New(c, logger.Discard())}
}

func writeWAV(t *testing.T, path string, samples []float64) {
	t.Helper()
	if err := audiotest.WriteWAV(path, 22050, 1, samples); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func tone(freq float64) []float64 { return audiotest.Tone(freq, 0.5, 22050, 0.5) }

func (e *env) reference(t *testing.T, samples []float64) fingerprint.Fingerprint {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reference.wav")
	writeWAV(t, path, samples)
	fp, err := e.extractor.Extract(path)
	if err != nil {
		t.Fatalf("Failed to fingerprint reference: %v", err)
	}
	return fp
}

func TestScanRanksToneAboveSilence(t *testing.T) {
	e := newEnv(t)
	lib := t.TempDir()
	writeWAV(t, filepath.Join(lib, "silence.wav"), audiotest.Silence(0.5, 22050))
	writeWAV(t, filepath.Join(lib, "tone.wav"), tone(440))

	matches, err := e.scanner.Scan(context.Background(), []string{lib}, e.reference(t, tone(440)), Options{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Name != "tone.wav" {
		t.Errorf("expected tone.wav first, got %+v", matches)
	}
	if matches[0].Distance != 0 {
		t.Errorf("identical content should have distance 0, got %f", matches[0].Distance)
	}
	if matches[1].Distance <= matches[0].Distance {
		t.Errorf("silence should rank below the tone: %+v", matches)
	}
}

func TestScanIsDeterministic(t *testing.T) {
	e := newEnv(t)
	lib := t.TempDir()
	for i, f := range []float64{220, 330, 440, 550, 660} {
		writeWAV(t, filepath.Join(lib, fmt.Sprintf("t%d.wav", i)), tone(f))
	}
	// Two identical files tie on distance and must keep enumeration order.
	writeWAV(t, filepath.Join(lib, "a_dup.wav"), tone(880))
	writeWAV(t, filepath.Join(lib, "b_dup.wav"), tone(880))

	ref := e.reference(t, tone(440))
	first, err := e.scanner.Scan(context.Background(), []string{lib}, ref, Options{Workers: 4})
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.scanner.Scan(context.Background(), []string{lib}, ref, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != 7 || len(second) != 7 {
		t.Fatalf("expected 7 matches, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("result %d differs: %+v vs %+v", i, first[i], second[i])
		}
		if i > 0 && first[i].Distance < first[i-1].Distance {
			t.Errorf("results not sorted at %d", i)
		}
	}
	for i := range first {
		if first[i].Name == "a_dup.wav" {
			if i+1 >= len(first) || first[i+1].Name != "b_dup.wav" {
				t.Errorf("tied files should keep discovery order: %+v", first)
			}
			break
		}
	}
}

func TestScanSkipsCorruptFile(t *testing.T) {
	e := newEnv(t)
	lib := t.TempDir()
	for i := 0; i < 4; i++ {
		writeWAV(t, filepath.Join(lib, fmt.Sprintf("ok%d.wav", i)), tone(300+float64(i)*100))
	}
	bad := filepath.Join(lib, "broken.wav")
	if err := audiotest.WriteCorrupt(bad); err != nil {
		t.Fatal(err)
	}

	var (
		progress []int
		failed   []string
		totals   = map[int]bool{}
	)
	matches, err := e.scanner.Scan(context.Background(), []string{lib}, e.reference(t, tone(440)), Options{
		Workers: 3,
		OnProgress: func(processed, total int) {
			progress = append(progress, processed)
			totals[total] = true
		},
		OnError: func(path string, err error) {
			if !errors.Is(err, audio.ErrDecode) {
				t.Errorf("expected decode error for %s, got %v", path, err)
			}
			failed = append(failed, path)
		},
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(matches) != 4 {
		t.Errorf("expected 4 matches, got %d", len(matches))
	}
	if len(failed) != 1 || failed[0] != bad {
		t.Errorf("expected only %s to fail, got %v", bad, failed)
	}
	if len(progress) != 5 {
		t.Fatalf("expected 5 progress calls, got %v", progress)
	}
	for i, p := range progress {
		if p != i+1 {
			t.Errorf("progress not monotonic: %v", progress)
			break
		}
	}
	if len(totals) != 1 || !totals[5] {
		t.Errorf("expected total 5 on every call, got %v", totals)
	}
}

func TestScanEmptyLibrary(t *testing.T) {
	e := newEnv(t)
	calls := 0
	matches, err := e.scanner.Scan(context.Background(), []string{t.TempDir()}, e.reference(t, tone(440)), Options{
		OnProgress: func(int, int) { calls++ },
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if matches == nil || len(matches) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", matches)
	}
	if calls != 0 {
		t.Errorf("expected no progress calls, got %d", calls)
	}
}

func TestScanMissingRoot(t *testing.T) {
	e := newEnv(t)
	lib := t.TempDir()
	writeWAV(t, filepath.Join(lib, "tone.wav"), tone(440))

	roots := []string{filepath.Join(lib, "does-not-exist"), lib}
	matches, err := e.scanner.Scan(context.Background(), roots, e.reference(t, tone(440)), Options{})
	if err != nil {
		t.Fatalf("missing root should be skipped, got %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("expected 1 match, got %d", len(matches))
	}
}

type slowSource struct {
	mu    sync.Mutex
	calls int
}

func (s *slowSource) GetOrCompute(path string) (fingerprint.Fingerprint, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return fingerprint.Fingerprint{Coeffs: 1, Frames: 1, Data: []float32{1}}, nil
}

func TestScanCancellation(t *testing.T) {
	files := make([]string, 50)
	for i := range files {
		files[i] = fmt.Sprintf("/music/%02d.wav", i)
	}
	src := &slowSource{}
	s := New(src, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processed := 0
	ref := fingerprint.Fingerprint{Coeffs: 1, Frames: 1, Data: []float32{0}}
	matches, err := s.ScanFiles(ctx, files, ref, Options{
		Workers: 1,
		OnProgress: func(p, total int) {
			processed = p
			if p == 1 {
				cancel()
			}
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if processed >= len(files) {
		t.Errorf("expected scan to stop early, processed %d of %d", processed, len(files))
	}
	if len(matches) != processed {
		t.Errorf("expected partial results for every processed file, got %d vs %d", len(matches), processed)
	}
}

func TestEnumerate(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.wav", "a.WAV", "notes.txt", "sub/c.wav", "sub/d.flac"} {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatal(err)
	}

	got := Enumerate([]string{root, filepath.Join(root, "sub"), filepath.Join(root, "missing")}, nil)
	want := []string{
		filepath.Join(resolved, "a.WAV"),
		filepath.Join(resolved, "b.wav"),
		filepath.Join(resolved, "sub", "c.wav"),
	}
	if len(got) != len(want) {
		t.Fatalf("Enumerate = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Enumerate[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	got = Enumerate([]string{root}, []string{"FLAC", ".wav"})
	if len(got) != 4 {
		t.Errorf("expected 4 files with flac and wav, got %v", got)
	}
}

func TestNormalizeExtensions(t *testing.T) {
	got := NormalizeExtensions([]string{"WAV", ".mp3", " ", ".wav"})
	want := []string{".wav", ".mp3"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("NormalizeExtensions = %v, want %v", got, want)
	}
	if got := NormalizeExtensions(nil); len(got) != 1 || got[0] != ".wav" {
		t.Errorf("NormalizeExtensions(nil) = %v", got)
	}
}
