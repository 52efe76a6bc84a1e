package soundalike

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/SoundAlike/internal/audio/audiotest"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
)

func setupService(t *testing.T, opts ...Option) Service {
	t.Helper()
	base := []Option{
		WithCachePath(filepath.Join(t.TempDir(), "cache.sqlite3")),
		WithLogger(logger.Discard()),
	}
	svc, err := NewService(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func writeTone(t *testing.T, path string, freq float64) {
	t.Helper()
	if err := audiotest.WriteWAV(path, 22050, 1, audiotest.Tone(freq, 1, 22050, 0.5)); err != nil {
		t.Fatal(err)
	}
}

func TestSearchRanksLibrary(t *testing.T) {
	lib := t.TempDir()
	writeTone(t, filepath.Join(lib, "near.wav"), 450)
	writeTone(t, filepath.Join(lib, "exact.wav"), 440)
	if err := audiotest.WriteWAV(filepath.Join(lib, "quiet.wav"), 22050, 1, audiotest.Silence(1, 22050)); err != nil {
		t.Fatal(err)
	}
	if err := audiotest.WriteCorrupt(filepath.Join(lib, "broken.wav")); err != nil {
		t.Fatal(err)
	}
	ref := filepath.Join(t.TempDir(), "ref.wav")
	writeTone(t, ref, 440)

	svc := setupService(t, WithLibraryRoots(lib))

	matches, err := svc.Search(context.Background(), ref, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %+v", matches)
	}
	if matches[0].Name != "exact.wav" || matches[0].Distance != 0 {
		t.Errorf("expected exact.wav at distance 0 first, got %+v", matches[0])
	}
	if matches[2].Name != "quiet.wav" {
		t.Errorf("expected silence last, got %+v", matches)
	}

	st, err := svc.CacheStats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Entries != 3 {
		t.Errorf("expected 3 cached entries, got %d", st.Entries)
	}

	// A second search is served from the cache.
	if _, err := svc.Search(context.Background(), ref, nil); err != nil {
		t.Fatal(err)
	}
	after, _ := svc.CacheStats()
	if after.Extractions != st.Extractions+1 {
		t.Errorf("second search should only re-extract the broken file: %d -> %d", st.Extractions, after.Extractions)
	}
}

func TestSearchBadReference(t *testing.T) {
	svc := setupService(t)
	_, err := svc.Search(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), []string{t.TempDir()})
	if !errors.Is(err, ErrReference) || !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrReference wrapping ErrIO, got %v", err)
	}
}

func TestCompare(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.wav"), filepath.Join(dir, "b.wav")
	writeTone(t, a, 440)
	writeTone(t, b, 880)

	svc := setupService(t)
	self, err := svc.Compare(context.Background(), a, a)
	if err != nil || self != 0 {
		t.Errorf("Compare(a, a) = %f, %v", self, err)
	}
	ab, _ := svc.Compare(context.Background(), a, b)
	ba, _ := svc.Compare(context.Background(), b, a)
	if ab != ba || ab <= 0 {
		t.Errorf("Compare not symmetric or zero: %f vs %f", ab, ba)
	}
}

func TestBadgerBackend(t *testing.T) {
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "a.wav"), 440)

	svc := setupService(t, WithCacheBackend("badger"), WithCachePath(filepath.Join(dir, "cache.badger")))
	fp, err := svc.Fingerprint(context.Background(), filepath.Join(dir, "a.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if c, f := fp.Shape(); c != 20 || f != 400 {
		t.Errorf("shape = %dx%d", c, f)
	}
	if st, _ := svc.CacheStats(); st.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", st.Entries)
	}
}

func TestFingerprintSamplesMatchesFile(t *testing.T) {
	samples := audiotest.Tone(440, 1, 22050, 0.5)
	path := filepath.Join(t.TempDir(), "a.wav")
	if err := audiotest.WriteWAV(path, 22050, 2, audiotest.Interleave(samples, samples)); err != nil {
		t.Fatal(err)
	}

	svc := setupService(t)
	fromFile, err := svc.Fingerprint(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	// Quantize the same way the 16-bit file does.
	q := make([]float64, len(samples))
	for i, s := range samples {
		q[i] = float64(int(s*32767+copysign(0.5, s))) / 32768
	}
	fromSamples, err := FingerprintSamples(audiotest.Interleave(q, q), 22050, 2, DefaultFingerprintConfig())
	if err != nil {
		t.Fatal(err)
	}
	d, err := Distance(fromFile, fromSamples)
	if err != nil {
		t.Fatal(err)
	}
	if d > 1e-3 {
		t.Errorf("in-memory fingerprint should match the file, distance %g", d)
	}
}

func copysign(v, sign float64) float64 {
	if sign < 0 {
		return -v
	}
	return v
}
