package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/SoundAlike/internal/audio/audiotest"
	"github.com/himanishpuri/SoundAlike/internal/config"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, cachePath, cacheBackend, workers, logLevel = "", "", "", 0, ""
	logger.SetOutput(&bytes.Buffer{})

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigAddAndRemoveRoot(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "soundalike.yaml")

	if _, err := runCLI(t, "--config", cfg, "config", "add-root", "/music/a", "/music/b"); err != nil {
		t.Fatalf("add-root failed: %v", err)
	}
	out, err := runCLI(t, "--config", cfg, "config", "add-root", "/music/a")
	if err != nil {
		t.Fatalf("add-root failed: %v", err)
	}
	if !strings.Contains(out, "already present") {
		t.Errorf("expected duplicate notice, got %q", out)
	}

	if _, err := runCLI(t, "--config", cfg, "config", "remove-root", "/music/a"); err != nil {
		t.Fatalf("remove-root failed: %v", err)
	}

	s, err := config.Load(cfg)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(s.LibraryRoots) != 1 || s.LibraryRoots[0] != "/music/b" {
		t.Errorf("expected [/music/b], got %v", s.LibraryRoots)
	}
}

func TestSearchJSON(t *testing.T) {
	lib := t.TempDir()
	if err := audiotest.WriteWAV(filepath.Join(lib, "tone.wav"), 22050, 1, audiotest.Tone(440, 1, 22050, 0.5)); err != nil {
		t.Fatal(err)
	}
	if err := audiotest.WriteWAV(filepath.Join(lib, "silence.wav"), 22050, 1, audiotest.Silence(1, 22050)); err != nil {
		t.Fatal(err)
	}
	ref := filepath.Join(t.TempDir(), "ref.wav")
	if err := audiotest.WriteWAV(ref, 22050, 1, audiotest.Tone(440, 1, 22050, 0.5)); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	out, err := runCLI(t,
		"--config", filepath.Join(dir, "soundalike.yaml"),
		"--cache", filepath.Join(dir, "cache.sqlite3"),
		"search", ref, "--root", lib, "--json")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	var report searchReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	if report.Total != 2 || len(report.Matches) != 2 {
		t.Fatalf("expected 2 ranked files, got %+v", report)
	}
	if report.Matches[0].Name != "tone.wav" {
		t.Errorf("expected tone.wav first, got %s", report.Matches[0].Name)
	}
}

func TestSearchRejectsReferenceExtension(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t,
		"--config", filepath.Join(dir, "soundalike.yaml"),
		"search", filepath.Join(dir, "notes.txt"), "--root", dir)
	if err == nil || !strings.Contains(err.Error(), "reference must be one of") {
		t.Errorf("expected extension error, got %v", err)
	}
}
