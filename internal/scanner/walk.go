package scanner

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/utils"
)

// DefaultExtensions is the library filter used when none is given.
var DefaultExtensions = []string{".wav"}

// NormalizeExtensions lower-cases exts, adds missing leading dots and drops
// blanks and duplicates. An empty result becomes DefaultExtensions.
func NormalizeExtensions(exts []string) []string {
	seen := make(map[string]bool, len(exts))
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultExtensions...)
	}
	return out
}

// Enumerate lists the audio files under roots, root by root, in lexical
// order within each root. Paths are absolute; a file reachable from two
// overlapping roots is listed once. Unreadable roots and directories are
// skipped.
func Enumerate(roots, extensions []string) []string {
	return enumerate(roots, extensions, logger.GetLogger().WithPrefix("[scan]"))
}

func enumerate(roots, extensions []string, log Logger) []string {
	exts := make(map[string]bool)
	for _, e := range NormalizeExtensions(extensions) {
		exts[e] = true
	}

	seen := make(map[string]bool)
	var files []string
	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		abs, err := utils.ResolvePath(root)
		if err != nil {
			log.Debugf("skipping root %s: %v", root, err)
			continue
		}

		_ = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Debugf("skipping %s: %v", path, err)
				if d != nil && d.IsDir() && path != abs {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if mode := d.Type(); !mode.IsRegular() && mode&fs.ModeSymlink == 0 {
				return nil
			}
			if !exts[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			if seen[path] {
				return nil
			}
			seen[path] = true
			files = append(files, path)
			return nil
		})
	}
	return files
}
