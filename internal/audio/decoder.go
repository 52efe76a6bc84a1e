package audio

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Decoder turns one audio container format into a mono Clip.
type Decoder interface {
	Decode(path string) (*Clip, error)
	Extensions() []string
}

// Registry picks a Decoder by file extension.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry returns a registry with the WAV, FLAC and MP3 decoders installed.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[string]Decoder)}
	r.Register(&WAVDecoder{})
	r.Register(&FLACDecoder{})
	r.Register(&MP3Decoder{})
	return r
}

// Register installs d for every extension it reports, replacing any
// previous decoder for the same extension.
func (r *Registry) Register(d Decoder) {
	for _, ext := range d.Extensions() {
		r.decoders[normalizeExt(ext)] = d
	}
}

// Supports reports whether path has an extension with a registered decoder.
func (r *Registry) Supports(path string) bool {
	_, ok := r.decoders[normalizeExt(filepath.Ext(path))]
	return ok
}

// Extensions lists the registered extensions, sorted, with leading dots.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.decoders))
	for ext := range r.decoders {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Decode decodes path with the decoder registered for its extension.
func (r *Registry) Decode(path string) (*Clip, error) {
	ext := normalizeExt(filepath.Ext(path))
	d, ok := r.decoders[ext]
	if !ok {
		return nil, decodeErr(path, fmt.Errorf("%w %q", ErrUnsupported, ext))
	}
	clip, err := d.Decode(path)
	if err != nil {
		return nil, err
	}
	if len(clip.Samples) == 0 {
		return nil, decodeErr(path, fmt.Errorf("no audio samples"))
	}
	return clip, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
