package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode marks files that exist but are not decodable audio.
	ErrDecode = errors.New("decode error")
	// ErrIO marks filesystem failures (missing file, permission denied, ...).
	ErrIO = errors.New("io error")
	// ErrUnsupported is returned for extensions no decoder is registered for.
	// It always travels together with ErrDecode.
	ErrUnsupported = errors.New("unsupported audio format")
)

func decodeErr(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
}

func ioErr(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, path, err)
}
