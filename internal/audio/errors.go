package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode marks input that is not a supported or intact audio file.
	ErrDecode = errors.New("audio decode failed")
	// ErrEmptyBuffer is returned for nil or zero-length buffers.
	ErrEmptyBuffer = errors.New("empty sample buffer")
	// ErrInvalidOptions is returned for out-of-range processing options.
	ErrInvalidOptions = errors.New("invalid processing options")
)

// RenderError reports a failed offline render and the stage that failed.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// DecodeError wraps err so that errors.Is(result, ErrDecode) holds.
func DecodeError(format string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrDecode, format)
	}
	return fmt.Errorf("%w: %s: %w", ErrDecode, format, err)
}
