package bunfmt

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBinary      = errors.New("bunfmt: invalid binary")
	ErrInvalidTrailer     = errors.New("bunfmt: standalone trailer not found")
	ErrUnsupportedVersion = errors.New("bunfmt: unsupported bun version")
	ErrCorruptModuleGraph = errors.New("bunfmt: corrupt module graph")
	ErrExtraction         = errors.New("bunfmt: extraction failed")
)

// ExtractionError reports a filesystem failure for one destination path.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", ErrExtraction, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", ErrExtraction, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is matches ErrExtraction so callers need not type-assert.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }
