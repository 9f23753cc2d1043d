package decoder

import (
	"fmt"

	"github.com/mdobak/go-xerrors"
)

// DecodeError wraps a file-local decode failure: unsupported format,
// corrupt header, or an I/O error reading the source file. It is never
// fatal to an ingest or recognize batch (spec §7): the caller logs it
// and skips the file.
type DecodeError struct {
	Path string
	err  error
}

func newDecodeError(path string, cause error) *DecodeError {
	return &DecodeError{Path: path, err: xerrors.New(cause)}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoder: %s: %v", e.Path, e.err)
}

func (e *DecodeError) Unwrap() error {
	return e.err
}
