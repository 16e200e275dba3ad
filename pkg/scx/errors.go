package scx

import (
	"errors"
	"fmt"
)

// SCX format errors.
var (
	ErrBadSignature         = errors.New("invalid SCX magic: expected 'INVO'")
	ErrUnsupportedVersion   = errors.New("unsupported SCX version")
	ErrTruncatedData        = errors.New("truncated SCX data")
	ErrNoActiveMesh         = errors.New("SCX entry has no active mesh")
	ErrUnknownMaterialEntry = errors.New("unknown SCX material entry type")
	ErrInvalidSeek          = errors.New("invalid seek position")
)

// DecodeError records where in the buffer a decode failed.
type DecodeError struct {
	Offset int64  // Byte offset of the failing read
	Op     string // What was being read
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("scx: %s at offset 0x%X: %v", e.Op, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsUnsupported reports whether err means the input is not a decodable SCX
// container (wrong magic or unknown version). Callers usually skip such files
// instead of treating them as failures.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrBadSignature) || errors.Is(err, ErrUnsupportedVersion)
}

// ErrorOffset returns the byte offset carried by a decode error.
func ErrorOffset(err error) (int64, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Offset, true
	}
	return 0, false
}
