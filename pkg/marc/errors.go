package marc

import (
	"errors"
	"fmt"
)

// Sentinel errors for the parse failure classes. A *ParseError
// unwraps to one of these, so callers can classify with errors.Is.
var (
	ErrInvalidLengthHeader = errors.New("invalid length header")
	ErrMissingTerminator   = errors.New("missing terminator")
	ErrTruncatedRecord     = errors.New("truncated record")
	ErrInvalidLeader       = errors.New("invalid leader")
	ErrEncoding            = errors.New("encoding error")
)

// Encode-side errors.
var (
	ErrFieldTooLong  = errors.New("field exceeds 9999 bytes")
	ErrRecordTooLong = errors.New("record exceeds 99999 bytes")
	ErrInvalidTag    = errors.New("tag must be exactly 3 characters")
)

// ParseError describes why a record failed to decode. It is always
// returned as a value, never raised as a panic: malformed input is
// expected, and one bad record must not abort the batch it arrived in.
type ParseError struct {
	// Err is one of the sentinel errors above.
	Err error

	// Offset is the byte position of the fault within the record.
	Offset int

	// Expected and Actual carry the declared and real byte counts for
	// ErrTruncatedRecord; zero otherwise.
	Expected int
	Actual   int

	// Detail optionally narrows the fault.
	Detail string
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
	if errors.Is(e.Err, ErrTruncatedRecord) {
		msg = fmt.Sprintf("%s: expected %d bytes, got %d", msg, e.Expected, e.Actual)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErr(err error, offset int, detail string) *ParseError {
	return &ParseError{Err: err, Offset: offset, Detail: detail}
}
