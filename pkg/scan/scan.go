// Package scan finds record boundaries in raw MARC byte buffers.
//
// Boundaries are a pure function of byte content: every occurrence of
// the record terminator closes the record that began at the previous
// terminator (or the start of the buffer). The scanner knows nothing
// about record contents, so the same bytes produce the same boundaries
// no matter how the stream was chunked, provided the terminator lies
// inside the scanned region.
package scan

import (
	"bytes"

	"github.com/dchud/marcstream/pkg/marc"
)

// Boundary delimits one undecoded record within a buffer. Boundaries
// are ephemeral: they reference a span of a shared buffer and must be
// consumed before that buffer is reused.
type Boundary struct {
	Offset int
	Length int
}

// Scan returns a boundary for every complete record in buf. A trailing
// unterminated span is not reported; the caller re-buffers it and
// retries once more bytes arrive.
func Scan(buf []byte) []Boundary {
	bs, _ := ScanLimited(buf, -1)
	return bs
}

// ScanLimited is Scan with an upper bound on the number of boundaries
// returned, for batch-size control. max < 0 means no limit. The second
// result is the number of bytes covered by the returned boundaries,
// i.e. where the unconsumed remainder begins.
//
// bytes.IndexByte is the search primitive; it is vectorized by the
// runtime, and ScanLimited allocates nothing beyond the returned
// slice.
func ScanLimited(buf []byte, max int) ([]Boundary, int) {
	if max == 0 {
		return nil, 0
	}

	var out []Boundary
	start := 0
	for start < len(buf) {
		i := bytes.IndexByte(buf[start:], marc.RecordTerminator)
		if i < 0 {
			break
		}
		out = append(out, Boundary{Offset: start, Length: i + 1})
		start += i + 1
		if max > 0 && len(out) == max {
			break
		}
	}
	return out, start
}
