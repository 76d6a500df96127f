// Package source supplies sequential bytes to the decode pipeline from
// one of three backends: an in-memory buffer, an OS file, or a
// host-managed stream that may only be read under the host's exclusive
// execution lock.
//
// The memory and file backends are safe for use by one reader
// goroutine with no host involvement. The host backend is exposed as a
// LockedSource, whose reads require a *Token proving the host lock is
// held; see host.go.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ErrUnsupportedSource is returned by New for input types it cannot
// dispatch. It is a construction-time configuration error: no I/O has
// happened when it is raised.
var ErrUnsupportedSource = errors.New("unsupported source type")

// ByteSource supplies sequential bytes. Read returns at most maxBytes
// bytes, io.EOF at exhaustion, or a stream-level error. The returned
// slice is owned by the caller until the next Read.
type ByteSource interface {
	Read(maxBytes int) ([]byte, error)
	Close() error
}

// New dispatches an input value to the matching backend. The set of
// backends is closed, so dispatch happens once here rather than
// through per-read virtual calls:
//
//	[]byte   -> in-memory buffer
//	string   -> file path (".zst" files are decompressed transparently)
//	*os.File -> open file handle
//
// Host-managed streams do not pass through New; wrap them with
// NewHostSource so the lock token requirement stays visible in the
// types.
func New(input any) (ByteSource, error) {
	switch v := input.(type) {
	case []byte:
		return NewMemorySource(v), nil
	case string:
		return OpenFileSource(v)
	case *os.File:
		return NewFileSource(v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedSource, input)
	}
}

// MemorySource reads from an in-memory buffer.
type MemorySource struct {
	buf []byte
	off int
}

// NewMemorySource returns a source over buf. The buffer is not copied
// and must not be mutated while the source is in use.
func NewMemorySource(buf []byte) *MemorySource {
	return &MemorySource{buf: buf}
}

// Read returns the next span of up to maxBytes bytes.
func (s *MemorySource) Read(maxBytes int) ([]byte, error) {
	if s.off >= len(s.buf) {
		return nil, io.EOF
	}
	n := len(s.buf) - s.off
	if maxBytes > 0 && n > maxBytes {
		n = maxBytes
	}
	out := s.buf[s.off : s.off+n]
	s.off += n
	return out, nil
}

// Close releases the buffer reference.
func (s *MemorySource) Close() error {
	s.buf = nil
	s.off = 0
	return nil
}

// FileSource reads from an OS file through a buffered reader,
// optionally decompressing zstd on the fly.
type FileSource struct {
	file *os.File
	r    io.Reader
	dec  *zstd.Decoder
}

// OpenFileSource opens path and returns a source over it. Paths ending
// in ".zst" are wrapped in a zstd decoder, so compressed archives of
// records stream through the same pipeline as plain files.
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd source: %w", err)
		}
		return &FileSource{file: f, r: dec, dec: dec}, nil
	}
	return &FileSource{file: f, r: bufio.NewReader(f)}, nil
}

// NewFileSource returns a source over an already-open file handle.
// The source takes ownership; Close closes the handle.
func NewFileSource(f *os.File) *FileSource {
	return &FileSource{file: f, r: bufio.NewReader(f)}
}

// Read returns the next span of up to maxBytes bytes. A zero-byte read
// with no error from the underlying reader is retried; io.Reader
// permits it and it does not mean end of stream.
func (s *FileSource) Read(maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		return nil, nil
	}
	buf := make([]byte, maxBytes)
	for {
		n, err := s.r.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	if s.dec != nil {
		s.dec.Close()
	}
	return s.file.Close()
}
