// Package reader amortizes the cost of reading records from a
// host-managed byte stream.
//
// Host environments with a global exclusive-execution lock make every
// callback into a host object expensive: the lock must be held for the
// call and other host work stalls while it is. BatchReader therefore
// splits each batch into three phases. Phase 1 acquires the host lock
// token and pulls a bounded run of raw bytes in one session. Phase 2
// releases the token and decodes the accumulated spans; decoding takes
// no token anywhere in its signature chain, which is the guarantee it
// touches no host object. Phase 3, converting decoded records into
// host values, belongs to the embedding layer, which re-acquires the
// lock itself. Errors produced during phase 2 are plain values for the
// same reason: a host exception object cannot be constructed without
// the lock.
package reader

import (
	"bytes"
	"io"

	"github.com/dchud/marcstream/pkg/marc"
	"github.com/dchud/marcstream/pkg/pool"
	"github.com/dchud/marcstream/pkg/scan"
	"github.com/dchud/marcstream/pkg/source"
)

// Defaults for batch limits. Exceeding either simply ends the batch
// early; it is not an error. They bound worst-case memory from a
// single NextBatch call.
const (
	DefaultMaxRecords = 100
	DefaultMaxBytes   = 300 * 1024
	DefaultReadSize   = 32 * 1024
)

// Config holds construction parameters for a BatchReader.
type Config struct {
	MaxRecords int // batch record ceiling (default 100)
	MaxBytes   int // batch byte ceiling (default 300 KiB)
	ReadSize   int // bytes requested per locked read (default 32 KiB)
	Workers    int // decode workers (default pool.DefaultWorkers)
}

func (c *Config) applyDefaults() {
	if c.MaxRecords <= 0 {
		c.MaxRecords = DefaultMaxRecords
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.ReadSize <= 0 {
		c.ReadSize = DefaultReadSize
	}
}

// Batch is the outcome of one NextBatch call: per-record results in
// stream order. Per-record parse errors ride inside Results; they
// never fail the batch.
type Batch struct {
	Results   []pool.Result
	BytesRead int
}

// Empty reports whether the batch carries no results.
func (b *Batch) Empty() bool { return len(b.Results) == 0 }

type readerState int

const (
	stateInitial readerState = iota
	stateReading
	stateEOF
)

// BatchReader reads bounded batches of records from a LockedSource.
//
// A BatchReader is not safe for concurrent use: it owns a read cursor
// on a stream that is itself single-threaded. Create one per
// goroutine.
type BatchReader struct {
	src     source.LockedSource
	locker  source.Locker
	cfg     Config
	state   readerState
	pending []byte
}

// New returns a reader over a host-managed (or adapted) source. locker
// supplies the token for phase-1 reads; pass source.NopLocker{} for
// backends that need no host lock.
func New(src source.LockedSource, locker source.Locker, cfg Config) *BatchReader {
	cfg.applyDefaults()
	return &BatchReader{src: src, locker: locker, cfg: cfg}
}

// NewFromByteSource wraps a thread-safe ByteSource (file or memory) so
// it can be read through the same batch interface.
func NewFromByteSource(src source.ByteSource, cfg Config) *BatchReader {
	return New(source.Locked(src), source.NopLocker{}, cfg)
}

// NextBatch reads and decodes the next batch. maxRecords and maxBytes
// override the configured ceilings when positive.
//
// After the source is exhausted, NextBatch returns an empty batch and
// a nil error indefinitely without touching the source again. A
// stream-level read error is returned exactly once, alongside any
// records completed before it; afterwards the reader is exhausted.
// Returning fewer records than requested at end of stream is normal.
func (r *BatchReader) NextBatch(maxRecords, maxBytes int) (*Batch, error) {
	if maxRecords <= 0 {
		maxRecords = r.cfg.MaxRecords
	}
	if maxBytes <= 0 {
		maxBytes = r.cfg.MaxBytes
	}

	if r.state == stateEOF {
		return &Batch{}, nil
	}
	r.state = stateReading

	// Phase 1: raw reads under the host lock. Complete records are
	// counted by terminator occurrences so the buffer is not rescanned
	// per read.
	var (
		streamErr error
		sawEOF    bool
	)
	found := bytes.Count(r.pending, []byte{marc.RecordTerminator})

	tok := r.locker.Acquire()
	for found < maxRecords && len(r.pending) < maxBytes {
		chunk, err := r.src.ReadLocked(tok, r.cfg.ReadSize)
		if len(chunk) > 0 {
			found += bytes.Count(chunk, []byte{marc.RecordTerminator})
			r.pending = append(r.pending, chunk...)
		}
		if err == io.EOF {
			sawEOF = true
			break
		}
		if err != nil {
			streamErr = err
			break
		}
	}
	r.locker.Release(tok)

	boundaries, consumed := scan.ScanLimited(r.pending, maxRecords)
	data := r.pending[:consumed]

	// Phase 2: decode with the lock released. No host calls from here
	// on.
	results := pool.DecodeBatch(boundaries, data, r.cfg.Workers)

	remainder := r.pending[consumed:]
	r.pending = append([]byte(nil), remainder...)

	batch := &Batch{Results: results, BytesRead: consumed}

	if streamErr != nil {
		// Completed records keep their per-record results; the unread
		// remainder is attributed to the stream error.
		r.state = stateEOF
		r.pending = nil
		return batch, streamErr
	}

	if sawEOF {
		if len(r.pending) > 0 {
			// Trailing bytes with no record terminator: reported, not
			// silently dropped.
			batch.Results = append(batch.Results, pool.Result{Err: &marc.ParseError{
				Err:    marc.ErrMissingTerminator,
				Offset: len(r.pending),
				Detail: "unterminated record at end of stream",
			}})
			batch.BytesRead += len(r.pending)
		}
		r.state = stateEOF
		r.pending = nil
	}

	return batch, nil
}

// Close closes the underlying source. The reader is exhausted
// afterwards.
func (r *BatchReader) Close() error {
	r.state = stateEOF
	r.pending = nil
	return r.src.Close()
}
