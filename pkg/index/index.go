// Package index provides keyed random access into a MARC file without
// re-parsing it.
//
// Build scans the file once and stores each record's control number
// (tag 001) with its byte offset and length in a pebble keyspace. Get
// then reads and decodes a single record directly at its offset.
package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/dchud/marcstream/pkg/marc"
	"github.com/dchud/marcstream/pkg/pool"
	"github.com/dchud/marcstream/pkg/scan"
)

var (
	// ErrNotFound is returned by Get for control numbers absent from
	// the index.
	ErrNotFound = errors.New("control number not found")

	// ErrNotOpen is returned for operations on a closed index.
	ErrNotOpen = errors.New("index is not open")

	// ErrNotBuilt is returned by Get before any Build has run.
	ErrNotBuilt = errors.New("index has not been built")
)

const (
	keyPrefix     = "cn:"
	keyPrefixEnd  = "cn;" // exclusive upper bound of the cn keyspace
	metaSourceKey = "meta:source"
	metaBuildKey  = "meta:build_id"

	chunkSize = 512 * 1024
	entrySize = 12 // offset(8) + length(4), little-endian
)

// Index maps control numbers to record locations in one MARC file.
type Index struct {
	db     *pebble.DB
	mu     sync.Mutex
	isOpen bool
}

// Open opens (creating if needed) an index directory.
func Open(dir string) (*Index, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return &Index{db: db, isOpen: true}, nil
}

// BuildResult summarizes one Build pass.
type BuildResult struct {
	BuildID ksuid.KSUID
	Records int // records indexed
	Skipped int // decoded records with no 001 field
	Errors  int // records that failed to decode
}

// Build scans marcPath and replaces the index contents with entries
// for every decodable record. Parse errors skip the offending record
// and are counted; they do not abort the build. workers <= 0 selects
// the default decode parallelism.
func (ix *Index) Build(marcPath string, workers int) (*BuildResult, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.isOpen {
		return nil, ErrNotOpen
	}

	absPath, err := filepath.Abs(marcPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Drop entries from any previous build so stale control numbers
	// cannot resolve into offsets of the new file.
	if err := ix.db.DeleteRange([]byte(keyPrefix), []byte(keyPrefixEnd), pebble.NoSync); err != nil {
		return nil, err
	}

	result := &BuildResult{BuildID: ksuid.New()}

	var (
		pending []byte
		fileOff int64
	)
	chunk := make([]byte, chunkSize)
	for {
		n, readErr := f.Read(chunk)
		if n > 0 {
			pending = append(pending, chunk[:n]...)
		}

		boundaries, consumed := scan.ScanLimited(pending, -1)
		results := pool.DecodeBatch(boundaries, pending[:consumed], workers)

		batch := ix.db.NewBatch()
		for i, res := range results {
			if res.Err != nil {
				result.Errors++
				continue
			}
			cn, ok := res.Record.ControlValue("001")
			if !ok || cn == "" {
				result.Skipped++
				continue
			}
			var entry [entrySize]byte
			binary.LittleEndian.PutUint64(entry[0:8], uint64(fileOff+int64(boundaries[i].Offset)))
			binary.LittleEndian.PutUint32(entry[8:12], uint32(boundaries[i].Length))
			if err := batch.Set([]byte(keyPrefix+cn), entry[:], nil); err != nil {
				batch.Close()
				return nil, err
			}
			result.Records++
		}
		if err := batch.Commit(pebble.NoSync); err != nil {
			return nil, err
		}

		pending = append([]byte(nil), pending[consumed:]...)
		fileOff += int64(consumed)

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, readErr
		}
	}

	// Trailing unterminated bytes are counted as one bad record, so
	// every input byte range is accounted for.
	if len(pending) > 0 {
		result.Errors++
	}

	if err := ix.db.Set([]byte(metaSourceKey), []byte(absPath), pebble.NoSync); err != nil {
		return nil, err
	}
	if err := ix.db.Set([]byte(metaBuildKey), result.BuildID.Bytes(), pebble.Sync); err != nil {
		return nil, err
	}

	return result, nil
}

// Get retrieves and decodes the record with the given control number.
func (ix *Index) Get(controlNumber string) (*marc.Record, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.isOpen {
		return nil, ErrNotOpen
	}

	src, err := ix.getMeta(metaSourceKey)
	if err != nil {
		return nil, ErrNotBuilt
	}

	val, closer, err := ix.db.Get([]byte(keyPrefix + controlNumber))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(val) != entrySize {
		closer.Close()
		return nil, fmt.Errorf("corrupt index entry for %q", controlNumber)
	}
	offset := int64(binary.LittleEndian.Uint64(val[0:8]))
	length := int(binary.LittleEndian.Uint32(val[8:12]))
	closer.Close()

	f, err := os.Open(string(src))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw := make([]byte, length)
	if _, err := f.ReadAt(raw, offset); err != nil {
		return nil, fmt.Errorf("failed to read record at offset %d: %w", offset, err)
	}

	return marc.Decode(raw)
}

// BuildID returns the identifier of the most recent build.
func (ix *Index) BuildID() (ksuid.KSUID, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.isOpen {
		return ksuid.Nil, ErrNotOpen
	}
	raw, err := ix.getMeta(metaBuildKey)
	if err != nil {
		return ksuid.Nil, ErrNotBuilt
	}
	return ksuid.FromBytes(raw)
}

func (ix *Index) getMeta(key string) ([]byte, error) {
	val, closer, err := ix.db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), val...)
	closer.Close()
	return out, nil
}

// Close shuts down the index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.isOpen {
		return nil
	}
	ix.isOpen = false
	return ix.db.Close()
}
