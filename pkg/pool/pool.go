// Package pool decodes batches of record boundaries in parallel.
//
// Each boundary is decoded independently; there is no ordering
// constraint on execution, only on result assembly, so the batch is
// split into contiguous chunks across a fixed number of workers and
// results land in a preallocated slice at their boundary's index.
package pool

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/dchud/marcstream/pkg/marc"
	"github.com/dchud/marcstream/pkg/scan"
)

// WorkersEnv names the environment variable that overrides the default
// worker count.
const WorkersEnv = "MARCSTREAM_WORKERS"

// Result pairs a decoded record with its per-record error. Exactly one
// of the two is set.
type Result struct {
	Record *marc.Record
	Err    error
}

// DefaultWorkers resolves the worker count: WorkersEnv if set to a
// positive integer, otherwise the number of available CPUs.
func DefaultWorkers() int {
	if v := os.Getenv(WorkersEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}

// DecodeBatch decodes every boundary span of data concurrently and
// returns results in boundary order. workers <= 0 selects
// DefaultWorkers. data is read-only for the duration of the call.
//
// A fault in one decode never takes down the batch: decode errors are
// values, and an unexpected panic in a worker is recovered and
// converted into a per-record error.
func DecodeBatch(boundaries []scan.Boundary, data []byte, workers int) []Result {
	results := make([]Result, len(boundaries))
	if len(boundaries) == 0 {
		return results
	}

	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > len(boundaries) {
		workers = len(boundaries)
	}
	if workers == 1 {
		for i, b := range boundaries {
			results[i] = decodeOne(b, data)
		}
		return results
	}

	var g errgroup.Group
	per := (len(boundaries) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * per
		hi := lo + per
		if hi > len(boundaries) {
			hi = len(boundaries)
		}
		if lo >= hi {
			break
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				results[i] = decodeOne(boundaries[i], data)
			}
			return nil
		})
	}
	// Workers only ever return nil; Wait is purely a join.
	_ = g.Wait()

	return results
}

// decodeOne slices and decodes a single span, catching panics so a
// corrupt boundary cannot terminate the pool.
func decodeOne(b scan.Boundary, data []byte) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: &marc.ParseError{
				Err:    marc.ErrEncoding,
				Offset: b.Offset,
				Detail: fmt.Sprintf("decoder fault: %v", r),
			}}
		}
	}()

	rec, err := marc.Decode(data[b.Offset : b.Offset+b.Length])
	if err != nil {
		return Result{Err: err}
	}
	return Result{Record: rec}
}
