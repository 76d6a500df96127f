package pipeline

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchud/marcstream/pkg/marc"
	"github.com/dchud/marcstream/pkg/pool"
	"github.com/dchud/marcstream/pkg/source"
)

func encodeRecords(t *testing.T, n int) []byte {
	t.Helper()
	var buf []byte
	for i := 0; i < n; i++ {
		rec := &marc.Record{Fields: []marc.Field{
			{Tag: "001", Value: fmt.Sprintf("pipe%06d", i)},
			{Tag: "245", Ind1: '0', Ind2: '0', Subfields: []marc.Subfield{
				{Code: 'a', Value: fmt.Sprintf("Title %d", i)},
			}},
		}}
		data, err := marc.Encode(rec)
		require.NoError(t, err)
		buf = append(buf, data...)
	}
	return buf
}

// drain consumes results until the stream ends, returning them plus the
// final error.
func drain(p *Pipeline) ([]pool.Result, error) {
	var out []pool.Result
	for {
		res, err := p.Next()
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
}

// countingSource wraps a ByteSource and counts reads. failAfter, when
// non-negative, fails the read once that many bytes have been served.
// The read counter is atomic so tests may watch it while the producer
// goroutine is running.
type countingSource struct {
	inner     source.ByteSource
	reads     atomic.Int64
	served    int
	failAfter int
	err       error
}

func newCountingSource(data []byte) *countingSource {
	return &countingSource{inner: source.NewMemorySource(data), failAfter: -1}
}

func (s *countingSource) Read(maxBytes int) ([]byte, error) {
	s.reads.Add(1)
	if s.failAfter >= 0 && s.served >= s.failAfter {
		return nil, s.err
	}
	if s.failAfter >= 0 && s.served+maxBytes > s.failAfter {
		maxBytes = s.failAfter - s.served
	}
	chunk, err := s.inner.Read(maxBytes)
	s.served += len(chunk)
	return chunk, err
}

func (s *countingSource) Close() error { return s.inner.Close() }

// gatedSource blocks every read until the gate is opened.
type gatedSource struct {
	inner source.ByteSource
	gate  chan struct{}
}

func (s *gatedSource) Read(maxBytes int) ([]byte, error) {
	<-s.gate
	return s.inner.Read(maxBytes)
}

func (s *gatedSource) Close() error { return s.inner.Close() }

func TestPipeline_OrderPreserved(t *testing.T) {
	const n = 300
	data := encodeRecords(t, n)

	// A small chunk size forces records to straddle read boundaries.
	p, err := New(source.NewMemorySource(data), WithChunkSize(64), WithWorkers(4))
	require.NoError(t, err)

	results, err := drain(p)
	assert.ErrorIs(t, err, ErrExhausted)
	require.Len(t, results, n)
	for i, res := range results {
		require.NoError(t, res.Err)
		cn, _ := res.Record.ControlValue("001")
		assert.Equal(t, fmt.Sprintf("pipe%06d", i), cn)
	}
}

func TestPipeline_ExhaustedIdempotent(t *testing.T) {
	p, err := New(source.NewMemorySource(encodeRecords(t, 2)))
	require.NoError(t, err)

	results, err := drain(p)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Len(t, results, 2)

	for i := 0; i < 3; i++ {
		_, err := p.Next()
		assert.ErrorIs(t, err, ErrExhausted)
	}
}

func TestPipeline_IsolatedCorruption(t *testing.T) {
	const n = 20
	data := encodeRecords(t, n)
	recordSize := len(data) / n
	copy(data[7*recordSize:], "xxxxx")

	p, err := New(source.NewMemorySource(data), WithChunkSize(128))
	require.NoError(t, err)

	results, err := drain(p)
	assert.ErrorIs(t, err, ErrExhausted)
	require.Len(t, results, n)
	for i, res := range results {
		if i == 7 {
			assert.ErrorIs(t, res.Err, marc.ErrInvalidLengthHeader)
			continue
		}
		require.NoErrorf(t, res.Err, "record %d", i)
		cn, _ := res.Record.ControlValue("001")
		assert.Equal(t, fmt.Sprintf("pipe%06d", i), cn)
	}
}

func TestPipeline_TrailingGarbage(t *testing.T) {
	data := append(encodeRecords(t, 3), []byte("no terminator")...)

	p, err := New(source.NewMemorySource(data))
	require.NoError(t, err)

	results, err := drain(p)
	assert.ErrorIs(t, err, ErrExhausted)
	require.Len(t, results, 4)
	assert.ErrorIs(t, results[3].Err, marc.ErrMissingTerminator)
}

func TestPipeline_StreamErrorSurfacedOnce(t *testing.T) {
	data := encodeRecords(t, 6)
	recordSize := len(data) / 6

	src := newCountingSource(data)
	src.failAfter = recordSize * 2
	src.err = errors.New("disk pulled")

	p, err := New(src, WithChunkSize(recordSize))
	require.NoError(t, err)

	results, err := drain(p)
	require.EqualError(t, err, "disk pulled")
	assert.Len(t, results, 2, "records completed before the fault are delivered")

	// The terminal error is consumed; afterwards the stream is merely
	// exhausted.
	_, err = p.Next()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestPipeline_Backpressure(t *testing.T) {
	const n = 100
	data := encodeRecords(t, n)
	recordSize := len(data) / n

	src := newCountingSource(data)
	p, err := New(src, WithChunkSize(recordSize), WithChannelCapacity(2))
	require.NoError(t, err)
	defer p.Close()

	// With nobody consuming, the producer fills the channel and blocks
	// on the next send instead of reading ahead.
	require.Eventually(t, func() bool { return src.reads.Load() >= 2 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, src.reads.Load(), int64(4), "producer must stall once the channel is full")

	results, err := drain(p)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Len(t, results, n)
}

func TestPipeline_BackpressureLargeStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large-stream backpressure test in short mode")
	}

	// With a stalled consumer the producer's read count is bounded by
	// the channel capacity, independent of stream length.
	const n = 100_000
	data := encodeRecords(t, n)
	recordSize := len(data) / n

	src := newCountingSource(data)
	p, err := New(src, WithChunkSize(recordSize), WithChannelCapacity(4))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return src.reads.Load() >= 4 }, 5*time.Second, time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, src.reads.Load(), int64(6),
		"reads must track channel capacity, not the %d-record stream", n)

	require.NoError(t, p.Close())
	for {
		if _, err := p.Next(); err != nil {
			assert.ErrorIs(t, err, ErrExhausted)
			break
		}
	}
}

func TestPipeline_CloseUnblocksConsumer(t *testing.T) {
	data := encodeRecords(t, 1000)

	p, err := New(source.NewMemorySource(data), WithChunkSize(256), WithChannelCapacity(2))
	require.NoError(t, err)

	// Take a couple of records, then abandon the stream.
	_, err = p.Next()
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "Close is idempotent")

	// Buffered results drain, then the consumer unblocks with
	// ErrExhausted rather than deadlocking.
	for {
		_, err := p.Next()
		if err != nil {
			assert.ErrorIs(t, err, ErrExhausted)
			return
		}
	}
}

func TestPipeline_TryNext(t *testing.T) {
	data := encodeRecords(t, 3)
	gate := make(chan struct{})
	src := &gatedSource{inner: source.NewMemorySource(data), gate: gate}

	p, err := New(src)
	require.NoError(t, err)

	// Nothing produced yet: not ready, but not an error either.
	res, ok, err := p.TryNext()
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Nil(t, res.Record)

	close(gate)

	var got int
	deadline := time.Now().Add(5 * time.Second)
	for {
		res, ok, err := p.TryNext()
		if err != nil {
			assert.ErrorIs(t, err, ErrExhausted)
			break
		}
		if ok {
			require.NoError(t, res.Err)
			got++
			continue
		}
		if time.Now().After(deadline) {
			t.Fatal("pipeline did not drain in time")
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 3, got)
}

func TestPipeline_OptionValidation(t *testing.T) {
	src := source.NewMemorySource(nil)

	_, err := New(src, WithChunkSize(0))
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	_, err = New(src, WithChannelCapacity(-1))
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New(src, WithWorkers(-1))
	assert.ErrorIs(t, err, ErrInvalidWorkers)
}

func TestPipeline_Metrics(t *testing.T) {
	const n = 10
	data := encodeRecords(t, n)
	recordSize := len(data) / n
	copy(data[4*recordSize:], "xxxxx")

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	p, err := New(source.NewMemorySource(data), WithMetrics(m))
	require.NoError(t, err)

	results, err := drain(p)
	assert.ErrorIs(t, err, ErrExhausted)
	require.Len(t, results, n)

	assert.Equal(t, float64(n-1), testutil.ToFloat64(m.recordsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.parseErrorsTotal))
	assert.Equal(t, float64(len(data)), testutil.ToFloat64(m.bytesReadTotal))
}
