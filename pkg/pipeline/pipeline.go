// Package pipeline streams decoded records from a thread-safe byte
// source through a bounded channel.
//
// One producer goroutine reads fixed-size chunks, finds record
// boundaries, decodes each batch on the parallel pool, and sends
// results in stream order. The channel bound is the backpressure
// mechanism: a slow consumer blocks the producer on send, so resident
// memory stays capped at roughly channel capacity times average record
// size regardless of stream length.
package pipeline

import (
	"errors"
	"io"
	"sync"

	"github.com/dchud/marcstream/pkg/marc"
	"github.com/dchud/marcstream/pkg/pool"
	"github.com/dchud/marcstream/pkg/scan"
	"github.com/dchud/marcstream/pkg/source"
)

// ErrExhausted is the sentinel result of Next and TryNext once the
// stream has ended and the channel is drained. It is returned
// indefinitely; the pipeline never re-enters I/O after reporting it.
var ErrExhausted = errors.New("pipeline exhausted")

// Pipeline is a producer-consumer decode pipeline over an OS file or
// in-memory source. Per-record parse errors flow through the channel
// as result values; only a stream-level failure (unreadable source)
// surfaces through Next's error return, exactly once.
type Pipeline struct {
	src source.ByteSource
	cfg config

	out  chan pool.Result
	done chan struct{}

	closeOnce sync.Once

	mu           sync.Mutex
	termErr      error
	termErrTaken bool
}

// New starts a pipeline over src. The pipeline takes ownership of src
// and closes it when the producer stops. Option validation errors are
// raised here, before any I/O begins.
func New(src source.ByteSource, opts ...Option) (*Pipeline, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	p := &Pipeline{
		src:  src,
		cfg:  cfg,
		out:  make(chan pool.Result, cfg.capacity),
		done: make(chan struct{}),
	}
	go p.produce()
	return p, nil
}

// produce is the single producer goroutine. It exits on source
// exhaustion, on a stream-level error, or when Close is observed at a
// chunk read or channel send.
func (p *Pipeline) produce() {
	defer close(p.out)
	defer p.src.Close()

	var pending []byte
	for {
		select {
		case <-p.done:
			return
		default:
		}

		chunk, err := p.src.Read(p.cfg.chunkSize)
		if len(chunk) > 0 {
			p.cfg.metrics.addBytes(len(chunk))
			pending = append(pending, chunk...)
		}

		boundaries, consumed := scan.ScanLimited(pending, -1)
		results := pool.DecodeBatch(boundaries, pending[:consumed], p.cfg.workers)
		for i := range results {
			if !p.send(results[i]) {
				return
			}
		}
		pending = append([]byte(nil), pending[consumed:]...)

		if err == io.EOF {
			if len(pending) > 0 {
				p.send(pool.Result{Err: &marc.ParseError{
					Err:    marc.ErrMissingTerminator,
					Offset: len(pending),
					Detail: "unterminated record at end of stream",
				}})
			}
			return
		}
		if err != nil {
			p.mu.Lock()
			p.termErr = err
			p.mu.Unlock()
			return
		}
	}
}

// send delivers one result, blocking for backpressure. It reports
// false when the pipeline was closed instead.
func (p *Pipeline) send(res pool.Result) bool {
	p.cfg.metrics.recordResult(res.Err != nil)
	select {
	case p.out <- res:
		p.cfg.metrics.setDepth(len(p.out))
		return true
	case <-p.done:
		return false
	}
}

// Next returns the next decoded record or per-record error, blocking
// while the channel is empty and the producer is still running. At end
// of stream it returns the terminal stream error once, if there was
// one, then ErrExhausted forever.
func (p *Pipeline) Next() (pool.Result, error) {
	res, ok := <-p.out
	if ok {
		p.cfg.metrics.setDepth(len(p.out))
		return res, nil
	}
	return pool.Result{}, p.drainErr()
}

// TryNext is the non-blocking variant of Next. The second return is
// false when no record was available, either because none is buffered
// yet (nil error) or because the stream ended (ErrExhausted or the
// terminal stream error).
func (p *Pipeline) TryNext() (pool.Result, bool, error) {
	select {
	case res, ok := <-p.out:
		if ok {
			p.cfg.metrics.setDepth(len(p.out))
			return res, true, nil
		}
		return pool.Result{}, false, p.drainErr()
	default:
		return pool.Result{}, false, nil
	}
}

// drainErr resolves the post-close result: the terminal error exactly
// once, ErrExhausted afterwards.
func (p *Pipeline) drainErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.termErr != nil && !p.termErrTaken {
		p.termErrTaken = true
		return p.termErr
	}
	return ErrExhausted
}

// Close stops the producer promptly: it observes closure at its next
// chunk read or channel send, closes the source, and releases the
// channel. Consumers blocked in Next unblock with ErrExhausted once
// buffered results drain; Close never deadlocks them.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}
