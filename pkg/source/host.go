package source

import (
	"errors"
	"sync"
)

// ErrLockNotHeld is returned when a host-managed read is attempted
// with a released or foreign token.
var ErrLockNotHeld = errors.New("host lock not held")

// Token proves the holder has acquired a Locker. Only Acquire creates
// valid tokens and Release invalidates them, so code paths that touch
// host-owned objects cannot be reached without going through the lock.
// Phase-2 work (decoding) takes no Token parameter anywhere, which is
// the compile-visible guarantee that it runs lock-free.
type Token struct {
	locker Locker
}

// Valid reports whether the token is still live against its locker.
func (t *Token) Valid() bool {
	return t != nil && t.locker != nil
}

// Locker models a host environment's exclusive-execution contract:
// only one thread may be actively calling into host-owned objects at a
// time. Acquire blocks until exclusive access is granted and returns
// the proof token; Release invalidates the token and yields access.
type Locker interface {
	Acquire() *Token
	Release(*Token)
}

// HostLock is a process-local Locker backed by a mutex. Embedding
// layers that bridge to a real host runtime substitute their own
// Locker; the pipeline only ever sees the interface.
type HostLock struct {
	mu sync.Mutex
}

func (l *HostLock) Acquire() *Token {
	l.mu.Lock()
	return &Token{locker: l}
}

func (l *HostLock) Release(t *Token) {
	if t == nil || t.locker != l {
		return
	}
	t.locker = nil
	l.mu.Unlock()
}

// NopLocker satisfies Locker for backends that need no host lock
// (files and memory buffers). Tokens it hands out are valid until
// released but guard nothing.
type NopLocker struct{}

func (NopLocker) Acquire() *Token { return &Token{locker: NopLocker{}} }

func (NopLocker) Release(t *Token) {
	if t != nil {
		t.locker = nil
	}
}

// HostStream is the host-managed byte stream contract. Every read must
// present a valid token; implementations are not thread-safe and are
// read by exactly one goroutine at a time, which the token discipline
// enforces.
type HostStream interface {
	ReadLocked(tok *Token, maxBytes int) ([]byte, error)
	Close() error
}

// LockedSource is a ByteSource whose reads require the host lock. The
// batch reader drives these: it acquires the token for the raw-read
// phase and releases it before decoding.
type LockedSource interface {
	ReadLocked(tok *Token, maxBytes int) ([]byte, error)
	Close() error
}

// NewHostSource wraps a host-managed stream as a LockedSource.
func NewHostSource(stream HostStream) LockedSource {
	return hostSource{stream}
}

type hostSource struct {
	stream HostStream
}

func (s hostSource) ReadLocked(tok *Token, maxBytes int) ([]byte, error) {
	if !tok.Valid() {
		return nil, ErrLockNotHeld
	}
	return s.stream.ReadLocked(tok, maxBytes)
}

func (s hostSource) Close() error { return s.stream.Close() }

// Locked adapts a thread-safe ByteSource to the LockedSource shape, so
// the batch reader serves all three backends through one code path.
// The token is required but unused: file and memory reads never touch
// host objects.
func Locked(src ByteSource) LockedSource {
	return lockedAdapter{src}
}

type lockedAdapter struct {
	src ByteSource
}

func (a lockedAdapter) ReadLocked(tok *Token, maxBytes int) ([]byte, error) {
	if !tok.Valid() {
		return nil, ErrLockNotHeld
	}
	return a.src.Read(maxBytes)
}

func (a lockedAdapter) Close() error { return a.src.Close() }
