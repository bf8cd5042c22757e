package fs

import (
	"container/list"
	"context"
	log "log/slog"
	"os"
	"sync"

	"github.com/sharedcode/lss"
)

// HandleFactory creates a fresh file handle for a pool.
type HandleFactory func() (*os.File, error)

// waiter is a single FIFO-ordered claim awaiting a handle.
type waiter struct {
	ch chan *os.File
}

// HandlePool is the bounded, asynchronously awaitable pool of file handles
// of §4.2, one instance per segment per direction (read or write). At most
// capacity handles exist simultaneously; waiters are served FIFO.
type HandlePool struct {
	mu        sync.Mutex
	capacity  int
	openCount int
	idle      []*os.File
	waiters   *list.List // of *waiter
	disposed  bool
	factory   HandleFactory
}

// DefaultCapacity is the default per-segment, per-direction throttle limit
// (§3 HandlePool, §6 "Throttle limit").
const DefaultCapacity = 120

// NewHandlePool constructs a HandlePool with the given capacity (<=0 means
// DefaultCapacity) and handle factory.
func NewHandlePool(capacity int, factory HandleFactory) *HandlePool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &HandlePool{
		capacity: capacity,
		waiters:  list.New(),
		factory:  factory,
	}
}

// TryGet performs a non-blocking claim: returns an idle handle if one is
// immediately available, else (ok=false) without creating one or waiting.
func (p *HandlePool) TryGet() (handle *os.File, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return nil, false
	}
	if n := len(p.idle); n > 0 {
		h := p.idle[n-1]
		p.idle = p.idle[:n-1]
		log.Debug("handle claimed", "via", "try_get", "open", p.openCount)
		return h, true
	}
	return nil, false
}

// GetAsync returns an idle handle, constructs a new one if below capacity,
// or suspends the caller until one is returned by another user. Cancelling
// ctx while suspended never leaks a handle: either the claim is cancelled
// before a handle is reserved for it, or a handle that raced the
// cancellation is returned to the pool rather than dropped (§4.2).
func (p *HandlePool) GetAsync(ctx context.Context) (*os.File, error) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil, lss.Error{Code: lss.PoolDisposed, Err: errPoolDisposed}
	}
	if n := len(p.idle); n > 0 {
		h := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		log.Debug("handle claimed", "via", "idle", "open", p.OpenCount())
		return h, nil
	}
	if p.openCount < p.capacity {
		p.openCount++
		p.mu.Unlock()
		h, err := p.factory()
		if err != nil {
			p.mu.Lock()
			p.openCount--
			p.mu.Unlock()
			return nil, lss.Error{Code: lss.IoError, Err: err}
		}
		log.Debug("handle claimed", "via", "new", "open", p.OpenCount())
		return h, nil
	}

	w := &waiter{ch: make(chan *os.File, 1)}
	elem := p.waiters.PushBack(w)
	p.mu.Unlock()
	log.Debug("handle claim suspended", "via", "wait")

	select {
	case h := <-w.ch:
		log.Debug("handle claimed", "via", "wait")
		return h, nil
	case <-ctx.Done():
		p.mu.Lock()
		// If the waiter is still queued, remove it before a handle is
		// reserved for it — no leak, nothing to return.
		if elem.Value == w && p.removeWaiterLocked(elem) {
			p.mu.Unlock()
			return nil, ctx.Err()
		}
		p.mu.Unlock()
		// A handle was (or is about to be) delivered concurrently with the
		// cancellation; wait for it and return it to the pool unused so it
		// is not leaked.
		h := <-w.ch
		p.Return(h)
		return nil, ctx.Err()
	}
}

func (p *HandlePool) removeWaiterLocked(elem *list.Element) bool {
	for e := p.waiters.Front(); e != nil; e = e.Next() {
		if e == elem {
			p.waiters.Remove(e)
			return true
		}
	}
	return false
}

// Return gives a handle back to the pool, waking one FIFO waiter if any.
// If the pool has been disposed, the handle is closed instead of re-pooled.
func (p *HandlePool) Return(handle *os.File) {
	p.mu.Lock()
	if p.disposed {
		p.openCount--
		p.mu.Unlock()
		handle.Close()
		return
	}
	if front := p.waiters.Front(); front != nil {
		p.waiters.Remove(front)
		w := front.Value.(*waiter)
		p.mu.Unlock()
		log.Debug("handle returned", "woke_waiter", true)
		w.ch <- handle
		return
	}
	p.idle = append(p.idle, handle)
	p.mu.Unlock()
	log.Debug("handle returned", "woke_waiter", false)
}

// Dispose closes all idle handles and marks the pool so that subsequent
// Returns close rather than re-pool their handle (§4.2).
func (p *HandlePool) Dispose() error {
	p.mu.Lock()
	p.disposed = true
	idle := p.idle
	p.idle = nil
	p.openCount -= len(idle)
	p.mu.Unlock()

	var firstErr error
	for _, h := range idle {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenCount reports the number of handles currently constructed (idle plus
// claimed), never exceeding capacity.
func (p *HandlePool) OpenCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.openCount
}
