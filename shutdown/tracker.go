package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrTrackerClosed is returned when work is started after Close.
	ErrTrackerClosed = errors.New("shutdown: tracker closed")
)

// Tracker counts in-flight extractions so a stop can wait for them to drain.
type Tracker struct {
	wg     sync.WaitGroup
	mu     sync.RWMutex
	active int64
	closed bool
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Start registers one unit of work. When it returns true the caller must
// call Done exactly once.
func (t *Tracker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.wg.Add(1)
	atomic.AddInt64(&t.active, 1)
	return true
}

func (t *Tracker) Done() {
	atomic.AddInt64(&t.active, -1)
	t.wg.Done()
}

// Close rejects new work. Work already started keeps running.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// Wait blocks until all started work is done or ctx ends.
func (t *Tracker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) Active() int64 {
	return atomic.LoadInt64(&t.active)
}

func (t *Tracker) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}
