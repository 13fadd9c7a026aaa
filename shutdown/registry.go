package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cv_backend/core"
)

// Cleanup priorities. Lower values run first.
const (
	PriorityEngines   = 10 // OCR clients, HTTP transports
	PriorityDocuments = 20 // open PDF handles
	PriorityFinal     = 40 // log sync, metrics flush
)

type entry struct {
	name     string
	fn       core.ShutdownFunc
	priority int
	seq      int
}

// Registry is an ordered set of cleanup functions. One Registry scopes the
// resources of a single extraction request; main owns another for the process.
//
// Close runs functions by ascending priority. Entries with equal priority run
// in reverse registration order, like deferred calls.
//
// Usage:
//
//	reg := NewRegistry()
//	defer reg.Close(context.Background())
//
//	doc, _ := fitz.NewFromMemory(data)
//	reg.Register("pdf document", PriorityDocuments, func(context.Context) error {
//	    return doc.Close()
//	})
type Registry struct {
	mu      sync.Mutex
	entries []entry
	seq     int
	closed  bool
}

// NewRegistry creates an empty, open Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a cleanup function. Registering on a closed Registry runs fn
// immediately so the resource is never leaked; its error is returned.
func (r *Registry) Register(name string, priority int, fn core.ShutdownFunc) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		if err := fn(context.Background()); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
	r.seq++
	r.entries = append(r.entries, entry{name: name, fn: fn, priority: priority, seq: r.seq})
	r.mu.Unlock()
	return nil
}

// Close runs every registered function once, even if some fail, and returns
// their errors joined. Later calls return nil.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	ordered := r.sortedLocked()
	r.entries = nil
	r.mu.Unlock()

	var errs []error
	for _, e := range ordered {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

// Names returns registered names in the order Close would run them.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ordered := r.sortedLocked()
	names := make([]string, len(ordered))
	for i, e := range ordered {
		names[i] = e.name
	}
	return names
}

// Count returns the number of pending cleanup functions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IsClosed reports whether Close has been called.
func (r *Registry) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Registry) sortedLocked() []entry {
	sorted := make([]entry, len(r.entries))
	copy(sorted, r.entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].priority != sorted[j].priority {
			return sorted[i].priority < sorted[j].priority
		}
		return sorted[i].seq > sorted[j].seq
	})
	return sorted
}
