package shutdown

import (
	"os"
	"sync"
	"syscall"

	"cv_backend/core"
)

// SignalCounter tracks repeated interrupt signals. The first one starts a
// graceful stop; reaching forceAfter invokes onForce.
//
// The first signal received is remembered so the CLI can exit with the
// conventional 130 (SIGINT) or 143 (SIGTERM) code.
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	first      os.Signal
	forceAfter int
	onForce    func()
}

// NewSignalCounter creates a counter. A forceAfter below 1 never forces.
func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	return &SignalCounter{
		forceAfter: forceAfter,
		onForce:    onForce,
	}
}

// Record counts sig and returns the new count. The force callback runs
// while holding the lock, so it should exit the process or return quickly.
func (s *SignalCounter) Record(sig os.Signal) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.first == nil {
		s.first = sig
	}
	if s.forceAfter > 0 && s.count >= s.forceAfter && s.onForce != nil {
		s.onForce()
	}
	return s.count
}

// Count returns how many signals have been recorded.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// First returns the first recorded signal, or nil.
func (s *SignalCounter) First() os.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.first
}

// ExitCode maps the first signal to a process exit code. It returns
// core.ExitCodeSuccess when no signal was recorded.
func (s *SignalCounter) ExitCode() int {
	return ExitCodeForSignal(s.First())
}

// ExitCodeForSignal returns 130 for SIGINT, 143 for SIGTERM, 1 for any other
// signal and 0 for nil.
func ExitCodeForSignal(sig os.Signal) int {
	switch sig {
	case nil:
		return core.ExitCodeSuccess
	case syscall.SIGINT:
		return core.ExitCodeSIGINT
	case syscall.SIGTERM:
		return core.ExitCodeSIGTERM
	default:
		return core.ExitCodeError
	}
}
