package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cv_backend/core"
	"cv_backend/logging"

	"go.uber.org/zap"
)

// Manager ties the process lifecycle together for the CLI: it listens for
// SIGINT and SIGTERM, cancels its context on the first one, tracks in-flight
// extractions and runs the process cleanup registry on Shutdown.
//
// A second signal exits immediately with the signal's exit code.
type Manager struct {
	logger *logging.Logger
	drain  time.Duration
	exit   func(int)

	mu      sync.Mutex
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *Tracker
	registry *Registry
	signals  *SignalCounter
	sigChan  chan os.Signal
}

type ManagerOption func(*Manager)

// WithDrainTimeout bounds how long Shutdown waits for in-flight work.
func WithDrainTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.drain = d
	}
}

// WithExitFunc replaces os.Exit for the forced path.
func WithExitFunc(exit func(int)) ManagerOption {
	return func(m *Manager) {
		m.exit = exit
	}
}

func NewManager(logger *logging.Logger, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		logger:   logging.OrNop(logger),
		drain:    30 * time.Second,
		exit:     os.Exit,
		ctx:      ctx,
		cancel:   cancel,
		tracker:  NewTracker(),
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 2),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.signals = NewSignalCounter(2, func() {
		m.logger.Warn("Received second signal, exiting without cleanup")
		m.exit(ExitCodeForSignal(m.signals.first))
	})
	return m
}

// Context is cancelled on the first signal or on Shutdown.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a process-level cleanup function.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	if err := m.registry.Register(name, priority, fn); err != nil {
		m.logger.Warn("Cleanup ran immediately after shutdown", zap.String("name", name), zap.Error(err))
		return
	}
	m.logger.Debug("Registered cleanup", zap.String("name", name), zap.Int("priority", priority))
}

// Start begins listening for signals. Calling it twice is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			m.handle(sig)
		}
	}()
}

func (m *Manager) handle(sig os.Signal) {
	if m.signals.Record(sig) == 1 {
		m.logger.Info("Received signal, finishing current work",
			zap.String("signal", sig.String()),
		)
		m.tracker.Close()
		m.cancel()
	}
}

// Run executes fn as tracked work. It is rejected once a stop has begun.
func (m *Manager) Run(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Start() {
		m.logger.Debug("Work rejected, shutting down", zap.String("work", name))
		return ErrTrackerClosed
	}
	defer m.tracker.Done()

	if err := ctx.Err(); err != nil {
		return err
	}
	if m.ctx.Err() != nil {
		return context.Canceled
	}
	return fn(ctx)
}

// Shutdown stops accepting work, waits up to the drain timeout for in-flight
// work and runs the cleanup registry. Only the first call does anything.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	started := m.started
	m.mu.Unlock()

	startTime := time.Now()
	m.tracker.Close()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), m.drain)
	if err := m.tracker.Wait(waitCtx); err != nil {
		m.logger.Warn("Timed out waiting for in-flight extractions",
			zap.Int64("remaining", m.tracker.Active()),
			zap.Duration("waited", time.Since(startTime)),
		)
	}
	cancelWait()
	m.cancel()

	cleanupCtx, cancelCleanup := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCleanup()

	m.logger.Debug("Running cleanup", zap.Strings("handlers", m.registry.Names()))
	err := m.registry.Close(cleanupCtx)
	if err != nil {
		m.logger.Error("Cleanup finished with errors", zap.Error(err))
	}

	if started {
		signal.Stop(m.sigChan)
		close(m.sigChan)
	}
	return err
}

// ExitCode returns the signal exit code, or 0 when no signal arrived.
func (m *Manager) ExitCode() int {
	return m.signals.ExitCode()
}

// Interrupted reports whether a signal has been received.
func (m *Manager) Interrupted() bool {
	return m.signals.Count() > 0
}

func (m *Manager) ActiveWork() int64 {
	return m.tracker.Active()
}
