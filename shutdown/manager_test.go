package shutdown

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"cv_backend/core"
	"cv_backend/logging"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestManager(t *testing.T, opts ...ManagerOption) (*Manager, *observer.ObservedLogs) {
	t.Helper()
	obsCore, logs := observer.New(zap.DebugLevel)
	return NewManager(logging.NewFromCore(obsCore), opts...), logs
}

func TestManager_RunAndShutdown(t *testing.T) {
	m, _ := newTestManager(t)

	var order []string
	m.Register("log sync", PriorityFinal, recorder(&order, "log sync"))
	m.Register("engine", PriorityEngines, recorder(&order, "engine"))

	called := false
	err := m.Run(context.Background(), "cv.pdf", func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("Run() = %v, called = %v", err, called)
	}

	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	if len(order) != 2 || order[0] != "engine" {
		t.Errorf("cleanup order = %v", order)
	}
	if m.Context().Err() == nil {
		t.Error("context not cancelled after Shutdown")
	}
	if err := m.Run(context.Background(), "late", func(context.Context) error { return nil }); !errors.Is(err, ErrTrackerClosed) {
		t.Errorf("Run() after Shutdown = %v, want ErrTrackerClosed", err)
	}
	if err := m.Shutdown(); err != nil {
		t.Errorf("second Shutdown() = %v", err)
	}
}

func TestManager_FirstSignalCancels(t *testing.T) {
	m, logs := newTestManager(t)

	m.handle(syscall.SIGINT)

	if m.Context().Err() == nil {
		t.Error("context not cancelled by first signal")
	}
	if !m.Interrupted() || m.ExitCode() != core.ExitCodeSIGINT {
		t.Errorf("Interrupted() = %v, ExitCode() = %d", m.Interrupted(), m.ExitCode())
	}
	if logs.FilterMessage("Received signal, finishing current work").Len() != 1 {
		t.Error("missing signal log entry")
	}
	if err := m.Run(context.Background(), "next", func(context.Context) error { return nil }); !errors.Is(err, ErrTrackerClosed) {
		t.Errorf("Run() after signal = %v", err)
	}
}

func TestManager_SecondSignalForcesExit(t *testing.T) {
	code := -1
	m, _ := newTestManager(t, WithExitFunc(func(c int) { code = c }))

	m.handle(syscall.SIGTERM)
	if code != -1 {
		t.Fatal("exit called on first signal")
	}
	m.handle(syscall.SIGINT)
	if code != core.ExitCodeSIGTERM {
		t.Errorf("exit code = %d, want %d", code, core.ExitCodeSIGTERM)
	}
}

func TestManager_ShutdownWaitsForWork(t *testing.T) {
	m, logs := newTestManager(t, WithDrainTimeout(20*time.Millisecond))

	release := make(chan struct{})
	started := make(chan struct{})
	go m.Run(context.Background(), "slow", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	m.Shutdown()
	close(release)

	if logs.FilterMessage("Timed out waiting for in-flight extractions").Len() != 1 {
		t.Error("expected drain timeout warning")
	}
}

func TestManager_ShutdownReportsCleanupErrors(t *testing.T) {
	m, logs := newTestManager(t)
	boom := errors.New("boom")
	m.Register("bad", 1, func(context.Context) error { return boom })

	if err := m.Shutdown(); !errors.Is(err, boom) {
		t.Errorf("Shutdown() = %v, want boom", err)
	}
	if logs.FilterLevelExact(zap.ErrorLevel).Len() != 1 {
		t.Error("expected one error log")
	}
}
