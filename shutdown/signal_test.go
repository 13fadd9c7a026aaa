package shutdown

import (
	"os"
	"syscall"
	"testing"

	"cv_backend/core"
)

func TestSignalCounter_RecordsFirstSignal(t *testing.T) {
	s := NewSignalCounter(0, nil)
	if s.ExitCode() != core.ExitCodeSuccess {
		t.Errorf("ExitCode() before signals = %d", s.ExitCode())
	}

	s.Record(syscall.SIGTERM)
	s.Record(syscall.SIGINT)

	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}
	if s.First() != syscall.SIGTERM {
		t.Errorf("First() = %v, want SIGTERM", s.First())
	}
	if s.ExitCode() != core.ExitCodeSIGTERM {
		t.Errorf("ExitCode() = %d, want %d", s.ExitCode(), core.ExitCodeSIGTERM)
	}
}

func TestSignalCounter_ForceAfter(t *testing.T) {
	forced := 0
	s := NewSignalCounter(2, func() { forced++ })

	s.Record(os.Interrupt)
	if forced != 0 {
		t.Fatal("forced on first signal")
	}
	s.Record(os.Interrupt)
	s.Record(os.Interrupt)
	if forced != 2 {
		t.Errorf("forced = %d, want 2", forced)
	}
}

func TestExitCodeForSignal(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want int
	}{
		{nil, core.ExitCodeSuccess},
		{os.Interrupt, core.ExitCodeSIGINT},
		{syscall.SIGINT, core.ExitCodeSIGINT},
		{syscall.SIGTERM, core.ExitCodeSIGTERM},
		{syscall.SIGHUP, core.ExitCodeError},
	}
	for _, tt := range tests {
		if got := ExitCodeForSignal(tt.sig); got != tt.want {
			t.Errorf("ExitCodeForSignal(%v) = %d, want %d", tt.sig, got, tt.want)
		}
	}
}
