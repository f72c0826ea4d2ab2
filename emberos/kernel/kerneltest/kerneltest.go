// Package kerneltest drives a kernel from tests: the test goroutine plays
// the role of the hardware, raising ticks and interrupts and waiting for the
// core to go idle between steps.
package kerneltest

import (
	"testing"

	"ember/emberos/kernel"
)

// New returns a kernel whose faults fail the test unless cfg.OnFault is set.
func New(t testing.TB, cfg kernel.Config) *kernel.Kernel {
	t.Helper()
	if cfg.OnFault == nil {
		cfg.OnFault = func(f kernel.FaultInfo) { t.Errorf("unexpected fault: %s", f) }
	}
	k, err := kernel.New(cfg)
	if err != nil {
		t.Fatalf("kernel.New() error = %v", err)
	}
	return k
}

// Boot starts k and waits until every thread is blocked.
func Boot(t testing.TB, k *kernel.Kernel) {
	t.Helper()
	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	k.WaitIdle()
}

// Advance raises n ticks and waits until the core is idle.
func Advance(k *kernel.Kernel, n int) {
	var seq uint64
	for i := 0; i < n; i++ {
		seq = k.RaiseTick()
	}
	k.WaitHandled(seq)
	k.WaitIdle()
}

// Interrupt runs fn in interrupt context and waits until the core is idle.
func Interrupt(k *kernel.Kernel, fn func()) {
	k.WaitHandled(k.RaiseInterrupt(fn))
	k.WaitIdle()
}

// Log collects lines written through hal.Logger. It is not safe for use by
// more than one kernel.
type Log struct {
	Lines []string
}

func (l *Log) WriteLineString(s string) { l.Lines = append(l.Lines, s) }
func (l *Log) WriteLineBytes(b []byte)  { l.Lines = append(l.Lines, string(b)) }
