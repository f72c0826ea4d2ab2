package inherit

import (
	"errors"
	"strings"
	"testing"

	"ember/emberos/kernel"
	"ember/emberos/kernel/kerneltest"
)

func TestInheritancePreventsInversion(t *testing.T) {
	const period, p = 10, 6
	k := kerneltest.New(t, kernel.Config{})
	log := &kerneltest.Log{}
	d := New(k, Config{Period: period, Protocol: kernel.ProtocolInherit, Log: log})
	if err := d.Start(p); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	kerneltest.Boot(t, k)

	for i := 0; i < 3*period+3; i++ {
		kerneltest.Advance(k, 1)
	}

	if d.Rounds() != 3 {
		t.Fatalf("Rounds() = %d, want 3", d.Rounds())
	}
	if d.Inversions() != 0 {
		t.Fatalf("Inversions() = %d, want 0", d.Inversions())
	}
	if d.Lent() != p {
		t.Fatalf("Lent() = %d, want %d", d.Lent(), p)
	}
	if len(log.Lines) != 3 || !strings.Contains(log.Lines[0], "order LHM") {
		t.Fatalf("log = %q, want 3 rounds in order LHM", log.Lines)
	}
}

func TestWithoutInheritanceMediumRunsFirst(t *testing.T) {
	const period, p = 10, 6
	k := kerneltest.New(t, kernel.Config{})
	d := New(k, Config{Period: period, Protocol: kernel.ProtocolNone})
	if err := d.Start(p); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	kerneltest.Boot(t, k)

	for i := 0; i < 2*period+3; i++ {
		kerneltest.Advance(k, 1)
	}

	if d.Rounds() != 2 || d.Inversions() != 2 {
		t.Fatalf("Rounds(), Inversions() = %d, %d, want 2, 2", d.Rounds(), d.Inversions())
	}
	if d.Lent() != p-2 {
		t.Fatalf("Lent() = %d, want %d", d.Lent(), p-2)
	}
}

func TestStartValidates(t *testing.T) {
	k := kerneltest.New(t, kernel.Config{})
	if err := New(k, Config{Period: 10}).Start(2); !errors.Is(err, kernel.ErrInvalidPriority) {
		t.Fatalf("Start(2) error = %v, want %v", err, kernel.ErrInvalidPriority)
	}
	if err := New(k, Config{Period: 3}).Start(6); !errors.Is(err, kernel.ErrInvalidConfig) {
		t.Fatalf("Start() with period 3 error = %v, want %v", err, kernel.ErrInvalidConfig)
	}
}
