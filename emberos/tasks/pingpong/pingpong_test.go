package pingpong

import (
	"strings"
	"testing"

	"ember/emberos/kernel"
	"ember/emberos/kernel/kerneltest"
)

func TestRoundsFollowPeriod(t *testing.T) {
	const period = 5
	k := kerneltest.New(t, kernel.Config{})
	log := &kerneltest.Log{}
	pp := New(k, log, period)
	if err := pp.Start(4); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	kerneltest.Boot(t, k)

	if pp.Rounds() != 1 {
		t.Fatalf("Rounds() after boot = %d, want 1", pp.Rounds())
	}
	for i := 1; i <= 12; i++ {
		kerneltest.Advance(k, period)
		if got, want := pp.Rounds(), uint32(1+i); got != want {
			t.Fatalf("Rounds() after %d ticks = %d, want %d", i*period, got, want)
		}
	}
	if len(log.Lines) != 1 || !strings.HasPrefix(log.Lines[0], "pingpong: 10 rounds") {
		t.Fatalf("log = %q, want one line for round 10", log.Lines)
	}
}

func TestStartRejectsZeroPeriod(t *testing.T) {
	k := kerneltest.New(t, kernel.Config{})
	if err := New(k, nil, 0).Start(4); err == nil {
		t.Fatal("Start() with zero period error = nil")
	}
}
