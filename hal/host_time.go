//go:build !tinygo

package hal

import "time"

// hostTime turns wall clock time observed by the runner loop into a tick
// stream at a fixed rate.
type hostTime struct {
	ch  chan uint64
	seq uint64
	dur time.Duration

	last time.Time
	acc  time.Duration
}

func newHostTime(hz int) *hostTime {
	d := time.Second / time.Duration(hz)
	if d <= 0 {
		d = 1
	}
	return &hostTime{ch: make(chan uint64, 1024), dur: d}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

// step emits the ticks that elapsed since the previous step; the first step
// emits one.
func (t *hostTime) step() {
	t.advance(time.Now())
}

func (t *hostTime) advance(now time.Time) {
	if t.last.IsZero() {
		t.last = now
		t.acc = 0
		t.stepN(1)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	ticks := uint64(t.acc / t.dur)
	if ticks == 0 {
		return
	}
	t.acc %= t.dur
	t.stepN(ticks)
}

// stepN emits n ticks. When the reader falls behind, ticks are dropped
// and the sequence numbers show the gap.
func (t *hostTime) stepN(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}
