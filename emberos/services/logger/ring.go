package logger

import "sync/atomic"

// MaxLineBytes is the longest line the ring stores; longer lines are cut.
const MaxLineBytes = 120

const ringSlots = 32

type slot struct {
	ready atomic.Bool
	n     uint16
	data  [MaxLineBytes]byte
}

// Ring is a fixed-size multi-producer, single-consumer queue of log lines.
// It never allocates and never blocks, so producers may run in interrupt
// context.
type Ring struct {
	_     [0]func() // prevent accidental copying.
	head  atomic.Uint32
	tail  atomic.Uint32
	slots [ringSlots]slot
}

// TryPut appends a copy of line, returning false if the ring is full.
func (r *Ring) TryPut(line []byte) bool {
	for {
		head := r.head.Load()
		tail := r.tail.Load()
		if head-tail >= ringSlots {
			return false
		}
		// Reserve a slot.
		if !r.head.CompareAndSwap(head, head+1) {
			continue
		}
		s := &r.slots[head%ringSlots]
		s.n = uint16(copy(s.data[:], line))
		s.ready.Store(true)
		return true
	}
}

// TryGet copies the oldest line into dst and returns its length, or false
// if the ring is empty or the oldest line is still being written.
func (r *Ring) TryGet(dst []byte) (int, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return 0, false
	}
	s := &r.slots[tail%ringSlots]
	if !s.ready.Load() {
		return 0, false
	}
	n := copy(dst, s.data[:s.n])
	s.ready.Store(false)
	r.tail.Store(tail + 1)
	return n, true
}

// Len returns the number of queued lines.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}
