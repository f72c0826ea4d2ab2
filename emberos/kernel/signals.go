package kernel

import "math/bits"

// MaxSignals is the number of signal numbers, 0..MaxSignals-1.
const MaxSignals = 32

// SignalSet is a set of signal numbers.
type SignalSet uint32

// AllSignals contains every signal number.
const AllSignals SignalSet = ^SignalSet(0)

// Signals returns the set holding ns. Out of range numbers are ignored.
func Signals(ns ...int) SignalSet {
	var s SignalSet
	for _, n := range ns {
		if validSignal(n) {
			s |= 1 << n
		}
	}
	return s
}

// Has reports whether n is in s.
func (s SignalSet) Has(n int) bool { return validSignal(n) && s&(1<<n) != 0 }

// Lowest returns the smallest number in s, or -1 when s is empty.
func (s SignalSet) Lowest() int {
	if s == 0 {
		return -1
	}
	return bits.TrailingZeros32(uint32(s))
}

func validSignal(n int) bool { return n >= 0 && n < MaxSignals }

// receiver is the per-thread signal state.
type receiver struct {
	pending  SignalSet
	waitMask SignalSet
	catcher  *SignalsCatcher
}

// GenerateSignal marks signal n pending for t.
//
// A thread blocked waiting for n is woken normally. A thread blocked for any
// other reason whose catcher handles n is woken with ErrInterrupted so the
// handler can run. Otherwise the signal stays pending; signals do not queue,
// generating a pending signal again has no further effect. GenerateSignal
// may be called from interrupt context.
func (t Thread) GenerateSignal(n int) error {
	if !validSignal(n) {
		return ErrInvalidSignal
	}
	k := t.k
	s := k.lock()
	defer k.unlock(s)

	tc := &k.threads[t.id]
	if tc.state == StateTerminated {
		return ErrBadState
	}
	bit := SignalSet(1) << n
	tc.signals.pending |= bit
	if tc.state != StateBlocked {
		return nil
	}
	if tc.reason == ReasonSignal && tc.signals.waitMask&bit != 0 {
		k.unblock(t.id, UnblockNormal)
	} else if c := tc.signals.catcher; c != nil && c.handler(n) != nil {
		k.unblock(t.id, UnblockInterrupted)
	}
	return nil
}

// WaitSignals consumes the lowest pending signal in set and returns its
// number. When none is pending it waits as w allows.
func (k *Kernel) WaitSignals(w Waiter, set SignalSet) (int, error) {
	if set == 0 {
		return -1, ErrInvalidSignal
	}
	if err := k.blockable(); err != nil {
		return -1, err
	}
	s := k.lock()
	defer k.unlock(s)

	r := &k.threads[k.current].signals
	if n := (r.pending & set).Lowest(); n >= 0 {
		r.pending &^= 1 << n
		return n, nil
	}
	r.waitMask = set
	err := w.suspend(k, &k.signalWaiters, ReasonSignal)
	r.waitMask = 0
	if err != nil {
		return -1, err
	}
	n := (r.pending & set).Lowest()
	if n < 0 {
		return -1, ErrInterrupted
	}
	r.pending &^= 1 << n
	return n, nil
}

// AcceptSignals consumes the lowest pending signal in set without blocking.
// It returns ErrWouldBlock when none is pending.
func (k *Kernel) AcceptSignals(set SignalSet) (int, error) {
	return k.WaitSignals(NoWait, set)
}

// SetSignalsCatcher installs c as the catcher of the calling thread, or
// removes the current one when c is nil. A catcher serves one thread at a
// time. Signals already pending that c handles run before the call returns.
func (k *Kernel) SetSignalsCatcher(c *SignalsCatcher) error {
	if err := k.blockable(); err != nil {
		return err
	}
	s := k.lock()
	defer k.unlock(s)

	id := k.current
	if c != nil && c.owner != nilThread && c.owner != id {
		return ErrCatcherInUse
	}
	r := &k.threads[id].signals
	if r.catcher != nil {
		r.catcher.owner = nilThread
	}
	r.catcher = c
	if c != nil {
		c.owner = id
	}
	return nil
}

// deliverSignals runs the handlers for signals pending on the running
// thread. It is called with interrupts enabled in thread context; each
// pending bit is cleared before its handler starts.
func (k *Kernel) deliverSignals() {
	for {
		s := k.cpu.Disable()
		id := k.current
		r := &k.threads[id].signals
		if r.catcher == nil || r.pending == 0 {
			k.cpu.Restore(s)
			return
		}
		n, h := r.catcher.next(r.pending)
		if h == nil {
			k.cpu.Restore(s)
			return
		}
		r.pending &^= 1 << n
		k.cpu.Restore(s)
		h(n)
	}
}
