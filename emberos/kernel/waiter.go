package kernel

// Waiter decides how a blocking call behaves when its resource is not
// available: block until it is, fail at once, or block until a deadline.
//
// The variants are Forever, NoWait, For and Until.
type Waiter interface {
	// suspend is called with interrupts masked after the resource was found
	// unavailable. It parks the running thread on l when the variant allows
	// it and returns the outcome of the wait.
	suspend(k *Kernel, l *threadList, reason BlockReason) error
}

type forever struct{}

type noWait struct{}

type deadline struct {
	at       uint64
	relative bool
}

var (
	// Forever blocks until the resource becomes available.
	Forever Waiter = forever{}
	// NoWait never blocks and reports ErrWouldBlock instead.
	NoWait Waiter = noWait{}
)

// For blocks for at most n ticks and then reports ErrTimedOut. For(0)
// times out without blocking.
func For(n uint64) Waiter { return deadline{at: n, relative: true} }

// Until blocks until the tick counter reaches tick and then reports
// ErrTimedOut.
func Until(tick uint64) Waiter { return deadline{at: tick} }

func (forever) suspend(k *Kernel, l *threadList, reason BlockReason) error {
	if err := k.blockable(); err != nil {
		return err
	}
	return k.block(l, reason, 0, false).err()
}

func (noWait) suspend(*Kernel, *threadList, BlockReason) error {
	return ErrWouldBlock
}

func (d deadline) suspend(k *Kernel, l *threadList, reason BlockReason) error {
	if err := k.blockable(); err != nil {
		return err
	}
	at := d.at
	now := k.ticks.Load()
	if d.relative {
		at = after(now, at)
	}
	if at <= now {
		return ErrTimedOut
	}
	return k.block(l, reason, at, true).err()
}
