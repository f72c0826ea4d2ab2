package kernel

// SignalHandler runs in the receiving thread when signal n is delivered.
type SignalHandler func(n int)

// SignalAction associates a signal number with its handler. A nil Handler
// marks a free slot.
type SignalAction struct {
	Signal  int
	Handler SignalHandler
}

// SignalsCatcher is a table of signal handlers stored in memory the caller
// provides. The kernel never grows, copies or frees the storage; the caller
// keeps it alive for as long as the catcher is used.
type SignalsCatcher struct {
	k       *Kernel
	storage []SignalAction
	owner   ThreadID
}

// NewSignalsCatcher returns an empty catcher backed by storage. It can hold
// at most len(storage) handlers.
func NewSignalsCatcher(k *Kernel, storage []SignalAction) *SignalsCatcher {
	for i := range storage {
		storage[i] = SignalAction{}
	}
	return &SignalsCatcher{k: k, storage: storage}
}

// SetHandler associates h with signal n, replacing any previous handler.
// A nil h removes the association. It returns ErrNoSpace when n is new and
// the table is full.
func (c *SignalsCatcher) SetHandler(n int, h SignalHandler) error {
	if !validSignal(n) {
		return ErrInvalidSignal
	}
	k := c.k
	s := k.lock()
	defer k.unlock(s)

	free := -1
	for i := range c.storage {
		a := &c.storage[i]
		if a.Handler == nil {
			if free < 0 {
				free = i
			}
			continue
		}
		if a.Signal == n {
			if h == nil {
				*a = SignalAction{}
			} else {
				a.Handler = h
			}
			return nil
		}
	}
	if h == nil {
		return nil
	}
	if free < 0 {
		return ErrNoSpace
	}
	c.storage[free] = SignalAction{Signal: n, Handler: h}
	return nil
}

// Handler returns the handler associated with n, or nil.
func (c *SignalsCatcher) Handler(n int) SignalHandler {
	k := c.k
	s := k.lock()
	defer k.unlock(s)
	return c.handler(n)
}

// Len returns the number of associations.
func (c *SignalsCatcher) Len() int {
	k := c.k
	s := k.lock()
	defer k.unlock(s)
	n := 0
	for i := range c.storage {
		if c.storage[i].Handler != nil {
			n++
		}
	}
	return n
}

// Cap returns the capacity of the backing storage.
func (c *SignalsCatcher) Cap() int { return len(c.storage) }

func (c *SignalsCatcher) handler(n int) SignalHandler {
	for i := range c.storage {
		if a := &c.storage[i]; a.Handler != nil && a.Signal == n {
			return a.Handler
		}
	}
	return nil
}

// next returns the lowest signal in pending that has a handler.
func (c *SignalsCatcher) next(pending SignalSet) (int, SignalHandler) {
	best := -1
	var h SignalHandler
	for i := range c.storage {
		a := &c.storage[i]
		if a.Handler == nil || !pending.Has(a.Signal) {
			continue
		}
		if best < 0 || a.Signal < best {
			best, h = a.Signal, a.Handler
		}
	}
	return best, h
}
