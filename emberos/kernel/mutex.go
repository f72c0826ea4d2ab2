package kernel

import "math"

// MutexType selects how a mutex treats relocking by its owner.
type MutexType uint8

const (
	// MutexNormal reports ErrDeadlock when the owner locks it again.
	MutexNormal MutexType = iota
	// MutexErrorChecking behaves like MutexNormal; it exists so callers can
	// state that they rely on the error.
	MutexErrorChecking
	// MutexRecursive may be locked again by its owner, which must unlock it
	// as many times.
	MutexRecursive
)

func (t MutexType) String() string {
	switch t {
	case MutexNormal:
		return "normal"
	case MutexErrorChecking:
		return "errorcheck"
	case MutexRecursive:
		return "recursive"
	default:
		return "unknown"
	}
}

// Protocol selects the priority protocol of a mutex.
type Protocol uint8

const (
	ProtocolNone Protocol = iota
	// ProtocolInherit raises the owner to the highest effective priority of
	// its waiters until it unlocks.
	ProtocolInherit
)

func (p Protocol) String() string {
	switch p {
	case ProtocolNone:
		return "none"
	case ProtocolInherit:
		return "inherit"
	default:
		return "unknown"
	}
}

const maxRecursion = math.MaxUint16

// Mutex is a lock owned by the thread that acquired it. Waiters are served
// in FIFO order and ownership passes directly to the next waiter.
type Mutex struct {
	k        *Kernel
	typ      MutexType
	protocol Protocol

	owner     ThreadID
	depth     uint16
	waiters   threadList
	nextOwned *Mutex
}

// NewMutex returns an unlocked mutex.
func NewMutex(k *Kernel, typ MutexType, protocol Protocol) *Mutex {
	return &Mutex{k: k, typ: typ, protocol: protocol}
}

// Lock acquires m, blocking as w allows while another thread owns it.
// Mutexes cannot be used from interrupt context.
func (m *Mutex) Lock(w Waiter) error {
	k := m.k
	if err := k.blockable(); err != nil {
		return err
	}
	s := k.lock()
	defer k.unlock(s)
	return m.take(w)
}

// Unlock releases m. Only the owner may unlock it.
func (m *Mutex) Unlock() error {
	k := m.k
	s := k.lock()
	defer k.unlock(s)

	if k.cpu.InInterrupt() || m.owner != k.current || m.owner == nilThread {
		return ErrNotOwner
	}
	if m.depth > 1 {
		m.depth--
		return nil
	}
	m.release()
	return nil
}

// Owner returns the owning thread, if any.
func (m *Mutex) Owner() (Thread, bool) {
	m.k.cpu.Lock()
	defer m.k.cpu.Unlock()
	if m.owner == nilThread {
		return Thread{}, false
	}
	return Thread{k: m.k, id: m.owner}, true
}

func (m *Mutex) take(w Waiter) error {
	k := m.k
	cur := k.current
	switch m.owner {
	case nilThread:
		m.acquire(cur)
		return nil
	case cur:
		if m.typ != MutexRecursive {
			return ErrDeadlock
		}
		if m.depth == maxRecursion {
			return ErrRecursionLimit
		}
		m.depth++
		return nil
	}

	t := &k.threads[cur]
	t.waitingOn = m
	if err := w.suspend(k, &m.waiters, ReasonMutex); err != nil {
		t.waitingOn = nil
		return err
	}
	return nil
}

func (m *Mutex) acquire(id ThreadID) {
	t := &m.k.threads[id]
	m.owner = id
	m.depth = 1
	m.nextOwned = t.owned
	t.owned = m
	if m.protocol == ProtocolInherit && !m.waiters.empty() {
		m.k.updateInheritance(id)
	}
}

// release gives up ownership, reverts any inherited priority and hands the
// mutex to the longest waiting thread.
func (m *Mutex) release() {
	k := m.k
	prev := m.owner
	t := &k.threads[prev]
	for pp := &t.owned; *pp != nil; pp = &(*pp).nextOwned {
		if *pp == m {
			*pp = m.nextOwned
			break
		}
	}
	m.nextOwned = nil
	m.owner = nilThread
	m.depth = 0
	k.updateInheritance(prev)

	if id := k.popFront(&m.waiters); id != nilThread {
		k.unblock(id, UnblockNormal)
		m.acquire(id)
	}
}
