package kernel

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// FaultKind classifies a programming error detected by the kernel.
type FaultKind uint8

const (
	// FaultInterruptContext: a blocking call was made from interrupt context.
	FaultInterruptContext FaultKind = iota + 1
	// FaultThreadPanic: a thread entry panicked. The thread terminates.
	FaultThreadPanic
	// FaultTimerPanic: a software timer callback panicked.
	FaultTimerPanic
	// FaultInterruptPanic: an interrupt handler panicked.
	FaultInterruptPanic
)

func (f FaultKind) String() string {
	switch f {
	case FaultInterruptContext:
		return "blocking call in interrupt context"
	case FaultThreadPanic:
		return "thread panic"
	case FaultTimerPanic:
		return "timer callback panic"
	case FaultInterruptPanic:
		return "interrupt handler panic"
	default:
		return "unknown fault"
	}
}

// FaultInfo describes a fault.
type FaultInfo struct {
	Kind   FaultKind
	Thread ThreadID
	Name   string
	Ticks  uint64
	Value  any
	Stack  []byte
}

func (f FaultInfo) String() string {
	return fmt.Sprintf("%s in thread %d (%s) at tick %d: %v", f.Kind, f.Thread, f.Name, f.Ticks, f.Value)
}

var (
	faultActive atomic.Bool
	faultOnce   sync.Once

	faultHandler atomic.Value // func(FaultInfo)
)

// InFaultMode reports whether the process-wide fault handler has run.
func InFaultMode() bool {
	return faultActive.Load()
}

// SetFaultHandler installs a process-wide fault handler for kernels whose
// Config has no OnFault.
//
// The handler is invoked at most once (on the first fault), with interrupts
// masked. It must not panic or block on kernel objects.
func SetFaultHandler(fn func(FaultInfo)) {
	faultHandler.Store(fn)
}

// triggerFault reports whether a process-wide handler exists.
func triggerFault(info FaultInfo) bool {
	v := faultHandler.Load()
	fn, ok := v.(func(FaultInfo))
	if !ok || fn == nil {
		return false
	}
	faultOnce.Do(func() {
		faultActive.Store(true)
		fn(info)
	})
	return true
}

// fault reports a programming error, with interrupts masked.
func (k *Kernel) fault(kind FaultKind, v any) {
	info := FaultInfo{
		Kind:   kind,
		Thread: k.current,
		Name:   k.threads[k.current].name,
		Ticks:  k.ticks.Load(),
		Value:  v,
		Stack:  captureStack(),
	}
	k.logf("kernel: fault: %s", info)
	if k.cfg.OnFault != nil {
		k.cfg.OnFault(info)
		return
	}
	if triggerFault(info) {
		return
	}
	panic(info.String())
}
