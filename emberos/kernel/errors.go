package kernel

import "errors"

// Outcomes of blocking calls.
var (
	// ErrWouldBlock is returned by NoWait when the resource is unavailable.
	ErrWouldBlock = errors.New("kernel: resource unavailable")
	// ErrTimedOut is returned when a timed wait reaches its deadline.
	ErrTimedOut = errors.New("kernel: timed out")
	// ErrInterrupted is returned when a waiter was released by Thread.Interrupt
	// or by a signal with an installed handler, not by the resource.
	ErrInterrupted = errors.New("kernel: interrupted")
)

// Contract violations.
var (
	ErrInterruptContext = errors.New("kernel: not allowed in interrupt context")
	ErrNotStarted       = errors.New("kernel: scheduler not started")
	ErrStarted          = errors.New("kernel: scheduler already started")
	ErrNotOwner         = errors.New("kernel: mutex not owned by caller")
	ErrDeadlock         = errors.New("kernel: operation would deadlock")
	ErrTimerRunning     = errors.New("kernel: timer already running")
	ErrBadState         = errors.New("kernel: thread in wrong state")
	ErrInvalidSignal    = errors.New("kernel: invalid signal number")
	ErrInvalidPriority  = errors.New("kernel: invalid priority")
	ErrInvalidConfig    = errors.New("kernel: invalid configuration")
	ErrStackTooSmall    = errors.New("kernel: stack region too small")
	ErrNoEntry          = errors.New("kernel: thread has no entry function")
	ErrCatcherInUse     = errors.New("kernel: signals catcher installed on another thread")
)

// Resource exhaustion.
var (
	ErrNoThreadSlots  = errors.New("kernel: no free thread slots")
	ErrNoSpace        = errors.New("kernel: signals catcher storage full")
	ErrOverflow       = errors.New("kernel: semaphore at maximum value")
	ErrRecursionLimit = errors.New("kernel: mutex recursion limit reached")
)
