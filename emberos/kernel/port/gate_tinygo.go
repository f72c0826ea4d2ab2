//go:build tinygo && baremetal

package port

import "runtime/interrupt"

// On hardware the gate also masks real interrupts so that peripheral
// handlers cannot observe half-updated kernel lists.
type hwState = interrupt.State

func maskHW() hwState { return interrupt.Disable() }

func unmaskHW(s hwState) { interrupt.Restore(s) }
