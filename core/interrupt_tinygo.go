//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks both priority tiers and returns the previous
// state. Used around multi-field updates that cross the tier boundary.
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt mask saved by disableInterrupts
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
