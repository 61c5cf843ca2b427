//go:build tinygo

package core

import "sync/atomic"

// getSystemTicks returns the tick counter last latched from the hardware
// timer. Pin interrupt handlers read it while the main loop updates it.
func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicks)
}

// setSystemTicks latches a new hardware timer reading
func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}
