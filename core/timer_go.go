//go:build !tinygo

package core

import "sync/atomic"

// getSystemTicks returns the current system ticks (regular Go implementation).
// Hosted simulations advance the clock from one goroutine and read it from
// another, so the value is kept atomic here too.
func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicks)
}

// setSystemTicks sets the system ticks (regular Go implementation)
func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}
