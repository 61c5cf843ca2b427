package core

import "tinygo.org/x/drivers"

// DisplayWriter accepts one byte for the LED array. It must not block: the
// byte is transmitted when the bus is free.
type DisplayWriter interface {
	WriteDisplayByte(b byte) error
}

// LatchPin drives the storage-register clock of the shift register chain.
type LatchPin interface {
	Set(high bool)
}

// Global singletons used by core code.
var (
	displayBus   drivers.SPI
	displayLatch LatchPin
)

// SetDisplayBus is called by target-specific code to register the bus the
// LED shift register hangs off, together with its latch pin.
func SetDisplayBus(bus drivers.SPI, latch LatchPin) {
	displayBus = bus
	displayLatch = latch
}

// MustDisplayBus returns the configured bus or panics if missing.
func MustDisplayBus() (drivers.SPI, LatchPin) {
	if displayBus == nil || displayLatch == nil {
		panic("display bus not configured")
	}
	return displayBus, displayLatch
}
