package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
	ConfigureInputPullUp(pin GPIOPin) error

	// ConfigureInputPullDown configures a pin as a digital input with pull-down resistor
	ConfigureInputPullDown(pin GPIOPin) error

	// ReadPin reads the current pin state
	ReadPin(pin GPIOPin) bool
}

// PhaseReader samples both encoder phase pairs at once.
// Bits 0-1 hold encoder A (phase A in bit 1), bits 2-3 hold encoder B.
type PhaseReader interface {
	ReadPhases() uint8
}

// Global singletons used by core code.
var (
	gpioDriver  GPIODriver
	phaseReader PhaseReader
)

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}

// SetPhaseReader registers the encoder phase sampler.
func SetPhaseReader(r PhaseReader) {
	phaseReader = r
}

// MustPhaseReader returns the configured sampler or panics if missing.
func MustPhaseReader() PhaseReader {
	if phaseReader == nil {
		panic("encoder phase reader not configured")
	}
	return phaseReader
}
