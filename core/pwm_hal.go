package core

// DutyPercent is a motor duty cycle in percent (0 = stopped, 100 = full on)
type DutyPercent uint8

// MotorDriver is the abstract differential-drive interface that core code
// uses. Platform-specific implementations own the PWM channels.
type MotorDriver interface {
	// SetDutyCycle sets both wheel duties at once
	SetDutyCycle(right, left DutyPercent) error

	// TurnAround runs the fixed spin-in-place maneuver and leaves both
	// motors stopped. It may block for the duration of the maneuver.
	TurnAround() error
}

// PowerControl puts the core to sleep until the next enabled interrupt.
type PowerControl interface {
	EnterSleep()
}

// Global singletons used by core code.
var (
	motorDriver  MotorDriver
	powerControl PowerControl
)

// SetMotorDriver is called by target-specific code to register its driver.
func SetMotorDriver(d MotorDriver) {
	motorDriver = d
}

// MustMotor returns the configured driver or panics if missing.
func MustMotor() MotorDriver {
	if motorDriver == nil {
		panic("motor driver not configured")
	}
	return motorDriver
}

// SetPowerControl registers the platform sleep hook.
func SetPowerControl(p PowerControl) {
	powerControl = p
}

// MustPower returns the configured sleep hook or panics if missing.
func MustPower() PowerControl {
	if powerControl == nil {
		panic("power control not configured")
	}
	return powerControl
}
