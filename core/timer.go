package core

// Timer tick rate. The counter is free running at 500kHz (2us per tick),
// the rate the robot's timing contract was written against.
const (
	TimerFreq = 500000
)

// Fixed activity periods in timer ticks
const (
	ObserveTicks  = 5000  // 10ms, ADC conversion pacing
	ControlTicks  = 50000 // 100ms, duty cycle update
	DisplayTicks  = 25000 // 50ms, LED array refresh and blink phase
	DebounceTicks = 10000 // 20ms, button settle time (one-shot)
)

var (
	systemTicks uint32
	bootTicks   uint32

	clockSource func() uint32
)

// GetTime returns the free-running counter. It wraps every 2^32 ticks
// (about 143 minutes); compare readings with timerIsBefore.
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime latches a new counter reading. Targets call it from the main
// loop; tests and the simulator drive the clock with it.
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// SetClockSource registers the hardware counter read by RefreshTime. Nil
// leaves the clock entirely to SetTime.
func SetClockSource(src func() uint32) {
	clockSource = src
}

// RefreshTime latches the hardware counter, if one is registered, and
// returns the current time. Code that runs while the main loop is blocked
// (pin interrupts, wake from sleep) must not trust the last latched value.
func RefreshTime() uint32 {
	if src := clockSource; src != nil {
		SetTime(src())
	}
	return GetTime()
}

// GetUptime returns ticks elapsed since TimerInit, modulo 2^32
func GetUptime() uint32 {
	return GetTime() - bootTicks
}

// TimerFromMS converts milliseconds to ticks
func TimerFromMS(ms uint32) uint32 {
	return ms * (TimerFreq / 1000)
}

// TimerToMS converts ticks to milliseconds
func TimerToMS(ticks uint32) uint32 {
	return ticks / (TimerFreq / 1000)
}

// TimerInit marks the boot instant
func TimerInit() {
	bootTicks = GetTime()
}

// timerIsBefore reports whether a is before b on the wrapping 32-bit counter
func timerIsBefore(a, b uint32) bool {
	return int32(a-b) < 0
}
