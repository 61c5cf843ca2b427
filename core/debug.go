package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TraceEvent captures one event for post-mortem analysis
type TraceEvent struct {
	EventType uint8  // Event type code
	ID        uint8  // Source, sensor or motor index
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtIRQ           = 1  // Interrupt source serviced
	EvtAlarmMatch    = 2  // Alarm compare matched
	EvtRound         = 3  // Acquisition round published
	EvtClassify      = 4  // Sensor reading classified
	EvtTrip          = 5  // Fault counter crossed its limit
	EvtRecovery      = 6  // Recovery sequence finished
	EvtPress         = 7  // Debounced button press accepted
	EvtPressRejected = 8  // Button edge rejected as bounce
	EvtDriverError   = 9  // Hardware driver returned an error
	EvtShow          = 10 // Light show started
)

const (
	TraceRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled controls whether debug output is active.
	// Disabled by default; enable with set_debug enable=1
	debugEnabled bool = false

	traceRing     [TraceRingSize]TraceEvent
	traceRingHead uint8
	traceEnabled  bool = true
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// SetTraceEnabled turns event capture on or off
func SetTraceEnabled(enabled bool) {
	traceEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent captures an event in the trace ring. It never blocks and is
// safe to call from either interrupt tier.
func RecordEvent(eventType, id uint8, clock, value1, value2 uint32) {
	if !traceEnabled {
		return
	}
	state := disableInterrupts()
	idx := traceRingHead
	traceRing[idx] = TraceEvent{
		EventType: eventType,
		ID:        id,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	traceRingHead = (idx + 1) % TraceRingSize
	restoreInterrupts(state)
}

// TraceEvents returns the captured events, oldest first
func TraceEvents() []TraceEvent {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	out := make([]TraceEvent, 0, TraceRingSize)
	start := traceRingHead
	for i := uint8(0); i < TraceRingSize; i++ {
		evt := traceRing[(start+i)%TraceRingSize]
		if evt.EventType == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

func eventName(t uint8) string {
	switch t {
	case EvtIRQ:
		return "IRQ"
	case EvtAlarmMatch:
		return "ALARM"
	case EvtRound:
		return "ROUND"
	case EvtClassify:
		return "CLASSIFY"
	case EvtTrip:
		return "TRIP!"
	case EvtRecovery:
		return "RECOVERY"
	case EvtPress:
		return "PRESS"
	case EvtPressRejected:
		return "BOUNCE"
	case EvtDriverError:
		return "DRIVER_ERR"
	case EvtShow:
		return "SHOW"
	}
	return "UNKNOWN"
}

// DumpTraceRing outputs the trace ring (call on fault or from the host)
func DumpTraceRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TRACE] === Trace Ring Dump ===")
	for _, evt := range TraceEvents() {
		debugPrintln("[TRACE] " + eventName(evt.EventType) +
			" id=" + itoa(int(evt.ID)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[TRACE] === End Dump ===")
}

// ClearTraceRing clears the trace buffer
func ClearTraceRing() {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	for i := range traceRing {
		traceRing[i] = TraceEvent{}
	}
	traceRingHead = 0
}
