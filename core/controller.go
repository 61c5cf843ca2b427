package core

// Status classifies one composite measurement
type Status uint8

const (
	StatusNormal Status = iota
	StatusNoSignal
	StatusStopSignal
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusNoSignal:
		return "no_signal"
	case StatusStopSignal:
		return "stop_signal"
	}
	return "unknown"
}

// Steering is the controller output for one Control tick
type Steering struct {
	Right, Left DutyPercent
	Status      Status
}

// steeringTable is indexed by the composite pattern (bit 0 = sensor 1).
// Duties are meaningful only for StatusNormal entries.
var steeringTable = [8]Steering{
	0b000: {Status: StatusNoSignal},
	0b001: {Right: 50, Left: 0, Status: StatusNormal},
	0b010: {Right: 25, Left: 25, Status: StatusNormal},
	0b011: {Right: 35, Left: 15, Status: StatusNormal},
	0b100: {Right: 0, Left: 50, Status: StatusNormal},
	0b101: {Status: StatusNoSignal},
	0b110: {Right: 15, Left: 35, Status: StatusNormal},
	0b111: {Status: StatusStopSignal},
}

// Steer maps a composite measurement to wheel duties and a status.
// Patterns outside the table classify as NoSignal.
func Steer(composite uint8) Steering {
	if int(composite) >= len(steeringTable) {
		return Steering{Status: StatusNoSignal}
	}
	return steeringTable[composite]
}
