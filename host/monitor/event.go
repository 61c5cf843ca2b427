package monitor

import (
	"fmt"

	"linebot/protocol"
)

// EventKind says which robot message an Event came from
type EventKind uint8

const (
	KindStatus EventKind = iota
	KindFault
	KindCommand
)

func (k EventKind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindFault:
		return "fault"
	case KindCommand:
		return "command"
	}
	return "unknown"
}

// Event is one decoded robot message
type Event struct {
	Kind   EventKind
	Status protocol.StatusMessage // KindStatus
	Value  uint8                  // fault kind, or go flag
	Clock  uint32
}

// State and status names as the robot numbers them
var (
	stateNames  = []string{"starting", "paused", "delivering", "recovering", "sleeping"}
	statusNames = []string{"normal", "no_signal", "stop_signal"}
	faultNames  = map[uint8]string{1: "lost", 2: "stop"}
)

func name(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("?%d", v)
}

// DecodeEvent decodes the arguments of message cmdID
func DecodeEvent(cmdID uint16, data *[]byte) (Event, error) {
	switch cmdID {
	case protocol.MsgStatus:
		s, err := protocol.DecodeStatus(data)
		if err != nil {
			return Event{}, fmt.Errorf("monitor: status: %w", err)
		}
		return Event{Kind: KindStatus, Status: s, Clock: s.Clock}, nil
	case protocol.MsgFault, protocol.MsgCommand:
		m, err := protocol.DecodeEvent(data)
		if err != nil {
			return Event{}, fmt.Errorf("monitor: event %d: %w", cmdID, err)
		}
		kind := KindFault
		if cmdID == protocol.MsgCommand {
			kind = KindCommand
		}
		return Event{Kind: kind, Value: m.Value, Clock: m.Clock}, nil
	}
	return Event{}, fmt.Errorf("%w: %d", ErrUnknownMsg, cmdID)
}

// Seconds converts a robot clock to seconds since boot
func Seconds(clock uint32) float64 {
	return float64(clock) / 500000
}

func (e Event) String() string {
	switch e.Kind {
	case KindStatus:
		s := e.Status
		return fmt.Sprintf("%9.3fs status %-10s line=%03b %-11s duty=%d/%d lost=%d stop=%d enc=%d/%d rounds=%d",
			Seconds(s.Clock), name(stateNames, s.State), s.Composite, name(statusNames, s.Status),
			s.Right, s.Left, s.Lost, s.Stop, s.EncoderA, s.EncoderB, s.Rounds)
	case KindFault:
		f, ok := faultNames[e.Value]
		if !ok {
			f = fmt.Sprintf("?%d", e.Value)
		}
		return fmt.Sprintf("%9.3fs fault %s", Seconds(e.Clock), f)
	case KindCommand:
		cmd := "pause"
		if e.Value != 0 {
			cmd = "go"
		}
		return fmt.Sprintf("%9.3fs command %s", Seconds(e.Clock), cmd)
	}
	return "unknown event"
}
