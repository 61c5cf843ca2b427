package core

import (
	"linebot/protocol"
)

// Telemetry serves the host link: it answers host commands and frames the
// robot's status, fault and command notifications. All methods run in the
// main loop.
type Telemetry struct {
	registry  *CommandRegistry
	output    *protocol.ScratchOutput
	transport *protocol.Transport
	snapshot  func() Snapshot

	sent    uint32
	dropped uint32
}

// NewTelemetry registers the message dictionary and creates the transport.
// Registration order fixes the IDs listed in the protocol package.
func NewTelemetry() *Telemetry {
	t := &Telemetry{
		registry: NewCommandRegistry(),
		output:   protocol.NewScratchOutput(),
	}

	t.mustRegister(protocol.MsgIdentify, "identify", protocol.FormatIdentify, t.handleIdentify)
	t.mustRegister(protocol.MsgQueryStatus, "query_status", protocol.FormatQueryStatus, t.handleQueryStatus)
	t.mustRegister(protocol.MsgSetDebug, "set_debug", protocol.FormatSetDebug, t.handleSetDebug)
	t.mustRegister(protocol.MsgIdentifyResponse, "identify_response", protocol.FormatIdentifyResponse, nil)
	t.mustRegister(protocol.MsgStatus, "status", protocol.FormatStatus, nil)
	t.mustRegister(protocol.MsgFault, "fault", protocol.FormatFault, nil)
	t.mustRegister(protocol.MsgCommand, "command", protocol.FormatCommand, nil)

	t.transport = protocol.NewTransport(t.output, func(cmdID uint16, data *[]byte) error {
		return t.registry.Dispatch(cmdID, data)
	})
	t.transport.SetResetCallback(func() {
		t.output.Reset()
	})
	return t
}

func (t *Telemetry) mustRegister(want uint16, name, format string, h CommandHandler) {
	if id := t.registry.Register(name, format, h); id != want {
		panic("telemetry: " + name + " registered as " + itoa(int(id)))
	}
}

// Attach makes t the robot's reporter and source of status snapshots
func (t *Telemetry) Attach(r *Robot) {
	t.snapshot = r.Snapshot
	r.SetReporter(t)
}

// Receive processes bytes from the host
func (t *Telemetry) Receive(input protocol.InputBuffer) {
	t.transport.Receive(input)
}

// Output returns the buffer of framed bytes waiting for the link. The
// caller writes Result() and then calls Reset().
func (t *Telemetry) Output() *protocol.ScratchOutput {
	return t.output
}

// Transport returns the underlying framing layer
func (t *Telemetry) Transport() *protocol.Transport {
	return t.transport
}

// Registry returns the message dictionary
func (t *Telemetry) Registry() *CommandRegistry {
	return t.registry
}

// Sent returns the number of framed messages queued
func (t *Telemetry) Sent() uint32 {
	return t.sent
}

// Dropped returns the number of messages discarded for lack of room
func (t *Telemetry) Dropped() uint32 {
	return t.dropped
}

func (t *Telemetry) send(id uint16, args func(output protocol.OutputBuffer)) {
	if t.output.CurPosition()+protocol.MessageLengthMax > protocol.MessageMax {
		t.dropped++
		return
	}
	t.transport.SendCommand(id, args)
	t.sent++
}

// ReportStatus frames a status message
func (t *Telemetry) ReportStatus(s Snapshot) {
	m := StatusMessageFrom(s)
	t.send(protocol.MsgStatus, m.Encode)
}

// ReportFault frames a fault notification
func (t *Telemetry) ReportFault(kind FaultKind, clock uint32) {
	m := protocol.EventMessage{Value: uint8(kind), Clock: clock}
	t.send(protocol.MsgFault, m.Encode)
}

// ReportCommand frames a go/pause notification
func (t *Telemetry) ReportCommand(goFlag bool, clock uint32) {
	m := protocol.EventMessage{Clock: clock}
	if goFlag {
		m.Value = 1
	}
	t.send(protocol.MsgCommand, m.Encode)
}

// StatusMessageFrom converts a snapshot to its wire form. Counters are
// clamped to a byte.
func StatusMessageFrom(s Snapshot) protocol.StatusMessage {
	return protocol.StatusMessage{
		Clock:     s.Clock,
		State:     uint8(s.State),
		Composite: s.Composite,
		Lost:      clampByte(s.Lost),
		Stop:      clampByte(s.Stop),
		EncoderA:  s.EncoderA,
		EncoderB:  s.EncoderB,
		Rounds:    s.Rounds,
		Right:     uint8(s.Right),
		Left:      uint8(s.Left),
		Status:    uint8(s.Status),
	}
}

func clampByte(v uint32) uint8 {
	if v > 0xFF {
		return 0xFF
	}
	return uint8(v)
}

// handleIdentify sends one slice of the dictionary text
// Format: identify offset=%u count=%c
func (t *Telemetry) handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if count > protocol.IdentifyChunk {
		count = protocol.IdentifyChunk
	}

	dict := t.registry.GetDictionary()
	var chunk []byte
	if int(offset) < len(dict) {
		end := int(offset) + int(count)
		if end > len(dict) {
			end = len(dict)
		}
		chunk = []byte(dict[offset:end])
	}

	t.send(protocol.MsgIdentifyResponse, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

// handleQueryStatus answers with an immediate status message
func (t *Telemetry) handleQueryStatus(data *[]byte) error {
	if t.snapshot == nil {
		return nil
	}
	t.ReportStatus(t.snapshot())
	return nil
}

// handleSetDebug turns debug output on or off
// Format: set_debug enable=%c
func (t *Telemetry) handleSetDebug(data *[]byte) error {
	enable, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	SetDebugEnabled(enable != 0)
	return nil
}
