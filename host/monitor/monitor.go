// Package monitor is the host side of the robot telemetry link. It fetches
// the message dictionary, sends the few host commands and decodes the
// robot's status, fault and command messages into Events.
package monitor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"linebot/host/serial"
	"linebot/protocol"
)

var (
	ErrNotConnected  = errors.New("monitor: not connected")
	ErrNoDictionary  = errors.New("monitor: dictionary not loaded")
	ErrUnknownMsg    = errors.New("monitor: unknown message")
	ErrDictMismatch  = errors.New("monitor: dictionary does not match this host")
	ErrBadDictionary = errors.New("monitor: malformed dictionary")
)

// ResponseTimeout bounds the wait for a robot reply
const ResponseTimeout = time.Second

// Monitor is a connection to one robot
type Monitor struct {
	transport *protocol.HostTransport

	dictionary     *Dictionary
	dictionaryData []byte

	events chan Event
	errors chan error

	connected bool
}

// New creates a Monitor that is not yet connected. Decoded events are
// delivered on a channel with room for buffer entries; older events are
// dropped when the reader falls behind.
func New(buffer int) *Monitor {
	if buffer < 1 {
		buffer = 1
	}
	return &Monitor{
		events: make(chan Event, buffer),
		errors: make(chan error, 1),
	}
}

// Connect opens device and attaches to it
func (m *Monitor) Connect(device string) error {
	port, err := serial.Open(serial.DefaultConfig(device))
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	m.Attach(port)
	return nil
}

// Attach starts the link on an already open port
func (m *Monitor) Attach(port io.ReadWriteCloser) {
	m.transport = protocol.NewHostTransport(port)
	m.transport.SetResponseHandler(m.handleMessage)
	m.connected = true
}

// Close shuts the link down and closes the port
func (m *Monitor) Close() error {
	if !m.connected {
		return nil
	}
	m.connected = false
	return m.transport.Close()
}

// Events returns the channel of decoded robot messages
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Errors returns the channel reporting undecodable messages
func (m *Monitor) Errors() <-chan error {
	return m.errors
}

// handleMessage runs on the transport's reader goroutine
func (m *Monitor) handleMessage(cmdID uint16, data *[]byte) error {
	if cmdID == protocol.MsgIdentifyResponse {
		return nil
	}
	ev, err := DecodeEvent(cmdID, data)
	if err != nil {
		select {
		case m.errors <- err:
		default:
		}
		return err
	}
	select {
	case m.events <- ev:
	default:
		select {
		case <-m.events:
		default:
		}
		m.events <- ev
	}
	return nil
}

// RetrieveDictionary reads the robot's message dictionary in
// IdentifyChunk slices and checks it against the IDs this host was built
// with.
func (m *Monitor) RetrieveDictionary() error {
	if !m.connected {
		return ErrNotConnected
	}

	var buf bytes.Buffer
	offset := uint32(0)
	for i := 0; i < 256; i++ {
		chunk, err := m.sendIdentify(offset, protocol.IdentifyChunk)
		if err != nil {
			return fmt.Errorf("monitor: dictionary chunk at %d: %w", offset, err)
		}
		buf.Write(chunk)
		offset += uint32(len(chunk))
		if len(chunk) < protocol.IdentifyChunk {
			break
		}
	}

	m.dictionaryData = buf.Bytes()
	dict, err := ParseDictionary(string(m.dictionaryData))
	if err != nil {
		return err
	}
	if err := dict.Check(); err != nil {
		return err
	}
	m.dictionary = dict
	return nil
}

func (m *Monitor) sendIdentify(offset uint32, count uint8) ([]byte, error) {
	err := m.transport.SendCommand(protocol.MsgIdentify, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, uint32(count))
	})
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(ResponseTimeout)
	for {
		resp, err := m.transport.ReceiveResponse(time.Until(deadline))
		if err != nil {
			return nil, err
		}
		payload := resp.Payload
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, err
		}
		// status reports share the response queue
		if id != protocol.MsgIdentifyResponse {
			continue
		}
		respOffset, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, err
		}
		if respOffset != offset {
			return nil, fmt.Errorf("offset mismatch: expected %d, got %d", offset, respOffset)
		}
		return protocol.DecodeVLQBytes(&payload)
	}
}

// Dictionary returns the retrieved dictionary, or nil
func (m *Monitor) Dictionary() *Dictionary {
	return m.dictionary
}

// DictionaryText returns the raw dictionary as received
func (m *Monitor) DictionaryText() string {
	return string(m.dictionaryData)
}

// QueryStatus asks for an immediate status message. The reply arrives on
// Events.
func (m *Monitor) QueryStatus() error {
	if !m.connected {
		return ErrNotConnected
	}
	return m.transport.SendCommand(protocol.MsgQueryStatus, nil)
}

// SetDebug turns the robot's debug output on or off
func (m *Monitor) SetDebug(enable bool) error {
	if !m.connected {
		return ErrNotConnected
	}
	v := uint32(0)
	if enable {
		v = 1
	}
	return m.transport.SendCommand(protocol.MsgSetDebug, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, v)
	})
}

// Dictionary is the parsed "name format" listing, in message ID order
type Dictionary struct {
	Names   []string
	Formats map[string]string
	IDs     map[string]uint16
}

// ParseDictionary parses the dictionary text sent by the robot
func ParseDictionary(text string) (*Dictionary, error) {
	d := &Dictionary{
		Formats: make(map[string]string),
		IDs:     make(map[string]uint16),
	}
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		name, format, _ := strings.Cut(line, " ")
		if name == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadDictionary, line)
		}
		if _, dup := d.IDs[name]; dup {
			return nil, fmt.Errorf("%w: %s listed twice", ErrBadDictionary, name)
		}
		d.IDs[name] = uint16(len(d.Names))
		d.Names = append(d.Names, name)
		d.Formats[name] = format
	}
	return d, nil
}

var knownMessages = []struct {
	name   string
	id     uint16
	format string
}{
	{"identify", protocol.MsgIdentify, protocol.FormatIdentify},
	{"query_status", protocol.MsgQueryStatus, protocol.FormatQueryStatus},
	{"set_debug", protocol.MsgSetDebug, protocol.FormatSetDebug},
	{"identify_response", protocol.MsgIdentifyResponse, protocol.FormatIdentifyResponse},
	{"status", protocol.MsgStatus, protocol.FormatStatus},
	{"fault", protocol.MsgFault, protocol.FormatFault},
	{"command", protocol.MsgCommand, protocol.FormatCommand},
}

// Check verifies that every message this host decodes has the expected ID
// and format
func (d *Dictionary) Check() error {
	for _, k := range knownMessages {
		id, ok := d.IDs[k.name]
		if !ok {
			return fmt.Errorf("%w: %s missing", ErrDictMismatch, k.name)
		}
		if id != k.id || d.Formats[k.name] != k.format {
			return fmt.Errorf("%w: %s is %d %q", ErrDictMismatch, k.name, id, d.Formats[k.name])
		}
	}
	return nil
}
