package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrAckTimeout      = errors.New("protocol: ACK timeout")
	ErrResponseTimeout = errors.New("protocol: response timeout")
	ErrStopped         = errors.New("protocol: transport stopped")
	ErrFrameTooLong    = errors.New("protocol: message too long")
)

// DefaultAckTimeout bounds SendCommand
const DefaultAckTimeout = 2 * time.Second

// ResponseHandler receives each robot message as it arrives
type ResponseHandler func(cmdID uint16, data *[]byte) error

// Message is a frame read from the robot
type Message struct {
	Sequence uint8
	Payload  []byte
	CRC      uint16
}

// HostTransport is the host side of the telemetry link. A reader goroutine
// splits the port stream into frames: empty ones are ACKs for SendCommand,
// the rest go to the response handler and ReceiveResponse.
type HostTransport struct {
	port    io.ReadWriteCloser
	scanner *frameScanner
	seq     atomic.Uint32 // sequence of the next command

	inputBuffer *FifoBuffer
	writeMutex  sync.Mutex
	readMutex   sync.Mutex

	ackChan      chan Message
	responseChan chan Message

	handlerMu       sync.RWMutex
	responseHandler ResponseHandler

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewHostTransport starts reading port
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		scanner:      newFrameScanner(false),
		inputBuffer:  NewFifoBuffer(MessageMax),
		ackChan:      make(chan Message, 1),
		responseChan: make(chan Message, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	t.seq.Store(MessageDest)

	go t.readLoop()
	return t
}

// SendCommand sends one message and waits for the robot's ACK
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, DefaultAckTimeout)
}

// SendCommandWithTimeout is SendCommand with a custom ACK timeout
func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	seq := uint8(t.seq.Load())
	msg, err := buildCommand(seq, cmdID, args)
	if err != nil {
		return err
	}

	// a stale ACK must not satisfy this command
	select {
	case <-t.ackChan:
	default:
	}

	if n, err := t.port.Write(msg); err != nil {
		return fmt.Errorf("protocol: write: %w", err)
	} else if n != len(msg) {
		return fmt.Errorf("protocol: short write: %d/%d bytes", n, len(msg))
	}

	return t.waitForAck(seq, timeout)
}

func buildCommand(seq uint8, cmdID uint16, args func(output OutputBuffer)) ([]byte, error) {
	payload := NewScratchOutput()
	EncodeVLQUint(payload, uint32(cmdID))
	if args != nil {
		args(payload)
	}

	body := payload.Result()
	if size := len(body) + MessageLengthMin; size > MessageLengthMax {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLong, size, MessageLengthMax)
	}
	return AppendFrame(make([]byte, 0, len(body)+MessageLengthMin), seq, body), nil
}

// waitForAck waits for the robot to acknowledge seq. The ACK carries the
// sequence the robot expects next; anything else is a NAK.
func (t *HostTransport) waitForAck(seq uint8, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	want := nextSeq(seq)
	select {
	case ack := <-t.ackChan:
		if ack.Sequence != want {
			return fmt.Errorf("protocol: NAK: expected 0x%02x, got 0x%02x", want, ack.Sequence)
		}
		t.seq.Store(uint32(want))
		return nil
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrAckTimeout, timeout)
	case <-t.stopChan:
		return ErrStopped
	}
}

// ReceiveResponse returns the next robot message
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-t.responseChan:
		return resp, nil
	case <-timer.C:
		return Message{}, fmt.Errorf("%w after %v", ErrResponseTimeout, timeout)
	case <-t.stopChan:
		return Message{}, ErrStopped
	}
}

// SetResponseHandler sets the callback run on the reader goroutine for
// every robot message
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.handlerMu.Lock()
	t.responseHandler = handler
	t.handlerMu.Unlock()
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buf := make([]byte, 256)
	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if err == io.EOF {
			return
		}
		if err != nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n > 0 {
			t.inputBuffer.Write(buf[:n])
			t.processMessages()
		}
	}
}

// processMessages dispatches every complete frame in the input buffer
func (t *HostTransport) processMessages() {
	t.readMutex.Lock()
	defer t.readMutex.Unlock()

	data := t.inputBuffer.Data()
	consumed := 0
	for consumed < len(data) {
		f, n, res := t.scanner.next(data[consumed:])
		consumed += n
		if res == scanMore {
			break
		}
		if res == scanFrame {
			payload := make([]byte, len(f.Payload))
			copy(payload, f.Payload)
			t.dispatch(Message{Sequence: f.Sequence, Payload: payload, CRC: f.CRC})
		}
	}
	t.inputBuffer.Pop(consumed)
}

func (t *HostTransport) dispatch(msg Message) {
	if len(msg.Payload) == 0 {
		select {
		case t.ackChan <- msg:
		default:
		}
		return
	}

	t.handlerMu.RLock()
	handler := t.responseHandler
	t.handlerMu.RUnlock()
	if handler != nil {
		data := append([]byte(nil), msg.Payload...)
		if cmdID, err := DecodeVLQUint(&data); err == nil {
			_ = handler(uint16(cmdID), &data)
		}
	}

	// keep the newest messages
	select {
	case t.responseChan <- msg:
	default:
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- msg
	}
}

// Close stops the reader and closes the port
func (t *HostTransport) Close() error {
	close(t.stopChan)
	<-t.doneChan
	if t.port != nil {
		return t.port.Close()
	}
	return nil
}

// Reset forgets queued messages and restarts the sequence, which the robot
// reads as a host restart
func (t *HostTransport) Reset() {
	t.readMutex.Lock()
	defer t.readMutex.Unlock()

	t.scanner.synced.Store(true)
	t.seq.Store(MessageDest)
	t.inputBuffer.Reset()
	for len(t.ackChan) > 0 {
		<-t.ackChan
	}
	for len(t.responseChan) > 0 {
		<-t.responseChan
	}
}

// Sequence returns the sequence byte of the next command
func (t *HostTransport) Sequence() uint8 {
	return uint8(t.seq.Load())
}
