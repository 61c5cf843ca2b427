package protocol

import "sync/atomic"

// CommandHandler handles one decoded message; it consumes its own
// arguments from data
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the robot side of the telemetry link. Frames from the host
// are acknowledged and their messages dispatched; robot messages are framed
// straight into the output buffer.
type Transport struct {
	scanner      *frameScanner
	nextSequence atomic.Uint32
	output       OutputBuffer
	handler      CommandHandler
	ack          [MessageLengthMin]byte

	resetCallback func() // host restarted its sequence
	flushCallback func() // push the ACK to the link now
}

// NewTransport creates a robot-side transport writing to output
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	t := &Transport{
		scanner: newFrameScanner(true),
		output:  output,
		handler: handler,
	}
	t.nextSequence.Store(MessageDest)
	return t
}

// Receive consumes every complete frame in input. Each frame, good or
// out of sequence, is answered with the sequence expected next.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()
	consumed := 0

	for consumed < len(data) {
		f, n, res := t.scanner.next(data[consumed:])
		consumed += n

		switch res {
		case scanMore:
			input.Pop(consumed)
			return
		case scanResync:
			t.encodeAckNak()
			continue
		}

		expected := uint8(t.nextSequence.Load())
		if f.Sequence == MessageDest && expected != MessageDest {
			// host restarted
			expected = MessageDest
			t.nextSequence.Store(MessageDest)
			if t.resetCallback != nil {
				t.resetCallback()
			}
		}
		if f.Sequence == expected {
			t.nextSequence.Store(uint32(nextSeq(f.Sequence)))
			_ = t.parseFrame(f.Payload)
		}
		t.encodeAckNak()
	}
	input.Pop(consumed)
}

// parseFrame dispatches each message of a frame. A handler error drops the
// rest of the frame; a malformed message ID drops sync.
func (t *Transport) parseFrame(frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.scanner.synced.Store(false)
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.scanner.synced.Store(false)
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(cmdID), &frame); err != nil {
			return err
		}
	}
	return nil
}

// encodeAckNak frames an empty message carrying the expected sequence
func (t *Transport) encodeAckNak() {
	ns := uint8(t.nextSequence.Load())
	t.output.Output(AppendFrame(t.ack[:0], ns, nil))
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame frames whatever frameData writes, in place in the output
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	cursor := t.output.CurPosition()

	// same sequence byte as the last ACK
	seq := uint8(t.nextSequence.Load())
	t.output.Output([]byte{0, seq})
	frameData(t.output)

	size := len(t.output.DataSince(cursor))
	t.output.Update(cursor, uint8(size+MessageTrailerSize))

	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{uint8(crc >> 8), uint8(crc), MessageValueSync})
}

// SendCommand frames one message
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns to the power-on state, after a USB reconnect for instance
func (t *Transport) Reset() {
	t.scanner.synced.Store(true)
	t.nextSequence.Store(MessageDest)
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback sets the function called when the host restarts
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets the function that pushes ACKs to the link
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}
