package protocol

import "testing"

func buildFrame(seq uint8, payload []byte) []byte {
	return AppendFrame(nil, seq, payload)
}

// acks returns the sequence bytes of the empty frames in out
func acks(t *testing.T, out []byte) []uint8 {
	t.Helper()
	s := newFrameScanner(false)
	var seqs []uint8
	for len(out) > 0 {
		f, n, res := s.next(out)
		out = out[n:]
		if res == scanMore {
			break
		}
		if res == scanFrame && len(f.Payload) == 0 {
			seqs = append(seqs, f.Sequence)
		}
	}
	return seqs
}

func TestTransportDispatchesFrame(t *testing.T) {
	output := NewScratchOutput()
	var got []uint16
	tr := NewTransport(output, func(cmdID uint16, data *[]byte) error {
		got = append(got, cmdID)
		if cmdID == MsgSetDebug {
			if _, err := DecodeVLQUint(data); err != nil {
				return err
			}
		}
		return nil
	})

	payload := NewScratchOutput()
	EncodeVLQUint(payload, MsgQueryStatus)
	EncodeVLQUint(payload, MsgSetDebug)
	EncodeVLQUint(payload, 1)

	tr.Receive(NewSliceInputBuffer(buildFrame(MessageDest, payload.Result())))

	if len(got) != 2 || got[0] != MsgQueryStatus || got[1] != MsgSetDebug {
		t.Fatalf("Expected [%d %d] dispatched, got %v", MsgQueryStatus, MsgSetDebug, got)
	}

	ack := output.Result()
	if len(ack) != MessageLengthMin {
		t.Fatalf("Expected a %d byte ACK, got %v", MessageLengthMin, ack)
	}
	if ack[MessagePositionSeq] != MessageDest|1 {
		t.Errorf("Expected ACK sequence 0x11, got 0x%02x", ack[MessagePositionSeq])
	}
	if ack[len(ack)-1] != MessageValueSync {
		t.Errorf("ACK does not end with sync byte")
	}
}

func TestTransportRejectsBadCRC(t *testing.T) {
	output := NewScratchOutput()
	calls := 0
	tr := NewTransport(output, func(cmdID uint16, data *[]byte) error {
		calls++
		return nil
	})

	frame := buildFrame(MessageDest, []byte{MsgQueryStatus})
	frame[len(frame)-2] ^= 0xFF
	tr.Receive(NewSliceInputBuffer(frame))

	if calls != 0 {
		t.Errorf("Handler called %d times for corrupt frame", calls)
	}
	// Resync on the trailing sync byte answers with the unchanged sequence
	out := output.Result()
	if len(out) < MessageLengthMin || out[MessagePositionSeq] != MessageDest {
		t.Errorf("Expected NAK with sequence 0x10, got %v", out)
	}
}

func TestTransportEncodeFrame(t *testing.T) {
	output := NewScratchOutput()
	tr := NewTransport(output, nil)

	ev := EventMessage{Value: 2, Clock: 123456}
	tr.SendCommand(MsgFault, func(out OutputBuffer) {
		ev.Encode(out)
	})

	frame := output.Result()
	if int(frame[MessagePositionLen]) != len(frame) {
		t.Fatalf("Length byte %d does not match frame size %d", frame[MessagePositionLen], len(frame))
	}
	crc := CRC16(frame[:len(frame)-MessageTrailerSize])
	if frame[len(frame)-3] != byte(crc>>8) || frame[len(frame)-2] != byte(crc) {
		t.Errorf("Bad CRC in encoded frame")
	}

	payload := frame[MessageHeaderSize : len(frame)-MessageTrailerSize]
	id, err := DecodeVLQUint(&payload)
	if err != nil || id != MsgFault {
		t.Fatalf("Expected fault message, got %d (err %v)", id, err)
	}
	got, err := DecodeEvent(&payload)
	if err != nil || got != ev {
		t.Errorf("Expected %+v, got %+v (err %v)", ev, got, err)
	}
}

func TestTransportSequence(t *testing.T) {
	output := NewScratchOutput()
	calls := 0
	tr := NewTransport(output, func(cmdID uint16, data *[]byte) error {
		calls++
		return nil
	})

	var stream []byte
	stream = append(stream, buildFrame(MessageDest, []byte{MsgQueryStatus})...)
	stream = append(stream, buildFrame(MessageDest|1, []byte{MsgQueryStatus})...)
	// repeated frame is answered but not dispatched again
	stream = append(stream, buildFrame(MessageDest|1, []byte{MsgQueryStatus})...)
	tr.Receive(NewSliceInputBuffer(stream))

	if calls != 2 {
		t.Errorf("Expected 2 dispatches, got %d", calls)
	}
	got := acks(t, output.Result())
	want := []uint8{0x11, 0x12, 0x12}
	if len(got) != len(want) {
		t.Fatalf("Expected ACKs %x, got %x", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ACK %d: got 0x%02x, want 0x%02x", i, got[i], want[i])
		}
	}
}

func TestTransportSkipsGarbageAndWaitsForRest(t *testing.T) {
	output := NewScratchOutput()
	calls := 0
	tr := NewTransport(output, func(cmdID uint16, data *[]byte) error {
		calls++
		return nil
	})

	frame := buildFrame(MessageDest, []byte{MsgQueryStatus})
	stream := append([]byte{0x01, 0x02, MessageValueSync}, frame...)

	in := NewSliceInputBuffer(stream[:len(stream)-2])
	tr.Receive(in)
	if calls != 0 {
		t.Fatalf("Partial frame dispatched")
	}

	rest := append(append([]byte(nil), in.Data()...), stream[len(stream)-2:]...)
	in = NewSliceInputBuffer(rest)
	tr.Receive(in)
	if calls != 1 {
		t.Errorf("Expected the frame dispatched once complete, got %d calls", calls)
	}
	if in.Available() != 0 {
		t.Errorf("Expected all input consumed, %d bytes left", in.Available())
	}
}

func TestTransportHostRestart(t *testing.T) {
	output := NewScratchOutput()
	resets := 0
	tr := NewTransport(output, nil)
	tr.SetResetCallback(func() { resets++ })

	tr.Receive(NewSliceInputBuffer(buildFrame(MessageDest, []byte{MsgQueryStatus})))
	tr.Receive(NewSliceInputBuffer(buildFrame(MessageDest, []byte{MsgQueryStatus})))

	if resets != 1 {
		t.Errorf("Expected one reset, got %d", resets)
	}
	got := acks(t, output.Result())
	if len(got) != 2 || got[1] != 0x11 {
		t.Errorf("Expected the restarted frame accepted, ACKs %x", got)
	}
}
