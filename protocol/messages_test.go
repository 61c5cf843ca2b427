package protocol

import "testing"

func TestStatusMessageEncodeDecode(t *testing.T) {
	in := StatusMessage{
		Clock:     4000000000,
		State:     2,
		Composite: 0b011,
		Lost:      3,
		Stop:      11,
		EncoderA:  -1234,
		EncoderB:  56789,
		Rounds:    42,
		Right:     35,
		Left:      15,
		Status:    0,
	}

	output := NewScratchOutput()
	EncodeVLQUint(output, MsgStatus)
	in.Encode(output)
	data := output.Result()

	id, err := DecodeVLQUint(&data)
	if err != nil || id != MsgStatus {
		t.Fatalf("Expected message ID %d, got %d (err %v)", MsgStatus, id, err)
	}
	out, err := DecodeStatus(&data)
	if err != nil {
		t.Fatalf("DecodeStatus failed: %v", err)
	}
	if out != in {
		t.Errorf("Status mismatch:\n got  %+v\n want %+v", out, in)
	}
	if len(data) != 0 {
		t.Errorf("DecodeStatus left %d bytes", len(data))
	}

	// The whole frame has to fit the transport limit
	if n := output.CurPosition() + MessageHeaderSize + MessageTrailerSize; n > MessageLengthMax {
		t.Errorf("Status frame is %d bytes, limit %d", n, MessageLengthMax)
	}
}

func TestEventMessageEncodeDecode(t *testing.T) {
	tests := []EventMessage{
		{Value: 1, Clock: 0},
		{Value: 2, Clock: 500000},
		{Value: 0, Clock: 0xFFFFFFFF},
	}
	for _, in := range tests {
		output := NewScratchOutput()
		in.Encode(output)
		data := output.Result()
		out, err := DecodeEvent(&data)
		if err != nil {
			t.Errorf("DecodeEvent(%+v) failed: %v", in, err)
			continue
		}
		if out != in {
			t.Errorf("Event mismatch: got %+v, want %+v", out, in)
		}
	}
}

func TestDecodeStatusTruncated(t *testing.T) {
	output := NewScratchOutput()
	m := StatusMessage{Clock: 1000, Rounds: 7}
	m.Encode(output)
	data := output.Result()
	data = data[:len(data)-2]

	if _, err := DecodeStatus(&data); err == nil {
		t.Error("Expected error for truncated status payload")
	}
}
