package core

import "testing"

func TestQuadratureTableExhaustive(t *testing.T) {
	// Gray sequence for one direction: 00 -> 01 -> 11 -> 10 -> 00
	forward := map[[2]uint8]bool{
		{0b00, 0b01}: true, {0b01, 0b11}: true, {0b11, 0b10}: true, {0b10, 0b00}: true,
	}
	for h := uint8(0); h < 16; h++ {
		prev, cur := h>>2, h&0x03
		var want int8
		switch {
		case prev == cur:
			want = 0
		case prev^cur == 0x03:
			want = 0 // both phases changed: direction unknown
		case forward[[2]uint8{prev, cur}]:
			want = -1
		default:
			want = 1
		}
		if got := QuadratureDelta(h); got != want {
			t.Errorf("history %04b: delta %d, want %d", h, got, want)
		}
	}
}

func TestEncoderRotation(t *testing.T) {
	tests := []struct {
		name   string
		phases []uint8
		want   int32
	}{
		{"one way", []uint8{0b01, 0b11, 0b10, 0b00, 0b01, 0b11, 0b10, 0b00}, -8},
		{"other way", []uint8{0b10, 0b11, 0b01, 0b00, 0b10, 0b11, 0b01, 0b00}, 8},
		{"repeated samples", []uint8{0b00, 0b00, 0b00, 0b00}, 0},
		{"back and forth", []uint8{0b01, 0b00, 0b01, 0b00}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var e Encoder
			e.Seed(0b00)
			var prevSign int8
			for i, p := range tc.phases {
				d := e.Update(p)
				if tc.want != 0 && i > 0 && d != prevSign {
					t.Errorf("step %d: delta %d breaks the run of %d", i, d, prevSign)
				}
				prevSign = d
			}
			if e.Count() != tc.want {
				t.Errorf("Count %d, want %d", e.Count(), tc.want)
			}
		})
	}
}

func TestEncoderMissedEdge(t *testing.T) {
	var e Encoder
	e.Seed(0b00)
	e.Update(0b11) // skipped 01
	if e.Count() != 0 {
		t.Errorf("Missed edge changed count to %d", e.Count())
	}
	if e.Invalid() != 1 {
		t.Errorf("Expected 1 invalid transition, got %d", e.Invalid())
	}
	if e.History() != 0b0011 {
		t.Errorf("History %04b, want 0011", e.History())
	}
}

func TestEncoderPairIndependent(t *testing.T) {
	var p EncoderPair
	p.Seed(0)

	// A turns one way, B stays still
	for _, a := range []uint8{0b01, 0b11, 0b10, 0b00} {
		p.Update(a)
	}
	// B turns the other way, A stays at 00
	for _, b := range []uint8{0b10, 0b11, 0b01, 0b00} {
		p.Update(b << 2)
	}

	a, b := p.Counts()
	if a != -4 || b != 4 {
		t.Errorf("Counts a=%d b=%d, want -4 and 4", a, b)
	}
}
