package core

import "sync/atomic"

// NumEncoders is the number of wheel encoders
const NumEncoders = 2

// quadratureTable maps a 4-bit history (previous phase pair in bits 2-3,
// current pair in bits 0-1) to a count delta. Unchanged samples and
// double-step jumps decode to 0.
var quadratureTable = [16]int8{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

// QuadratureDelta returns the count delta for a 4-bit history
func QuadratureDelta(history uint8) int8 {
	return quadratureTable[history&0x0F]
}

// Encoder decodes one quadrature phase pair into a signed count.
// Update runs in the encoder pin-change handler; Count may be read from any
// context.
type Encoder struct {
	history uint8
	count   atomic.Int32
	invalid uint32
}

// Update shifts the current 2-bit phase sample into the history and
// applies the table delta. It returns the delta applied.
func (e *Encoder) Update(phases uint8) int8 {
	prev := e.history & 0x03
	e.history = (prev<<2 | phases&0x03) & 0x0F
	d := QuadratureDelta(e.history)
	if d == 0 && prev^(phases&0x03) == 0x03 {
		// both phases flipped between samples: an edge was missed
		e.invalid++
	}
	if d != 0 {
		e.count.Add(int32(d))
	}
	return d
}

// Seed sets the history to the current phase without counting
func (e *Encoder) Seed(phases uint8) {
	p := phases & 0x03
	e.history = p<<2 | p
}

// History returns the last two phase samples
func (e *Encoder) History() uint8 {
	return e.history
}

// Count returns the accumulated position
func (e *Encoder) Count() int32 {
	return e.count.Load()
}

// Invalid returns how many transitions skipped a state
func (e *Encoder) Invalid() uint32 {
	return e.invalid
}

// EncoderPair decodes both wheel encoders from one shared pin-change
// interrupt. Each encoder keeps its own history.
type EncoderPair struct {
	A, B Encoder
}

// Seed primes both histories from a phase sample
func (p *EncoderPair) Seed(phases uint8) {
	p.A.Seed(phases)
	p.B.Seed(phases >> 2)
}

// Update decodes a sample holding encoder A in bits 0-1 and B in bits 2-3
func (p *EncoderPair) Update(phases uint8) {
	p.A.Update(phases)
	p.B.Update(phases >> 2)
}

// Counts returns both accumulated positions
func (p *EncoderPair) Counts() (a, b int32) {
	return p.A.Count(), p.B.Count()
}
