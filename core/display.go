package core

import (
	"sync/atomic"

	"tinygo.org/x/drivers"
)

// Display byte layout
const (
	AliveBit     = 1 << 7
	BlinkPeriods = 10 // Display periods per alive-bit phase (500 ms)
)

// Display renders the status byte once per Display period: the alive blink
// bit over the sensor LED mirror bits, or a running light show.
//
// OnTick is the only writer of the output and the show state. Other
// contexts request shows through a hand-off and watch Done for completion.
type Display struct {
	out          DisplayWriter
	blinkPeriods uint8

	// display handler
	blinkCount uint8
	alive      bool
	show       LightShow
	last       atomic.Uint32
	done       Seq
	errors     uint32

	requests Handoff[ShowPattern]
}

// NewDisplay creates a display that writes through out
func NewDisplay(out DisplayWriter, blinkPeriods uint8) *Display {
	if blinkPeriods == 0 {
		blinkPeriods = BlinkPeriods
	}
	return &Display{out: out, blinkPeriods: blinkPeriods}
}

// RequestShow queues p to start at the next Display period. It returns
// false if an earlier request has not been picked up yet.
func (d *Display) RequestShow(p ShowPattern) bool {
	return d.requests.Put(p)
}

// Done returns the number of light shows finished so far
func (d *Display) Done() uint32 {
	return d.done.Load()
}

// ShowPending reports whether a show is queued or running
func (d *Display) ShowPending() bool {
	return d.requests.Full() || d.show.Active()
}

// OnTick advances one Display period (low tier)
func (d *Display) OnTick(leds uint8) {
	var b byte
	if p, ok := d.requests.Take(); ok {
		b = d.show.Start(p)
		RecordEvent(EvtShow, 0, GetTime(), uint32(p.Pairs), uint32(p.PhasePeriods))
	} else if d.show.Active() {
		var finished bool
		b, finished = d.show.Tick()
		if finished {
			d.done.Bump()
		}
	} else {
		b = d.blink(leds)
	}
	d.write(b)
}

func (d *Display) blink(leds uint8) byte {
	d.blinkCount++
	if d.blinkCount >= d.blinkPeriods {
		d.blinkCount = 0
		d.alive = !d.alive
	}
	b := leds &^ AliveBit
	if d.alive {
		b |= AliveBit
	}
	return b
}

func (d *Display) write(b byte) {
	d.last.Store(uint32(b))
	if err := d.out.WriteDisplayByte(b); err != nil {
		d.errors++
		RecordEvent(EvtDriverError, 0, GetTime(), uint32(b), d.errors)
	}
}

// Last returns the byte most recently handed to the writer
func (d *Display) Last() byte {
	return byte(d.last.Load())
}

// Errors returns the number of failed writes
func (d *Display) Errors() uint32 {
	return d.errors
}

const pendingValid = 1 << 8

// ShiftDisplay is a double-buffered DisplayWriter for a 74HC595-style LED
// register on a synchronous serial bus. WriteDisplayByte only parks the
// byte and raises the bus-idle source; the high tier shifts it out.
type ShiftDisplay struct {
	bus   drivers.SPI
	latch LatchPin
	irq   *IRQController

	pending atomic.Uint32 // producer: Display handler, consumer: bus-idle handler
	sent    atomic.Uint32
	last    atomic.Uint32
	err     atomic.Uint32
}

// NewShiftDisplay creates a display writer on bus with the given latch
func NewShiftDisplay(bus drivers.SPI, latch LatchPin, irq *IRQController) *ShiftDisplay {
	latch.Set(false)
	return &ShiftDisplay{bus: bus, latch: latch, irq: irq}
}

// WriteDisplayByte replaces any byte still waiting for the bus
func (s *ShiftDisplay) WriteDisplayByte(b byte) error {
	s.pending.Store(pendingValid | uint32(b))
	s.irq.Raise(IRQBusIdle)
	return nil
}

// OnBusIdle shifts out the waiting byte, if any (high tier)
func (s *ShiftDisplay) OnBusIdle() {
	v := s.pending.Swap(0)
	if v&pendingValid == 0 {
		return
	}
	b := byte(v)
	if _, err := s.bus.Transfer(b); err != nil {
		s.err.Add(1)
		RecordEvent(EvtDriverError, 1, GetTime(), uint32(b), s.err.Load())
		return
	}
	s.latch.Set(true)
	s.latch.Set(false)
	s.last.Store(uint32(b))
	s.sent.Add(1)
}

// Shown returns the byte currently latched on the LEDs
func (s *ShiftDisplay) Shown() byte {
	return byte(s.last.Load())
}

// Sent returns how many bytes reached the register
func (s *ShiftDisplay) Sent() uint32 {
	return s.sent.Load()
}
