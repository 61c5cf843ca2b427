//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// PIO program shifting bytes MSB first: data on the OUT pin, clock on the
// SET pin, data stable on the rising edge.
//
// Autopull refills the OSR every 8 bits; the program stalls on an empty
// FIFO with the clock low.
func buildShiftProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Out(rp2pio.OutDestPins, 1).Encode(), // 0: out pins, 1
		asm.Set(rp2pio.SetDestPins, 1).Encode(), // 1: set pins, 1
		asm.Set(rp2pio.SetDestPins, 0).Encode(), // 2: set pins, 0
		// .wrap
	}
}

const shiftPIOOrigin = 8 // after the first program slot

// FDEBUG.TXSTALL, one bit per state machine, write 1 to clear
const fdebugTxStallPos = 24

var errShiftTimeout = errors.New("display: shift timed out")

// PIOShifter is a transmit-only drivers.SPI for the LED shift register
type PIOShifter struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	smNum  uint8
	offset uint8
	clock  machine.Pin
	data   machine.Pin
}

// NewPIOShifter loads the shift program on PIO0 state machine smNum
func NewPIOShifter(smNum uint8, clock, data machine.Pin, hz uint32) (*PIOShifter, error) {
	p := &PIOShifter{
		pio:   rp2pio.PIO0,
		smNum: smNum,
		clock: clock,
		data:  data,
	}
	p.sm = p.pio.StateMachine(smNum)
	p.sm.TryClaim()

	program := buildShiftProgram()
	offset, err := p.pio.AddProgram(program, shiftPIOOrigin)
	if err != nil {
		return nil, err
	}
	p.offset = offset

	clock.Configure(machine.PinConfig{Mode: p.pio.PinMode()})
	data.Configure(machine.PinConfig{Mode: p.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(data, 1)
	cfg.SetSetPins(clock, 1)
	// shift left, autopull at 8 bits
	cfg.SetOutShift(false, true, 8)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)

	// three instructions per bit
	div := machine.CPUFrequency() / (3 * hz)
	if div < 1 {
		div = 1
	}
	cfg.SetClkDivIntFrac(uint16(div), 0)

	p.sm.Init(offset, cfg)
	p.sm.SetPindirsConsecutive(data, 1, true)
	p.sm.SetPindirsConsecutive(clock, 1, true)
	p.sm.SetPinsConsecutive(clock, 1, false)
	p.sm.SetEnabled(true)
	return p, nil
}

func (p *PIOShifter) stalled() bool {
	return rp.PIO0.FDEBUG.HasBits(1 << (fdebugTxStallPos + uint32(p.smNum)))
}

// Transfer shifts b out and waits until the last bit has left the OSR.
// The register has no output, so the returned byte is always 0.
func (p *PIOShifter) Transfer(b byte) (byte, error) {
	rp.PIO0.FDEBUG.Set(1 << (fdebugTxStallPos + uint32(p.smNum)))
	for p.sm.IsTxFIFOFull() {
	}
	// autopull takes the top byte when shifting left
	p.sm.TxPut(uint32(b) << 24)

	for i := 0; i < 100000; i++ {
		if p.sm.IsTxFIFOEmpty() && p.stalled() {
			return 0, nil
		}
	}
	return 0, errShiftTimeout
}

// Tx shifts out every byte of w. r is filled with zeros.
func (p *PIOShifter) Tx(w, r []byte) error {
	for i, b := range w {
		if _, err := p.Transfer(b); err != nil {
			return err
		}
		if i < len(r) {
			r[i] = 0
		}
	}
	return nil
}

// latchPin is the shift register's storage clock
type latchPin machine.Pin

func newLatchPin(pin machine.Pin) latchPin {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return latchPin(pin)
}

func (l latchPin) Set(high bool) {
	machine.Pin(l).Set(high)
}
