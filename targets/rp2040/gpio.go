//go:build rp2040

package main

import (
	"machine"
	"sync/atomic"

	"linebot/core"
)

// RPGPIODriver implements core.GPIODriver and core.PhaseReader
type RPGPIODriver struct {
	configuredPins map[core.GPIOPin]machine.Pin
	encoderPins    [4]machine.Pin
}

// NewRPGPIODriver creates the GPIO driver; encoders are A1, A2, B1, B2
func NewRPGPIODriver(encoders [4]core.GPIOPin) *RPGPIODriver {
	d := &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
	for i, p := range encoders {
		d.encoderPins[i] = machine.Pin(p)
		d.encoderPins[i].Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
	return d
}

func (d *RPGPIODriver) configure(pin core.GPIOPin, mode machine.PinMode) {
	if _, exists := d.configuredPins[pin]; exists {
		return
	}
	mp := machine.Pin(pin)
	mp.Configure(machine.PinConfig{Mode: mode})
	d.configuredPins[pin] = mp
}

func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	d.configure(pin, machine.PinInputPullup)
	return nil
}

func (d *RPGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	d.configure(pin, machine.PinInputPulldown)
	return nil
}

func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	mp, exists := d.configuredPins[pin]
	if !exists {
		return false
	}
	return mp.Get()
}

// ReadPhases samples both encoders: A in bits 0-1, B in bits 2-3
func (d *RPGPIODriver) ReadPhases() uint8 {
	var v uint8
	for i, p := range d.encoderPins {
		if p.Get() {
			v |= 1 << i
		}
	}
	return v
}

// Set by the button edge and the ADC FIFO handler to end sleep. The pin
// callbacks run in interrupt context and hand the edge to the robot's high
// tier.
var woken atomic.Bool

// EnableEdgeInterrupts routes button and encoder edges to the robot
func (d *RPGPIODriver) EnableEdgeInterrupts(button core.GPIOPin, activeHigh bool) {
	change := machine.PinRising
	if !activeHigh {
		change = machine.PinFalling
	}
	machine.Pin(button).SetInterrupt(change, func(machine.Pin) {
		woken.Store(true)
		robot.RaiseEdge(core.IRQButtonEdge)
	})
	for _, p := range d.encoderPins {
		// a wheel still coasting after a turn-around must not end sleep
		p.SetInterrupt(machine.PinToggle, func(machine.Pin) {
			robot.RaiseEdge(core.IRQEncoderChange)
		})
	}
}
