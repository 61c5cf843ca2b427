//go:build rp2040

package main

import (
	"machine"
	"time"

	"github.com/sparques/pwm"

	"linebot/core"
)

// Motor PWM runs at 20kHz, above the audible range
const motorPeriod = uint64(1e9) / 20000

// turnAroundTime is how long one wheel spins to face back along the line
const turnAroundTime = 1200 * time.Millisecond

// turnAroundDuty drives the spinning wheel during a turn-around
const turnAroundDuty core.DutyPercent = 50

// motorChannel is one wheel's PWM output
type motorChannel struct {
	pin   machine.Pin
	group pwm.Group
	ch    uint8
}

func newMotorChannel(pin machine.Pin) (motorChannel, error) {
	pin.Configure(machine.PinConfig{Mode: machine.PinPWM})
	group := pwm.Get(pin)
	if err := group.Configure(machine.PWMConfig{Period: motorPeriod}); err != nil {
		return motorChannel{}, err
	}
	ch, err := group.Channel(pin)
	if err != nil {
		return motorChannel{}, err
	}
	group.Set(ch, 0)
	return motorChannel{pin: pin, group: group, ch: ch}, nil
}

func (m motorChannel) set(duty core.DutyPercent) {
	if duty > 100 {
		duty = 100
	}
	m.group.Set(m.ch, uint32(duty)*m.group.Top()/100)
}

// RP2040MotorDriver implements core.MotorDriver on two PWM channels
type RP2040MotorDriver struct {
	right, left motorChannel
}

// NewRP2040MotorDriver configures the wheel outputs
func NewRP2040MotorDriver(rightPin, leftPin core.GPIOPin) (*RP2040MotorDriver, error) {
	right, err := newMotorChannel(machine.Pin(rightPin))
	if err != nil {
		return nil, err
	}
	left, err := newMotorChannel(machine.Pin(leftPin))
	if err != nil {
		return nil, err
	}
	return &RP2040MotorDriver{right: right, left: left}, nil
}

// SetDutyCycle sets both wheel duties in percent
func (d *RP2040MotorDriver) SetDutyCycle(right, left core.DutyPercent) error {
	d.right.set(right)
	d.left.set(left)
	return nil
}

// TurnAround pivots on the left wheel and leaves both motors stopped
func (d *RP2040MotorDriver) TurnAround() error {
	d.left.set(0)
	d.right.set(turnAroundDuty)
	time.Sleep(turnAroundTime)
	d.right.set(0)
	return nil
}
