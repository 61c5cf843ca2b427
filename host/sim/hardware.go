package sim

import "linebot/core"

// forward quadrature sequence; A in bit 0, B in bit 1
var gray = [4]uint8{0b00, 0b10, 0b11, 0b01}

// Hardware is a virtual board: every core driver interface backed by the
// scenario script
type Hardware struct {
	sim *Simulator

	channel     core.ADCChannelID
	sensor      map[core.ADCChannelID]int
	conversions uint32

	pins map[core.GPIOPin]bool

	right, left core.DutyPercent
	dutyCalls   uint32
	turnArounds uint32
	wheelAcc    [core.NumEncoders]uint32
	wheelPhase  [core.NumEncoders]uint8
	wheelSteps  [core.NumEncoders]int32

	display []byte
	sleeps  uint32
}

func newHardware(s *Simulator, sensors [core.NumSensors]core.IRSensor) *Hardware {
	h := &Hardware{
		sim:    s,
		sensor: make(map[core.ADCChannelID]int),
		pins:   make(map[core.GPIOPin]bool),
	}
	for i, ir := range sensors {
		h.sensor[ir.Channel] = i
	}
	return h
}

// core.Hardware view of the board
func (h *Hardware) drivers() core.Hardware {
	return core.Hardware{
		ADC:     h,
		GPIO:    h,
		Phases:  h,
		Motor:   h,
		Power:   h,
		Display: h,
	}
}

// ADC: conversions finish instantly; completion is raised like the
// converter's interrupt would

func (h *Hardware) StartConversion(ch core.ADCChannelID) error {
	h.channel = ch
	h.conversions++
	h.sim.robot.IRQ.Raise(core.IRQADCComplete)
	return nil
}

func (h *Hardware) ReadLastConversion() (core.ADCValue, error) {
	i, ok := h.sensor[h.channel]
	if !ok {
		return core.ADCValue(h.sim.sc.FloorLevel), nil
	}
	if h.sim.pattern&(1<<i) != 0 {
		return core.ADCValue(h.sim.sc.LineLevel), nil
	}
	return core.ADCValue(h.sim.sc.FloorLevel), nil
}

// GPIO

func (h *Hardware) ConfigureInputPullUp(pin core.GPIOPin) error {
	h.pins[pin] = true
	return nil
}

func (h *Hardware) ConfigureInputPullDown(pin core.GPIOPin) error {
	h.pins[pin] = false
	return nil
}

func (h *Hardware) ReadPin(pin core.GPIOPin) bool {
	return h.pins[pin]
}

// Encoders

func (h *Hardware) ReadPhases() uint8 {
	return gray[h.wheelPhase[0]] | gray[h.wheelPhase[1]]<<2
}

// turnWheels advances each wheel by at most one quadrature step per
// millisecond, one step per 50% duty-milliseconds. It reports whether a
// phase changed.
func (h *Hardware) turnWheels() bool {
	moved := false
	for i, duty := range [core.NumEncoders]core.DutyPercent{h.right, h.left} {
		h.wheelAcc[i] += uint32(duty)
		if h.wheelAcc[i] >= 50 {
			h.wheelAcc[i] -= 50
			h.wheelPhase[i] = (h.wheelPhase[i] + 1) & 3
			h.wheelSteps[i]++
			moved = true
		}
	}
	return moved
}

// Motors

func (h *Hardware) SetDutyCycle(right, left core.DutyPercent) error {
	if right != h.right || left != h.left {
		h.sim.tracef("motors %d/%d", right, left)
	}
	h.right, h.left = right, left
	h.dutyCalls++
	return nil
}

func (h *Hardware) TurnAround() error {
	h.turnArounds++
	h.sim.tracef("turn around")
	return nil
}

// Display

func (h *Hardware) WriteDisplayByte(b byte) error {
	h.display = append(h.display, b)
	return nil
}

// Power

// EnterSleep fast-forwards the clock to the next button press, which wakes
// the board. With no press left the run ends asleep.
func (h *Hardware) EnterSleep() {
	h.sleeps++
	h.sim.tracef("sleep")
	for h.sim.now < h.sim.sc.DurationMS {
		h.sim.advance()
		if h.sim.pressEdge() {
			h.sim.tracef("wake")
			return
		}
	}
	h.sim.asleep = true
}
