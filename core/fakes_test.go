package core

import "errors"

var errFake = errors.New("fake driver failure")

// fakeADC returns a fixed value per channel, or queued values in order
type fakeADC struct {
	values   map[ADCChannelID]ADCValue
	queue    []ADCValue
	started  []ADCChannelID
	last     ADCChannelID
	startErr error
	readErr  error
	onStart  func()
}

func newFakeADC() *fakeADC {
	return &fakeADC{values: make(map[ADCChannelID]ADCValue)}
}

func (f *fakeADC) StartConversion(ch ADCChannelID) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, ch)
	f.last = ch
	if f.onStart != nil {
		f.onStart()
	}
	return nil
}

func (f *fakeADC) ReadLastConversion() (ADCValue, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.queue) > 0 {
		v := f.queue[0]
		f.queue = f.queue[1:]
		return v, nil
	}
	return f.values[f.last], nil
}

// setPattern makes every sensor whose bit is set in mask read the line
func (f *fakeADC) setPattern(mask uint8) {
	for i, s := range DefaultSensors() {
		if mask&(1<<i) != 0 {
			f.values[s.Channel] = 4095
		} else {
			f.values[s.Channel] = 100
		}
	}
}

type fakeGPIO struct {
	pins map[GPIOPin]bool
}

func newFakeGPIO() *fakeGPIO {
	return &fakeGPIO{pins: make(map[GPIOPin]bool)}
}

func (f *fakeGPIO) ConfigureInputPullUp(pin GPIOPin) error   { return nil }
func (f *fakeGPIO) ConfigureInputPullDown(pin GPIOPin) error { return nil }
func (f *fakeGPIO) ReadPin(pin GPIOPin) bool                 { return f.pins[pin] }

type fakePhases struct {
	value uint8
}

func (f *fakePhases) ReadPhases() uint8 { return f.value }

type dutyCall struct {
	right, left DutyPercent
}

type fakeMotor struct {
	calls       []dutyCall
	turnArounds int
	err         error
}

func (f *fakeMotor) SetDutyCycle(right, left DutyPercent) error {
	f.calls = append(f.calls, dutyCall{right, left})
	return f.err
}

func (f *fakeMotor) TurnAround() error {
	f.turnArounds++
	return f.err
}

func (f *fakeMotor) last() dutyCall {
	if len(f.calls) == 0 {
		return dutyCall{}
	}
	return f.calls[len(f.calls)-1]
}

type fakeDisplay struct {
	bytes []byte
	err   error
}

func (f *fakeDisplay) WriteDisplayByte(b byte) error {
	f.bytes = append(f.bytes, b)
	return f.err
}

// blinkPairs counts 0xFF -> 0x00 transitions in bytes[from:]
func (f *fakeDisplay) blinkPairs(from int) int {
	n := 0
	for i := from + 1; i < len(f.bytes); i++ {
		if f.bytes[i-1] == showOn && f.bytes[i] == showOff {
			n++
		}
	}
	return n
}

type fakePower struct {
	sleeps  int
	onSleep func()
}

func (f *fakePower) EnterSleep() {
	f.sleeps++
	if f.onSleep != nil {
		f.onSleep()
	}
}

type fakeSPI struct {
	sent []byte
	err  error
}

func (f *fakeSPI) Tx(w, r []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, w...)
	return nil
}

func (f *fakeSPI) Transfer(b byte) (byte, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.sent = append(f.sent, b)
	return 0, nil
}

type fakeLatch struct {
	pulses int
	high   bool
}

func (f *fakeLatch) Set(high bool) {
	if high && !f.high {
		f.pulses++
	}
	f.high = high
}

// rig is a robot on fake hardware with a manually advanced clock
type rig struct {
	adc    *fakeADC
	gpio   *fakeGPIO
	phases *fakePhases
	motor  *fakeMotor
	disp   *fakeDisplay
	power  *fakePower
	r      *Robot
}

const (
	rigStep      = 500 // 1ms
	rigButtonPin = GPIOPin(3)
)

func newRig(opts Options) *rig {
	SetClockSource(nil)
	SetTime(1000)
	ClearTraceRing()

	g := &rig{
		adc:    newFakeADC(),
		gpio:   newFakeGPIO(),
		phases: &fakePhases{},
		motor:  &fakeMotor{},
		disp:   &fakeDisplay{},
		power:  &fakePower{},
	}
	opts.ButtonPin = rigButtonPin
	g.r = NewRobot(Hardware{
		ADC:     g.adc,
		GPIO:    g.gpio,
		Phases:  g.phases,
		Motor:   g.motor,
		Power:   g.power,
		Display: g.disp,
	}, opts)
	g.adc.onStart = func() {
		g.r.IRQ.Raise(IRQADCComplete)
	}
	return g
}

func newStartedRig() *rig {
	opts := DefaultOptions()
	opts.SkipStartupShow = true
	g := newRig(opts)
	g.r.Start()
	return g
}

// advanceMS moves the clock forward in 1ms steps, polling after each
func (g *rig) advanceMS(ms int) {
	for i := 0; i < ms; i++ {
		SetTime(GetTime() + rigStep)
		g.r.Poll()
	}
}

// press holds the button through one debounce period
func (g *rig) press() {
	g.gpio.pins[rigButtonPin] = true
	g.r.RaiseEdge(IRQButtonEdge)
	g.advanceMS(25)
	g.gpio.pins[rigButtonPin] = false
}
