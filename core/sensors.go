package core

import "sync/atomic"

// Acquisition constants
const (
	NumSensors       = 3
	SamplesPerSensor = 2    // first sample after a channel switch is discarded
	ADCCutoff        = 3500 // 12-bit reading at or above this sees the line
)

// IRSensor is one reflective line sensor on the shared ADC.
type IRSensor struct {
	Channel ADCChannelID // multiplexer selector
	Index   uint8        // bit in the composite measurement
	LED     uint8        // bit in the display byte
	Raw     ADCValue     // last thresholded reading
}

// DefaultSensors returns the stock left-to-right sensor wiring.
func DefaultSensors() [NumSensors]IRSensor {
	return [NumSensors]IRSensor{
		{Channel: 0, Index: 0, LED: 6},
		{Channel: 1, Index: 1, LED: 5},
		{Channel: 2, Index: 2, LED: 4},
	}
}

// Sample is one finished conversion together with the channel it was taken on
type Sample struct {
	Channel ADCChannelID
	Value   ADCValue
}

// Acquisition round-robins the ADC across the sensor ring and publishes a
// composite measurement once per full round.
//
// Ownership: OnObserve and OnConversionComplete run in the low interrupt
// tier, Process runs in the main loop. Every field below has exactly one
// writing context; the atomics are the read side for the other one.
type Acquisition struct {
	sensors [NumSensors]IRSensor
	cutoff  ADCValue

	// main loop
	read      uint8
	counter   uint8
	tmpMask   uint8
	tmpLEDs   uint8
	ledMask   uint8
	next      atomic.Uint32
	composite atomic.Uint32
	leds      atomic.Uint32
	rounds    atomic.Uint32
	processed Seq

	// low tier
	latched ADCChannelID
	started Seq
	mailbox Handoff[Sample]
}

// NewAcquisition creates the acquisition state machine with the first
// sensor selected.
func NewAcquisition(sensors [NumSensors]IRSensor, cutoff ADCValue) *Acquisition {
	a := &Acquisition{
		sensors: sensors,
		cutoff:  cutoff,
		latched: sensors[0].Channel,
	}
	for _, s := range sensors {
		a.ledMask |= 1 << s.LED
	}
	return a
}

// OnObserve starts the next conversion if the previous result has been
// consumed by the main loop. Called from the Observe alarm handler.
func (a *Acquisition) OnObserve(adc ADCDriver) error {
	if a.started.Load() != a.processed.Load() {
		return nil
	}
	if err := adc.StartConversion(a.latched); err != nil {
		return err
	}
	a.started.Bump()
	return nil
}

// OnConversionComplete captures the finished conversion and latches the
// channel of the following one from the scheduled next sensor. Called from
// the ADC-complete handler.
func (a *Acquisition) OnConversionComplete(adc ADCDriver) error {
	v, err := adc.ReadLastConversion()
	ch := a.latched
	a.latched = a.sensors[a.next.Load()].Channel
	if err != nil {
		// Hand over an empty sample so the pipeline keeps moving; it is
		// counted but never classified as line.
		v = 0
	}
	a.mailbox.Put(Sample{Channel: ch, Value: v})
	return err
}

// Process consumes one pending sample. It returns whether a sample was
// taken and whether that sample completed a round.
func (a *Acquisition) Process() (took bool, round bool) {
	s, ok := a.mailbox.Take()
	if !ok {
		return false, false
	}
	defer a.processed.Bump()

	a.counter++
	sensor := &a.sensors[a.read]

	if a.counter < SamplesPerSensor {
		// Settling sample after a multiplexer change. The sensor's last
		// conversion is already in flight, so move the schedule on.
		if a.counter == SamplesPerSensor-1 && a.next.Load() == uint32(a.read) {
			a.next.Store(uint32((a.read + 1) % NumSensors))
		}
		return true, false
	}

	sensor.Raw = s.Value
	a.classify(sensor, s.Value)

	if a.next.Load() != uint32(a.read) {
		a.read = uint8(a.next.Load())
		a.counter = 0
		if a.read == 0 {
			a.publish()
			return true, true
		}
	}
	return true, false
}

func (a *Acquisition) classify(s *IRSensor, v ADCValue) {
	on := v >= a.cutoff
	if on {
		a.tmpMask |= 1 << s.Index
		a.tmpLEDs |= 1 << s.LED
	} else {
		a.tmpMask &^= 1 << s.Index
		a.tmpLEDs &^= 1 << s.LED
	}
	var bit uint32
	if on {
		bit = 1
	}
	RecordEvent(EvtClassify, s.Index, GetTime(), uint32(v), bit)
}

func (a *Acquisition) publish() {
	a.composite.Store(uint32(a.tmpMask))
	a.leds.Store(uint32(a.tmpLEDs))
	n := a.rounds.Add(1)
	RecordEvent(EvtRound, a.tmpMask, GetTime(), n, uint32(a.tmpLEDs))
}

// Composite returns the last published 3-bit measurement
func (a *Acquisition) Composite() uint8 {
	return uint8(a.composite.Load())
}

// LEDs returns the display bits mirroring the last published measurement
func (a *Acquisition) LEDs() uint8 {
	return uint8(a.leds.Load())
}

// LEDMask returns every display bit owned by a sensor
func (a *Acquisition) LEDMask() uint8 {
	return a.ledMask
}

// Rounds returns the number of published rounds
func (a *Acquisition) Rounds() uint32 {
	return a.rounds.Load()
}

// Busy reports whether a conversion is in flight or waiting to be processed
func (a *Acquisition) Busy() bool {
	return a.started.Load() != a.processed.Load()
}

// Reading returns the sensor currently being read and the one scheduled next
func (a *Acquisition) Reading() (read, next uint8) {
	return a.read, uint8(a.next.Load())
}

// Sensor returns a copy of sensor i. Main loop only.
func (a *Acquisition) Sensor(i int) IRSensor {
	return a.sensors[i]
}
