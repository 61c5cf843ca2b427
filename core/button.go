package core

import "sync/atomic"

// Toggler owns the start/pause command semantics of a button press.
type Toggler interface {
	Toggle(cmd bool) bool
}

// FlipToggler alternates between go and pause on every press
type FlipToggler struct{}

// Toggle returns the opposite command
func (FlipToggler) Toggle(cmd bool) bool {
	return !cmd
}

// Button debounces the start/stop button with an edge interrupt and a
// one-shot alarm. A press is accepted only when the pin reads active both
// at edge time and at debounce expiry.
type Button struct {
	pin        GPIOPin
	activeHigh bool
	gpio       GPIODriver
	irq        *IRQController
	debounce   *Alarm

	// high tier
	state0 atomic.Bool

	// low tier
	state    bool
	presses  Seq
	rejected atomic.Uint32

	// main loop
	consumed uint32
}

// NewButton wires the button to its pin and debounce alarm
func NewButton(gpio GPIODriver, pin GPIOPin, activeHigh bool, irq *IRQController, debounce *Alarm) *Button {
	return &Button{
		pin:        pin,
		activeHigh: activeHigh,
		gpio:       gpio,
		irq:        irq,
		debounce:   debounce,
	}
}

func (b *Button) active() bool {
	return b.gpio.ReadPin(b.pin) == b.activeHigh
}

// OnEdge handles a raw edge (high tier). Further edges are masked until the
// debounce alarm expires.
func (b *Button) OnEdge(now uint32) {
	b.irq.Disable(IRQButtonEdge)
	b.state0.Store(b.active())
	b.debounce.Start(now)
}

// OnDebounce handles debounce expiry (low tier)
func (b *Button) OnDebounce() {
	b.state = b.active()
	if b.state && b.state0.Load() {
		n := b.presses.Bump()
		RecordEvent(EvtPress, 0, GetTime(), n, 0)
	} else {
		r := b.rejected.Add(1)
		RecordEvent(EvtPressRejected, 0, GetTime(), r, 0)
	}
	b.debounce.Stop()
	b.irq.Clear(IRQButtonEdge)
	b.irq.Enable(IRQButtonEdge)
}

// TakePresses returns the number of accepted presses since the last call.
// Main loop only.
func (b *Button) TakePresses() uint32 {
	total := b.presses.Load()
	n := total - b.consumed
	b.consumed = total
	return n
}

// Presses returns the number of accepted presses so far
func (b *Button) Presses() uint32 {
	return b.presses.Load()
}

// Rejected returns the number of edges discarded as noise
func (b *Button) Rejected() uint32 {
	return b.rejected.Load()
}
