package core

import "sync/atomic"

// IRQSource is one interrupt condition. Each source is a single bit so the
// pending set fits a word that both tiers can update atomically.
type IRQSource uint32

// Interrupt sources. BusIdle and ButtonEdge form the high tier, everything
// else is low tier.
const (
	IRQBusIdle    IRQSource = 1 << iota // display shift register finished a byte
	IRQButtonEdge                       // raw edge on the start/stop button
	IRQADCComplete
	IRQEncoderChange
	IRQDebounce
	IRQDisplay
	IRQControl
	IRQObserve

	irqSourceCount = iota
)

const (
	highTierMask = IRQBusIdle | IRQButtonEdge
	lowTierMask  = IRQADCComplete | IRQEncoderChange | IRQDebounce |
		IRQDisplay | IRQControl | IRQObserve
)

// Drain order inside each tier. Earlier entries win when several sources
// are pending at once.
var (
	highTierOrder = [...]IRQSource{IRQBusIdle, IRQButtonEdge}
	lowTierOrder  = [...]IRQSource{IRQADCComplete, IRQEncoderChange, IRQDebounce,
		IRQDisplay, IRQControl, IRQObserve}
)

// IRQHandler services one source. It runs with the source already cleared.
type IRQHandler func()

// IRQController holds the pending and enable bits of every source and the
// two tier dispatchers. Raise may be called from any context; each tier's
// Service method must only be called from that tier.
type IRQController struct {
	pending  atomic.Uint32
	enabled  atomic.Uint32
	handlers [irqSourceCount]IRQHandler

	dispatched [irqSourceCount]atomic.Uint32 // bumped by both tiers
}

// NewIRQController returns a controller with every source disabled
func NewIRQController() *IRQController {
	return &IRQController{}
}

func sourceIndex(src IRQSource) int {
	for i := 0; i < irqSourceCount; i++ {
		if src == 1<<i {
			return i
		}
	}
	return -1
}

// SetHandler attaches the handler for src
func (c *IRQController) SetHandler(src IRQSource, h IRQHandler) {
	if i := sourceIndex(src); i >= 0 {
		c.handlers[i] = h
	}
}

// Enable unmasks src
func (c *IRQController) Enable(src IRQSource) {
	orBits(&c.enabled, uint32(src))
}

// Disable masks src. A pending flag is kept and serviced once re-enabled,
// the way an interrupt flag latches while its enable bit is clear.
func (c *IRQController) Disable(src IRQSource) {
	clearBits(&c.enabled, uint32(src))
}

// Enabled reports whether src is unmasked
func (c *IRQController) Enabled(src IRQSource) bool {
	return c.enabled.Load()&uint32(src) != 0
}

// Raise latches src as pending
func (c *IRQController) Raise(src IRQSource) {
	orBits(&c.pending, uint32(src))
}

// Clear drops a pending flag without servicing it
func (c *IRQController) Clear(src IRQSource) {
	clearBits(&c.pending, uint32(src))
}

// Pending reports whether src is latched
func (c *IRQController) Pending(src IRQSource) bool {
	return c.pending.Load()&uint32(src) != 0
}

// HighPending reports whether any enabled high tier source is latched
func (c *IRQController) HighPending() bool {
	return c.pending.Load()&c.enabled.Load()&uint32(highTierMask) != 0
}

// LowPending reports whether any enabled low tier source is latched
func (c *IRQController) LowPending() bool {
	return c.pending.Load()&c.enabled.Load()&uint32(lowTierMask) != 0
}

// ServiceHigh drains every enabled, pending high tier source
func (c *IRQController) ServiceHigh() int {
	return c.drain(highTierOrder[:])
}

// ServiceLow drains every enabled, pending low tier source. High tier
// sources raised while it runs are serviced first.
func (c *IRQController) ServiceLow() int {
	n := 0
	for {
		if c.HighPending() {
			n += c.ServiceHigh()
		}
		src, ok := c.next(lowTierOrder[:])
		if !ok {
			return n
		}
		if c.run(src) {
			n++
		}
	}
}

// Dispatched returns how many times src has been serviced
func (c *IRQController) Dispatched(src IRQSource) uint32 {
	if i := sourceIndex(src); i >= 0 {
		return c.dispatched[i].Load()
	}
	return 0
}

func (c *IRQController) drain(order []IRQSource) int {
	n := 0
	for {
		src, ok := c.next(order)
		if !ok {
			return n
		}
		if c.run(src) {
			n++
		}
	}
}

func (c *IRQController) next(order []IRQSource) (IRQSource, bool) {
	ready := c.pending.Load() & c.enabled.Load()
	for _, src := range order {
		if ready&uint32(src) != 0 {
			return src, true
		}
	}
	return 0, false
}

func (c *IRQController) run(src IRQSource) bool {
	if !claimBit(&c.pending, uint32(src)) {
		// serviced from the other tier in the meantime
		return false
	}
	i := sourceIndex(src)
	n := c.dispatched[i].Add(1)
	RecordEvent(EvtIRQ, uint8(i), GetTime(), n, 0)
	if h := c.handlers[i]; h != nil {
		h()
	}
	return true
}

func orBits(v *atomic.Uint32, bits uint32) {
	for {
		old := v.Load()
		if v.CompareAndSwap(old, old|bits) {
			return
		}
	}
}

// claimBit clears bit and reports whether it was set
func claimBit(v *atomic.Uint32, bit uint32) bool {
	for {
		old := v.Load()
		if old&bit == 0 {
			return false
		}
		if v.CompareAndSwap(old, old&^bit) {
			return true
		}
	}
}

func clearBits(v *atomic.Uint32, bits uint32) {
	for {
		old := v.Load()
		if v.CompareAndSwap(old, old&^bits) {
			return
		}
	}
}
