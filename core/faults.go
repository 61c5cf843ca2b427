package core

import "sync/atomic"

// FaultThreshold is the number of consecutive abnormal Control ticks that
// are tolerated. The next one trips recovery.
const FaultThreshold = 10

// FaultKind names a recovery sequence. Values are bit flags so a clear
// request can cover both counters.
type FaultKind uint8

const (
	FaultNone FaultKind = 0
	FaultLost FaultKind = 1 << 0 // line lost or ambiguous
	FaultStop FaultKind = 1 << 1 // stop marker under all sensors

	faultAll = FaultLost | FaultStop
)

func (k FaultKind) String() string {
	switch k {
	case FaultNone:
		return "none"
	case FaultLost:
		return "lost"
	case FaultStop:
		return "stop"
	}
	return "lost|stop"
}

// FaultCounters tracks consecutive abnormal classifications.
//
// The counters are written only by the Control handler. The main loop asks
// for a reset through a request/ack sequence; the reset is applied at the
// start of the next Control tick, and until then the cleared counters read
// as zero.
type FaultCounters struct {
	// control handler
	lost atomic.Uint32
	stop atomic.Uint32
	ack  atomic.Uint32

	// main loop
	clearMask atomic.Uint32
	clearSeq  Seq
}

// Apply folds one classification into the counters. Control handler only.
func (f *FaultCounters) Apply(s Status) {
	if seq := f.clearSeq.Load(); seq != f.ack.Load() {
		m := FaultKind(f.clearMask.Load())
		if m&FaultLost != 0 {
			f.lost.Store(0)
		}
		if m&FaultStop != 0 {
			f.stop.Store(0)
		}
		f.ack.Store(seq)
	}

	switch s {
	case StatusNormal:
		f.lost.Store(0)
		f.stop.Store(0)
	case StatusStopSignal:
		saturatingInc(&f.stop)
	default:
		saturatingInc(&f.lost)
	}
}

func saturatingInc(c *atomic.Uint32) {
	if v := c.Load(); v <= FaultThreshold {
		c.Store(v + 1)
	}
}

// RequestClear asks the Control handler to zero the given counters.
// Main loop only.
func (f *FaultCounters) RequestClear(kinds FaultKind) {
	if f.clearPending() {
		kinds |= FaultKind(f.clearMask.Load())
	}
	f.clearMask.Store(uint32(kinds))
	f.clearSeq.Bump()
}

func (f *FaultCounters) clearPending() bool {
	return f.clearSeq.Load() != f.ack.Load()
}

func (f *FaultCounters) cleared(k FaultKind) bool {
	return f.clearPending() && FaultKind(f.clearMask.Load())&k != 0
}

// Lost returns the consecutive NoSignal count
func (f *FaultCounters) Lost() uint32 {
	if f.cleared(FaultLost) {
		return 0
	}
	return f.lost.Load()
}

// Stop returns the consecutive StopSignal count
func (f *FaultCounters) Stop() uint32 {
	if f.cleared(FaultStop) {
		return 0
	}
	return f.stop.Load()
}

// Tripped returns the fault whose counter has passed the threshold, lost
// first. Main loop only.
func (f *FaultCounters) Tripped() FaultKind {
	if f.Lost() > FaultThreshold {
		return FaultLost
	}
	if f.Stop() > FaultThreshold {
		return FaultStop
	}
	return FaultNone
}
