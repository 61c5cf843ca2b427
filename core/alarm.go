package core

// Alarm is a compare-match alarm on the free-running counter. When the
// counter reaches the compare value the alarm latches its IRQ source; the
// source's handler is expected to call Rearm (periodic use) or Stop
// (one-shot use).
type Alarm struct {
	Name string

	timer   Timer
	sched   *Scheduler
	irq     *IRQController
	source  IRQSource
	period  uint32
	compare uint32
	armed   bool

	fired   uint32
	dropped uint32
}

// NewAlarm creates a disarmed alarm that raises src every period ticks
func NewAlarm(name string, sched *Scheduler, irq *IRQController, src IRQSource, period uint32) *Alarm {
	a := &Alarm{
		Name:   name,
		sched:  sched,
		irq:    irq,
		source: src,
		period: period,
	}
	a.timer.Handler = a.match
	return a
}

// match runs from the scheduler when the counter reaches the compare value
func (a *Alarm) match(t *Timer) uint8 {
	a.fired++
	RecordEvent(EvtAlarmMatch, uint8(sourceIndex(a.source)), t.WakeTime, a.fired, 0)
	a.irq.Raise(a.source)
	return SF_DONE
}

// Start arms the alarm so that it first matches one period after now,
// clears any stale match and unmasks its source.
func (a *Alarm) Start(now uint32) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	a.compare = now + a.period
	a.timer.WakeTime = a.compare
	a.armed = true
	a.irq.Clear(a.source)
	a.irq.Enable(a.source)
	a.sched.ScheduleTimer(&a.timer)
}

// Stop disarms the alarm, masks its source and drops a pending match
func (a *Alarm) Stop() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	a.armed = false
	a.sched.DeleteTimer(&a.timer)
	a.irq.Disable(a.source)
	a.irq.Clear(a.source)
}

// Rearm advances the compare value by exactly one period from its previous
// value, so a late handler does not shift later ticks. If that tick is
// already overdue it still fires once, late; any further whole periods that
// have also passed are dropped rather than queued.
func (a *Alarm) Rearm(now uint32) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if !a.armed {
		return
	}
	next := a.compare + a.period
	for !timerIsBefore(now, next+a.period) {
		next += a.period
		a.dropped++
	}
	a.compare = next
	a.timer.WakeTime = next
	a.sched.ScheduleTimer(&a.timer)
}

// Armed reports whether the alarm is running
func (a *Alarm) Armed() bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return a.armed
}

// Compare returns the current compare value
func (a *Alarm) Compare() uint32 {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return a.compare
}

// Period returns the alarm period in ticks
func (a *Alarm) Period() uint32 {
	return a.period
}

// Fired returns the number of compare matches so far
func (a *Alarm) Fired() uint32 {
	return a.fired
}

// Dropped returns the number of ticks skipped because the handler overran
func (a *Alarm) Dropped() uint32 {
	return a.dropped
}
