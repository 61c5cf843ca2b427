package core

// Recovery runs in the main loop as a small resumable sequence:
//
//	trip -> pause delivery -> light show on the Display period ->
//	fault action (stop: turn around) -> reset command and counter ->
//	(stop: sleep until the next external interrupt)
//
// Button presses that arrive before the sequence ends are dropped.

// queueShow asks the Display handler to run p. A request that cannot be
// queued yet is retried by showFinished.
func (r *Robot) queueShow(p ShowPattern) {
	r.showSeen = r.Display.Done()
	r.showPending = true
	r.showQueued = r.Display.RequestShow(p)
	if !r.showQueued {
		r.retryShow = p
	}
}

// showFinished reports whether the queued show has run to completion
func (r *Robot) showFinished() bool {
	if !r.showPending {
		return true
	}
	if !r.showQueued {
		r.showQueued = r.Display.RequestShow(r.retryShow)
		return false
	}
	if r.Display.Done() == r.showSeen {
		return false
	}
	r.showPending = false
	return true
}

func patternFor(k FaultKind) ShowPattern {
	if k == FaultStop {
		return ShowStop
	}
	return ShowLost
}

func (r *Robot) beginRecovery(k FaultKind) {
	now := GetTime()
	RecordEvent(EvtTrip, uint8(k), now, r.Faults.Lost(), r.Faults.Stop())
	DebugPrintln("[ROBOT] fault " + k.String() + " at " + utoa(now))
	if IsDebugEnabled() {
		DumpTraceRing()
	}

	r.PauseDelivery()
	r.recovering = k
	r.setState(StateRecovering)
	r.queueShow(patternFor(k))

	if r.opts.Reporter != nil {
		r.opts.Reporter.ReportFault(k, now)
	}
}

func (r *Robot) advanceRecovery() {
	if !r.showFinished() {
		return
	}
	k := r.recovering

	if k == FaultStop && r.hw.Motor != nil {
		r.turnArounds++
		if err := r.hw.Motor.TurnAround(); err != nil {
			r.driverError(2, err)
		}
	}

	r.goFlag = false
	r.goFlag0 = false
	r.Faults.RequestClear(k)
	r.Button.TakePresses()
	r.recovering = FaultNone

	if k == FaultStop {
		r.sleep()
	}
	r.setState(StatePaused)
	RecordEvent(EvtRecovery, uint8(k), GetTime(), r.Faults.Lost(), r.Faults.Stop())
}

// Recovering returns the fault being recovered from, or FaultNone
func (r *Robot) Recovering() FaultKind {
	return r.recovering
}
