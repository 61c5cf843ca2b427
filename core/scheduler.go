package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
	queued   bool
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler keeps pending timers sorted by wake time and fires the ones
// that are due. It stands in for the compare-match unit of the hardware
// timer: every Timer is one compare register.
type Scheduler struct {
	list *Timer
	now  uint32
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the time of the last dispatch
func (s *Scheduler) Now() uint32 {
	return s.now
}

// ScheduleTimer adds a timer to the schedule. A timer that is already
// queued is moved to its new wake time.
func (s *Scheduler) ScheduleTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if t.queued {
		s.remove(t)
	}
	s.insertTimer(t)
}

// DeleteTimer removes a timer from the schedule if it is queued
func (s *Scheduler) DeleteTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if t.queued {
		s.remove(t)
	}
}

// Queued reports whether the timer is waiting to fire
func (s *Scheduler) Queued(t *Timer) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return t.queued
}

// insertTimer inserts a timer in sorted order by WakeTime
func (s *Scheduler) insertTimer(t *Timer) {
	t.queued = true
	if s.list == nil || timerIsBefore(t.WakeTime, s.list.WakeTime) {
		t.Next = s.list
		s.list = t
		return
	}

	current := s.list
	for current.Next != nil && !timerIsBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

func (s *Scheduler) remove(t *Timer) {
	if s.list == t {
		s.list = t.Next
	} else {
		for cur := s.list; cur != nil; cur = cur.Next {
			if cur.Next == t {
				cur.Next = t.Next
				break
			}
		}
	}
	t.Next = nil
	t.queued = false
}

// Dispatch processes every timer whose WakeTime is at or before now
func (s *Scheduler) Dispatch(now uint32) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	s.now = now
	for s.list != nil && !timerIsBefore(now, s.list.WakeTime) {
		timer := s.list
		s.list = timer.Next
		timer.Next = nil // Clear Next pointer to avoid circular references
		timer.queued = false

		result := timer.Handler(timer)

		if result == SF_RESCHEDULE {
			s.insertTimer(timer)
		}
	}
}
