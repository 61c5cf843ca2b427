package core

import "testing"

func TestSchedulerOrdersByWakeTime(t *testing.T) {
	s := NewScheduler()
	var fired []uint32
	handler := func(tm *Timer) uint8 {
		fired = append(fired, tm.WakeTime)
		return SF_DONE
	}

	timers := []*Timer{
		{WakeTime: 300, Handler: handler},
		{WakeTime: 100, Handler: handler},
		{WakeTime: 200, Handler: handler},
	}
	for _, tm := range timers {
		s.ScheduleTimer(tm)
	}

	s.Dispatch(150)
	if len(fired) != 1 || fired[0] != 100 {
		t.Fatalf("Expected only the 100 timer to fire at 150, got %v", fired)
	}

	s.Dispatch(300)
	if len(fired) != 3 || fired[1] != 200 || fired[2] != 300 {
		t.Errorf("Expected timers in wake order, got %v", fired)
	}
	if s.Now() != 300 {
		t.Errorf("Expected Now()=300, got %d", s.Now())
	}
}

func TestSchedulerWrapAround(t *testing.T) {
	s := NewScheduler()
	var fired []uint32
	handler := func(tm *Timer) uint8 {
		fired = append(fired, tm.WakeTime)
		return SF_DONE
	}

	// 0x10 is after 0xFFFFFFF0 on the wrapping counter
	late := &Timer{WakeTime: 0x10, Handler: handler}
	early := &Timer{WakeTime: 0xFFFFFFF0, Handler: handler}
	s.ScheduleTimer(late)
	s.ScheduleTimer(early)

	s.Dispatch(0xFFFFFFF8)
	if len(fired) != 1 || fired[0] != 0xFFFFFFF0 {
		t.Fatalf("Expected pre-wrap timer only, got %v", fired)
	}
	s.Dispatch(0x20)
	if len(fired) != 2 || fired[1] != 0x10 {
		t.Errorf("Expected post-wrap timer to fire after wrap, got %v", fired)
	}
}

func TestSchedulerDeleteAndMove(t *testing.T) {
	s := NewScheduler()
	count := 0
	tm := &Timer{WakeTime: 100, Handler: func(*Timer) uint8 {
		count++
		return SF_DONE
	}}

	s.ScheduleTimer(tm)
	if !s.Queued(tm) {
		t.Fatal("Timer should be queued")
	}

	// Re-scheduling moves the timer instead of queueing it twice
	tm.WakeTime = 500
	s.ScheduleTimer(tm)
	s.Dispatch(200)
	if count != 0 {
		t.Fatalf("Moved timer fired early")
	}

	s.DeleteTimer(tm)
	if s.Queued(tm) {
		t.Error("Timer should not be queued after delete")
	}
	s.Dispatch(1000)
	if count != 0 {
		t.Errorf("Deleted timer fired %d times", count)
	}
}

func TestSchedulerReschedule(t *testing.T) {
	s := NewScheduler()
	count := 0
	tm := &Timer{WakeTime: 100}
	tm.Handler = func(t *Timer) uint8 {
		count++
		if count < 3 {
			t.WakeTime += 100
			return SF_RESCHEDULE
		}
		return SF_DONE
	}
	s.ScheduleTimer(tm)

	s.Dispatch(1000)
	if count != 3 {
		t.Errorf("Expected 3 firings, got %d", count)
	}
	if s.Queued(tm) {
		t.Error("Timer should be done")
	}
}
