// Package sim runs the robot core on virtual hardware against a scripted
// track. The core keeps its clock and trace ring in package state, so only
// one Simulator may run at a time.
package sim

import (
	"fmt"
	"io"
	"strings"

	"linebot/core"
	"linebot/host/monitor"
)

// Simulator drives one scenario
type Simulator struct {
	sc    *Scenario
	opts  core.Options
	robot *core.Robot
	hw    *Hardware

	now       uint32 // ms
	pattern   uint8
	nextPress int
	releaseAt uint32
	asleep    bool
	lastState core.RobotState

	trace   []string
	out     io.Writer
	verbose bool

	events []monitor.Event
	faults []core.FaultKind
}

// New builds a simulator for sc. Trace lines are also written to out when
// it is not nil; verbose adds the periodic status reports.
func New(sc *Scenario, out io.Writer, verbose bool) (*Simulator, error) {
	opts, err := sc.Robot.ToOptions()
	if err != nil {
		return nil, err
	}
	s := &Simulator{
		sc:      sc,
		out:     out,
		verbose: verbose,
	}
	opts.Reporter = s
	s.opts = opts
	s.hw = newHardware(s, opts.Sensors)
	s.hw.pins[opts.ButtonPin] = !opts.ButtonActiveHigh

	core.SetTime(0)
	core.TimerInit()
	core.ClearTraceRing()
	s.pattern = sc.patternAt(0)
	s.robot = core.NewRobot(s.hw.drivers(), opts)
	return s, nil
}

// Robot returns the simulated robot
func (s *Simulator) Robot() *core.Robot {
	return s.robot
}

// Run plays the scenario to its end, or until the robot sleeps with no
// press left to wake it
func (s *Simulator) Run() *Result {
	s.robot.Start()
	s.lastState = s.robot.State()
	s.tracef("start %s", s.lastState)

	for s.now < s.sc.DurationMS && !s.asleep {
		s.advance()
		s.pressEdge()
		if s.hw.turnWheels() {
			s.robot.RaiseEdge(core.IRQEncoderChange)
		}
		s.robot.Poll()
		s.watchState()
	}
	if s.asleep {
		s.tracef("asleep, no press left")
	}
	return s.result()
}

// advance moves the clock one millisecond
func (s *Simulator) advance() {
	s.now++
	core.SetTime(core.TimerFromMS(s.now))
	s.pattern = s.sc.patternAt(s.now)
	if s.releaseAt == s.now {
		s.hw.pins[s.opts.ButtonPin] = !s.opts.ButtonActiveHigh
	}
}

// pressEdge starts the next scripted press if it is due
func (s *Simulator) pressEdge() bool {
	if s.nextPress >= len(s.sc.Presses) || s.sc.Presses[s.nextPress] > s.now {
		return false
	}
	s.nextPress++
	s.hw.pins[s.opts.ButtonPin] = s.opts.ButtonActiveHigh
	s.releaseAt = s.now + s.sc.HoldMS
	s.tracef("button down")
	s.robot.RaiseEdge(core.IRQButtonEdge)
	for i := uint32(0); i < s.sc.Bounces; i++ {
		s.robot.RaiseEdge(core.IRQButtonEdge)
	}
	return true
}

func (s *Simulator) watchState() {
	if st := s.robot.State(); st != s.lastState {
		s.lastState = st
		s.tracef("state %s", st)
	}
}

func (s *Simulator) tracef(format string, args ...any) {
	line := fmt.Sprintf("%9.3fs ", float64(s.now)/1000) + fmt.Sprintf(format, args...)
	s.trace = append(s.trace, line)
	if s.out != nil {
		fmt.Fprintln(s.out, line)
	}
}

// ReportStatus records a status report
func (s *Simulator) ReportStatus(snap core.Snapshot) {
	ev := monitor.Event{Kind: monitor.KindStatus, Status: core.StatusMessageFrom(snap), Clock: snap.Clock}
	s.events = append(s.events, ev)
	if s.verbose {
		s.tracef("%s", strings.TrimSpace(ev.String()))
	}
}

// ReportFault records a fault trip
func (s *Simulator) ReportFault(kind core.FaultKind, clock uint32) {
	s.faults = append(s.faults, kind)
	s.events = append(s.events, monitor.Event{Kind: monitor.KindFault, Value: uint8(kind), Clock: clock})
	s.tracef("fault %s", kind)
}

// ReportCommand records a go/pause change
func (s *Simulator) ReportCommand(goFlag bool, clock uint32) {
	ev := monitor.Event{Kind: monitor.KindCommand, Clock: clock}
	if goFlag {
		ev.Value = 1
	}
	s.events = append(s.events, ev)
	s.tracef("command go=%v", goFlag)
}

// Result summarizes a finished run
type Result struct {
	Name        string
	EndMS       uint32
	State       core.RobotState
	Asleep      bool
	Faults      []core.FaultKind
	Events      []monitor.Event
	Sleeps      uint32
	TurnArounds uint32
	Presses     uint32
	Rounds      uint32
	EncoderA    int32
	EncoderB    int32
	WheelSteps  [core.NumEncoders]int32
	Conversions uint32
	Display     []byte
	Trace       []string
}

func (s *Simulator) result() *Result {
	a, b := s.robot.Encoders.Counts()
	state := s.robot.State()
	if s.asleep {
		state = core.StateSleeping
	}
	return &Result{
		Name:        s.sc.Name,
		EndMS:       s.now,
		State:       state,
		Asleep:      s.asleep,
		Faults:      s.faults,
		Events:      s.events,
		Sleeps:      s.hw.sleeps,
		TurnArounds: s.hw.turnArounds,
		Presses:     s.robot.Button.Presses(),
		Rounds:      s.robot.Acq.Rounds(),
		EncoderA:    a,
		EncoderB:    b,
		WheelSteps:  s.hw.wheelSteps,
		Conversions: s.hw.conversions,
		Display:     s.hw.display,
		Trace:       s.trace,
	}
}

// Check compares the result with the scenario's expectations
func (r *Result) Check(e *Expect) error {
	if e == nil {
		return nil
	}
	var failed []string
	if e.State != "" && r.State.String() != e.State {
		failed = append(failed, fmt.Sprintf("state %s, want %s", r.State, e.State))
	}
	if e.Faults != nil {
		got := make([]string, len(r.Faults))
		for i, f := range r.Faults {
			got[i] = f.String()
		}
		if strings.Join(got, ",") != strings.Join(e.Faults, ",") {
			failed = append(failed, fmt.Sprintf("faults %v, want %v", got, e.Faults))
		}
	}
	if e.Sleeps != nil && r.Sleeps != *e.Sleeps {
		failed = append(failed, fmt.Sprintf("sleeps %d, want %d", r.Sleeps, *e.Sleeps))
	}
	if e.TurnArounds != nil && r.TurnArounds != *e.TurnArounds {
		failed = append(failed, fmt.Sprintf("turn arounds %d, want %d", r.TurnArounds, *e.TurnArounds))
	}
	if r.Rounds < e.MinRounds {
		failed = append(failed, fmt.Sprintf("rounds %d, want at least %d", r.Rounds, e.MinRounds))
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrExpect, r.Name, strings.Join(failed, "; "))
	}
	return nil
}
