package core

import (
	"sync/atomic"

	"tinygo.org/x/drivers"
)

// Hardware bundles the capability drivers the robot runs on.
type Hardware struct {
	ADC    ADCDriver
	GPIO   GPIODriver
	Phases PhaseReader
	Motor  MotorDriver
	Power  PowerControl

	// Display receives the status byte. When nil the robot builds a
	// ShiftDisplay on DisplayBus/DisplayLatch.
	Display      DisplayWriter
	DisplayBus   drivers.SPI
	DisplayLatch LatchPin
}

// RegisteredHardware collects the drivers registered by target code through
// the Set* functions.
func RegisteredHardware() Hardware {
	bus, latch := MustDisplayBus()
	return Hardware{
		ADC:          MustADC(),
		GPIO:         MustGPIO(),
		Phases:       MustPhaseReader(),
		Motor:        MustMotor(),
		Power:        MustPower(),
		DisplayBus:   bus,
		DisplayLatch: latch,
	}
}

// Options are the board-level settings of a robot
type Options struct {
	Sensors          [NumSensors]IRSensor
	Cutoff           ADCValue
	ButtonPin        GPIOPin
	ButtonActiveHigh bool
	BlinkPeriods     uint8
	StatusPeriods    uint32 // Control ticks between status reports, 0 = never
	SkipStartupShow  bool
	Toggler          Toggler
	Reporter         Reporter
}

// DefaultOptions returns the stock board settings
func DefaultOptions() Options {
	return Options{
		Sensors:          DefaultSensors(),
		Cutoff:           ADCCutoff,
		ButtonActiveHigh: true,
		BlinkPeriods:     BlinkPeriods,
		StatusPeriods:    10,
	}
}

// RobotState is the main loop's view of what the robot is doing
type RobotState uint8

const (
	StateStarting RobotState = iota
	StatePaused
	StateDelivering
	StateRecovering
	StateSleeping
)

func (s RobotState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StatePaused:
		return "paused"
	case StateDelivering:
		return "delivering"
	case StateRecovering:
		return "recovering"
	case StateSleeping:
		return "sleeping"
	}
	return "unknown"
}

// Reporter receives the robot's outbound notifications. Calls are made from
// the main loop only.
type Reporter interface {
	ReportStatus(s Snapshot)
	ReportFault(kind FaultKind, clock uint32)
	ReportCommand(goFlag bool, clock uint32)
}

// Snapshot is a consistent-enough view of the robot for telemetry
type Snapshot struct {
	Clock        uint32
	State        RobotState
	Composite    uint8
	Lost         uint32
	Stop         uint32
	EncoderA     int32
	EncoderB     int32
	Rounds       uint32
	Right        DutyPercent
	Left         DutyPercent
	Status       Status
	Presses      uint32
	DriverErrors uint32
}

// Robot wires the acquisition, encoder, button, controller, fault and
// display state machines onto the alarms and the two interrupt tiers.
//
// Motor ownership: the Control handler drives the motors while delivering;
// the main loop drives them otherwise. Starting and stopping the Control
// alarm hands ownership over.
type Robot struct {
	hw   Hardware
	opts Options

	Sched *Scheduler
	IRQ   *IRQController

	Observe      *Alarm
	Control      *Alarm
	DisplayAlarm *Alarm
	Debounce     *Alarm

	Acq      *Acquisition
	Encoders EncoderPair
	Button   *Button
	Display  *Display
	Shift    *ShiftDisplay
	Faults   FaultCounters

	// control handler
	steering     atomic.Uint32
	controlTicks Seq

	// any context
	driverErrors atomic.Uint32

	// main loop
	state       atomic.Uint32
	goFlag      bool
	goFlag0     bool
	recovering  FaultKind
	showPending bool
	showQueued  bool
	showSeen    uint32
	retryShow   ShowPattern
	statusSeen  uint32
	sleeps      uint32
	turnArounds uint32
}

// NewRobot builds a robot on hw. Nothing runs until Start.
func NewRobot(hw Hardware, opts Options) *Robot {
	if opts.Toggler == nil {
		opts.Toggler = FlipToggler{}
	}
	if opts.Cutoff == 0 {
		opts.Cutoff = ADCCutoff
	}

	r := &Robot{
		hw:    hw,
		opts:  opts,
		Sched: NewScheduler(),
		IRQ:   NewIRQController(),
	}

	r.Observe = NewAlarm("observe", r.Sched, r.IRQ, IRQObserve, ObserveTicks)
	r.Control = NewAlarm("control", r.Sched, r.IRQ, IRQControl, ControlTicks)
	r.DisplayAlarm = NewAlarm("display", r.Sched, r.IRQ, IRQDisplay, DisplayTicks)
	r.Debounce = NewAlarm("debounce", r.Sched, r.IRQ, IRQDebounce, DebounceTicks)

	r.Acq = NewAcquisition(opts.Sensors, opts.Cutoff)
	r.Button = NewButton(hw.GPIO, opts.ButtonPin, opts.ButtonActiveHigh, r.IRQ, r.Debounce)

	out := hw.Display
	if out == nil {
		r.Shift = NewShiftDisplay(hw.DisplayBus, hw.DisplayLatch, r.IRQ)
		out = r.Shift
	}
	r.Display = NewDisplay(out, opts.BlinkPeriods)

	r.IRQ.SetHandler(IRQBusIdle, r.onBusIdle)
	r.IRQ.SetHandler(IRQButtonEdge, r.onButtonEdge)
	r.IRQ.SetHandler(IRQADCComplete, r.onADCComplete)
	r.IRQ.SetHandler(IRQEncoderChange, r.onEncoderChange)
	r.IRQ.SetHandler(IRQDebounce, r.Button.OnDebounce)
	r.IRQ.SetHandler(IRQDisplay, r.onDisplay)
	r.IRQ.SetHandler(IRQControl, r.onControl)
	r.IRQ.SetHandler(IRQObserve, r.onObserve)

	r.state.Store(uint32(StatePaused))
	return r
}

// Start arms the pipeline: motors off, sources unmasked, Observe and
// Display alarms running, and the startup light show queued.
func (r *Robot) Start() {
	now := GetTime()
	r.driveMotors(0, 0)

	if r.Shift != nil {
		r.IRQ.Enable(IRQBusIdle)
	}
	r.IRQ.Enable(IRQADCComplete)
	r.IRQ.Enable(IRQEncoderChange)
	r.IRQ.Enable(IRQButtonEdge)
	if r.hw.Phases != nil {
		r.Encoders.Seed(r.hw.Phases.ReadPhases())
	}

	r.Observe.Start(now)
	r.DisplayAlarm.Start(now)

	if r.opts.SkipStartupShow {
		r.setState(StatePaused)
		return
	}
	r.setState(StateStarting)
	r.queueShow(ShowStartup)
}

// Poll runs one pass of the main loop: fire due alarms, drain the low tier
// and run the deferred work.
func (r *Robot) Poll() {
	r.Sched.Dispatch(GetTime())
	r.IRQ.ServiceLow()
	r.step()
}

// RaiseEdge latches a pin-change source from a platform interrupt and
// services the high tier immediately.
func (r *Robot) RaiseEdge(src IRQSource) {
	RefreshTime()
	r.IRQ.Raise(src)
	if r.IRQ.HighPending() {
		r.IRQ.ServiceHigh()
	}
}

func (r *Robot) step() {
	r.Acq.Process()

	switch r.State() {
	case StateStarting:
		// presses made during the show are kept and toggle the command
		// once the robot wakes
		if r.showFinished() {
			r.sleep()
			r.setState(StatePaused)
		}
		return
	case StateRecovering:
		r.advanceRecovery()
		return
	}

	for n := r.Button.TakePresses(); n > 0; n-- {
		r.goFlag = r.opts.Toggler.Toggle(r.goFlag)
	}
	if r.goFlag != r.goFlag0 {
		if r.goFlag {
			r.StartDelivery()
		} else {
			r.PauseDelivery()
		}
		r.goFlag0 = r.goFlag
		if r.opts.Reporter != nil {
			r.opts.Reporter.ReportCommand(r.goFlag, GetTime())
		}
	}

	if k := r.Faults.Tripped(); k != FaultNone && r.State() == StateDelivering {
		r.beginRecovery(k)
		return
	}

	r.reportStatus()
}

func (r *Robot) reportStatus() {
	if r.opts.Reporter == nil || r.opts.StatusPeriods == 0 {
		return
	}
	ticks := r.controlTicks.Load()
	if ticks-r.statusSeen < r.opts.StatusPeriods {
		return
	}
	r.statusSeen = ticks
	r.opts.Reporter.ReportStatus(r.Snapshot())
}

// StartDelivery hands the motors to the Control handler. Main loop only.
func (r *Robot) StartDelivery() {
	r.setState(StateDelivering)
	r.Control.Start(GetTime())
}

// PauseDelivery stops the Control handler and the motors. Main loop only.
func (r *Robot) PauseDelivery() {
	r.Control.Stop()
	r.driveMotors(0, 0)
	st := r.Steering()
	st.Right, st.Left = 0, 0
	r.storeSteering(st)
	r.setState(StatePaused)
}

func (r *Robot) driveMotors(right, left DutyPercent) {
	if r.hw.Motor == nil {
		return
	}
	if err := r.hw.Motor.SetDutyCycle(right, left); err != nil {
		r.driverError(2, err)
	}
}

func (r *Robot) driverError(id uint8, err error) {
	n := r.driverErrors.Add(1)
	RecordEvent(EvtDriverError, id, GetTime(), n, 0)
	DebugPrintln("[ROBOT] driver error: " + err.Error())
}

func (r *Robot) sleep() {
	if r.hw.Power == nil {
		return
	}
	prev := r.State()
	r.setState(StateSleeping)
	r.Observe.Stop()
	r.DisplayAlarm.Stop()
	r.sleeps++

	r.hw.Power.EnterSleep()

	// the main loop did not latch the clock while asleep
	now := RefreshTime()
	r.Observe.Start(now)
	r.DisplayAlarm.Start(now)
	r.setState(prev)
}

func (r *Robot) setState(s RobotState) {
	r.state.Store(uint32(s))
}

// SetReporter replaces the notification sink. Call before Start.
func (r *Robot) SetReporter(rep Reporter) {
	r.opts.Reporter = rep
}

// State returns the current main loop state
func (r *Robot) State() RobotState {
	return RobotState(r.state.Load())
}

// Go returns the current command (true = deliver)
func (r *Robot) Go() bool {
	return r.goFlag
}

// Sleeps returns how many times the robot entered low-power sleep
func (r *Robot) Sleeps() uint32 {
	return r.sleeps
}

// TurnArounds returns how many turn-around maneuvers were run
func (r *Robot) TurnArounds() uint32 {
	return r.turnArounds
}

// DriverErrors returns the number of failed hardware calls
func (r *Robot) DriverErrors() uint32 {
	return r.driverErrors.Load()
}

// ControlTicks returns the number of Control periods handled
func (r *Robot) ControlTicks() uint32 {
	return r.controlTicks.Load()
}

// Steering returns the output of the last Control tick
func (r *Robot) Steering() Steering {
	v := r.steering.Load()
	return Steering{
		Right:  DutyPercent(v),
		Left:   DutyPercent(v >> 8),
		Status: Status(v >> 16),
	}
}

func (r *Robot) storeSteering(s Steering) {
	r.steering.Store(uint32(s.Right) | uint32(s.Left)<<8 | uint32(s.Status)<<16)
}

// Snapshot collects the current telemetry values
func (r *Robot) Snapshot() Snapshot {
	a, b := r.Encoders.Counts()
	st := r.Steering()
	return Snapshot{
		Clock:        GetTime(),
		State:        r.State(),
		Composite:    r.Acq.Composite(),
		Lost:         r.Faults.Lost(),
		Stop:         r.Faults.Stop(),
		EncoderA:     a,
		EncoderB:     b,
		Rounds:       r.Acq.Rounds(),
		Right:        st.Right,
		Left:         st.Left,
		Status:       st.Status,
		Presses:      r.Button.Presses(),
		DriverErrors: r.DriverErrors(),
	}
}

// Interrupt handlers

func (r *Robot) onBusIdle() {
	if r.Shift != nil {
		r.Shift.OnBusIdle()
	}
}

func (r *Robot) onButtonEdge() {
	r.Button.OnEdge(GetTime())
}

func (r *Robot) onADCComplete() {
	if err := r.Acq.OnConversionComplete(r.hw.ADC); err != nil {
		r.driverError(0, err)
	}
}

func (r *Robot) onEncoderChange() {
	if r.hw.Phases != nil {
		r.Encoders.Update(r.hw.Phases.ReadPhases())
	}
}

func (r *Robot) onDisplay() {
	r.DisplayAlarm.Rearm(GetTime())
	r.Display.OnTick(r.Acq.LEDs())
}

func (r *Robot) onControl() {
	r.Control.Rearm(GetTime())

	s := Steer(r.Acq.Composite())
	if s.Status == StatusNormal {
		r.driveMotors(s.Right, s.Left)
	}
	r.Faults.Apply(s.Status)
	if s.Status != StatusNormal {
		prev := r.Steering()
		s.Right, s.Left = prev.Right, prev.Left
	}
	r.storeSteering(s)
	r.controlTicks.Bump()
}

func (r *Robot) onObserve() {
	r.Observe.Rearm(GetTime())
	if err := r.Acq.OnObserve(r.hw.ADC); err != nil {
		r.driverError(0, err)
	}
}
