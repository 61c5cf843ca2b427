package core

// ShowPattern describes a blink signal as on/off pairs of equal length,
// counted in Display periods.
type ShowPattern struct {
	Name         string
	Pairs        uint8
	PhasePeriods uint8
}

// Blink signals. With a 50 ms Display period: startup 500 ms phases,
// lost-line 100 ms phases, stop-line 1000 ms phases.
var (
	ShowStartup = ShowPattern{Name: "startup", Pairs: 2, PhasePeriods: 10}
	ShowLost    = ShowPattern{Name: "lost", Pairs: 10, PhasePeriods: 2}
	ShowStop    = ShowPattern{Name: "stop", Pairs: 2, PhasePeriods: 20}
)

const (
	showOn  = 0xFF
	showOff = 0x00
)

// Duration returns the total length of the pattern in Display periods
func (p ShowPattern) Duration() uint32 {
	return 2 * uint32(p.Pairs) * uint32(p.PhasePeriods)
}

// LightShow steps through a ShowPattern one Display period at a time
type LightShow struct {
	pattern ShowPattern
	step    uint32
	active  bool
}

// Start begins p and returns the first byte to show
func (s *LightShow) Start(p ShowPattern) byte {
	s.pattern = p
	s.step = 0
	s.active = p.Pairs > 0 && p.PhasePeriods > 0
	if !s.active {
		return showOff
	}
	return showOn
}

// Tick advances one Display period. It returns the byte to show and
// whether the pattern has just finished.
func (s *LightShow) Tick() (b byte, done bool) {
	if !s.active {
		return showOff, false
	}
	s.step++
	if s.step >= s.pattern.Duration() {
		s.active = false
		return showOff, true
	}
	if (s.step/uint32(s.pattern.PhasePeriods))%2 == 0 {
		return showOn, false
	}
	return showOff, false
}

// Active reports whether a pattern is running
func (s *LightShow) Active() bool {
	return s.active
}

// Pattern returns the running or last pattern
func (s *LightShow) Pattern() ShowPattern {
	return s.pattern
}
