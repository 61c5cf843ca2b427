package sim

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"linebot/config"
)

var (
	ErrScenario = errors.New("sim: bad scenario")
	ErrExpect   = errors.New("sim: expectation failed")
)

// Scenario is a scripted run: a track under the sensors, button presses and
// the outcome the run should reach
type Scenario struct {
	Name       string `yaml:"name"`
	DurationMS uint32 `yaml:"duration_ms"`

	// Robot overrides the stock board config
	Robot *config.RobotConfig `yaml:"robot,omitempty"`

	Track   []Segment `yaml:"track"`
	Presses []uint32  `yaml:"presses"` // ms at which the button goes down
	HoldMS  uint32    `yaml:"hold_ms"`
	Bounces uint32    `yaml:"bounces"` // extra edges raised after each press

	LineLevel  uint16 `yaml:"line_level"`
	FloorLevel uint16 `yaml:"floor_level"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Segment holds one sensor pattern for a while. Pattern lists the sensors
// left to right, '1' where the sensor sees the line.
type Segment struct {
	Pattern string `yaml:"pattern"`
	MS      uint32 `yaml:"ms"`
}

// Expect is the end state a scenario asserts
type Expect struct {
	State       string   `yaml:"state,omitempty"`
	Faults      []string `yaml:"faults,omitempty"`
	Sleeps      *uint32  `yaml:"sleeps,omitempty"`
	TurnArounds *uint32  `yaml:"turn_arounds,omitempty"`
	MinRounds   uint32   `yaml:"min_rounds,omitempty"`
}

// Load reads a scenario file
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and checks a YAML scenario, filling in defaults
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) normalize() error {
	if s.Robot == nil {
		s.Robot = config.DefaultConfig()
	}
	s.Robot.ApplyDefaults()
	if err := s.Robot.Validate(); err != nil {
		return err
	}

	if s.HoldMS == 0 {
		s.HoldMS = 50
	}
	if s.LineLevel == 0 {
		s.LineLevel = 4000
	}
	if s.FloorLevel == 0 {
		s.FloorLevel = 300
	}
	if len(s.Track) == 0 {
		return fmt.Errorf("%w: empty track", ErrScenario)
	}

	var total uint32
	for i, seg := range s.Track {
		if _, err := parsePattern(seg.Pattern); err != nil {
			return fmt.Errorf("%w: segment %d: %v", ErrScenario, i, err)
		}
		total += seg.MS
	}
	if s.DurationMS == 0 {
		s.DurationMS = total
	}
	for i := 1; i < len(s.Presses); i++ {
		if s.Presses[i] <= s.Presses[i-1] {
			return fmt.Errorf("%w: presses out of order", ErrScenario)
		}
	}
	return nil
}

// parsePattern turns "010" into a composite mask, first character bit 0
func parsePattern(p string) (uint8, error) {
	if len(p) != 3 {
		return 0, fmt.Errorf("pattern %q needs 3 sensors", p)
	}
	var mask uint8
	for i, c := range p {
		switch c {
		case '1':
			mask |= 1 << i
		case '0':
		default:
			return 0, fmt.Errorf("pattern %q: bad character %q", p, c)
		}
	}
	return mask, nil
}

// patternAt returns the track pattern under the robot at ms. The last
// segment holds once the track runs out.
func (s *Scenario) patternAt(ms uint32) uint8 {
	var start uint32
	for _, seg := range s.Track {
		if ms < start+seg.MS {
			m, _ := parsePattern(seg.Pattern)
			return m
		}
		start += seg.MS
	}
	m, _ := parsePattern(s.Track[len(s.Track)-1].Pattern)
	return m
}
