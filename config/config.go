// Package config holds the board-level settings of a linebot: pin
// assignments, sensor wiring and the tunables of the display and
// telemetry. The control timing is fixed in firmware; a config may restate
// it but cannot change it.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"linebot/core"
)

var (
	ErrPinName     = errors.New("config: bad pin name")
	ErrSensor      = errors.New("config: bad sensor")
	ErrCutoff      = errors.New("config: cutoff out of ADC range")
	ErrTiming      = errors.New("config: timing is fixed")
	ErrBlink       = errors.New("config: blink periods must be positive")
	ErrDuplicateIO = errors.New("config: pin assigned twice")
)

// Fixed timing, in milliseconds
const (
	ObserveMS  = core.ObserveTicks * 1000 / core.TimerFreq
	ControlMS  = core.ControlTicks * 1000 / core.TimerFreq
	DisplayMS  = core.DisplayTicks * 1000 / core.TimerFreq
	DebounceMS = core.DebounceTicks * 1000 / core.TimerFreq
)

// MaxADCValue is the full scale of the 12-bit converter
const MaxADCValue = 4095

// SensorConfig wires one reflective sensor
type SensorConfig struct {
	Channel uint8 `json:"adc_channel" yaml:"adc_channel"`
	LED     uint8 `json:"led" yaml:"led"`
}

// TimingConfig restates the fixed periods. Zero means "use the fixed value".
type TimingConfig struct {
	ObserveMS  uint32 `json:"observe_ms,omitempty" yaml:"observe_ms,omitempty"`
	ControlMS  uint32 `json:"control_ms,omitempty" yaml:"control_ms,omitempty"`
	DisplayMS  uint32 `json:"display_ms,omitempty" yaml:"display_ms,omitempty"`
	DebounceMS uint32 `json:"debounce_ms,omitempty" yaml:"debounce_ms,omitempty"`
}

// RobotConfig is the complete board description
type RobotConfig struct {
	Sensors []SensorConfig `json:"sensors" yaml:"sensors"`
	Cutoff  uint16         `json:"cutoff" yaml:"cutoff"`

	ButtonPin        string `json:"button_pin" yaml:"button_pin"`
	ButtonActiveHigh *bool  `json:"button_active_high,omitempty" yaml:"button_active_high,omitempty"`

	MotorRightPin string    `json:"motor_right_pin" yaml:"motor_right_pin"`
	MotorLeftPin  string    `json:"motor_left_pin" yaml:"motor_left_pin"`
	EncoderPins   [4]string `json:"encoder_pins" yaml:"encoder_pins"` // A1, A2, B1, B2

	DisplayClockPin string `json:"display_clock_pin" yaml:"display_clock_pin"`
	DisplayDataPin  string `json:"display_data_pin" yaml:"display_data_pin"`
	DisplayLatchPin string `json:"display_latch_pin" yaml:"display_latch_pin"`

	BlinkPeriods    uint8  `json:"blink_periods" yaml:"blink_periods"`
	StatusPeriods   uint32 `json:"status_periods" yaml:"status_periods"`
	SkipStartupShow bool   `json:"skip_startup_show" yaml:"skip_startup_show"`

	Timing TimingConfig `json:"timing" yaml:"timing"`
}

// LoadConfig parses a JSON configuration and returns a validated
// RobotConfig with defaults applied
func LoadConfig(jsonData []byte) (*RobotConfig, error) {
	var cfg RobotConfig

	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigFile reads and parses a JSON configuration file
func LoadConfigFile(path string) (*RobotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ApplyDefaults fills in missing values; for configs decoded elsewhere
func (c *RobotConfig) ApplyDefaults() {
	applyDefaults(c)
}

// applyDefaults fills in missing configuration values from DefaultConfig
func applyDefaults(cfg *RobotConfig) {
	def := DefaultConfig()

	if len(cfg.Sensors) == 0 {
		cfg.Sensors = def.Sensors
	}
	if cfg.Cutoff == 0 {
		cfg.Cutoff = def.Cutoff
	}
	if cfg.ButtonPin == "" {
		cfg.ButtonPin = def.ButtonPin
	}
	if cfg.ButtonActiveHigh == nil {
		cfg.ButtonActiveHigh = def.ButtonActiveHigh
	}
	if cfg.MotorRightPin == "" {
		cfg.MotorRightPin = def.MotorRightPin
	}
	if cfg.MotorLeftPin == "" {
		cfg.MotorLeftPin = def.MotorLeftPin
	}
	for i, p := range cfg.EncoderPins {
		if p == "" {
			cfg.EncoderPins[i] = def.EncoderPins[i]
		}
	}
	if cfg.DisplayClockPin == "" {
		cfg.DisplayClockPin = def.DisplayClockPin
	}
	if cfg.DisplayDataPin == "" {
		cfg.DisplayDataPin = def.DisplayDataPin
	}
	if cfg.DisplayLatchPin == "" {
		cfg.DisplayLatchPin = def.DisplayLatchPin
	}
	if cfg.BlinkPeriods == 0 {
		cfg.BlinkPeriods = def.BlinkPeriods
	}
	if cfg.StatusPeriods == 0 {
		cfg.StatusPeriods = def.StatusPeriods
	}
}

// DefaultConfig returns the stock board wiring
func DefaultConfig() *RobotConfig {
	activeHigh := true
	return &RobotConfig{
		Sensors: []SensorConfig{
			{Channel: 0, LED: 6},
			{Channel: 1, LED: 5},
			{Channel: 2, LED: 4},
		},
		Cutoff:           core.ADCCutoff,
		ButtonPin:        "gpio2",
		ButtonActiveHigh: &activeHigh,
		MotorRightPin:    "gpio14",
		MotorLeftPin:     "gpio15",
		EncoderPins:      [4]string{"gpio6", "gpio7", "gpio8", "gpio9"},
		DisplayClockPin:  "gpio10",
		DisplayDataPin:   "gpio11",
		DisplayLatchPin:  "gpio12",
		BlinkPeriods:     core.BlinkPeriods,
		StatusPeriods:    10,
	}
}

// Validate checks the wiring and rejects any attempt to change the timing
func (c *RobotConfig) Validate() error {
	if len(c.Sensors) != core.NumSensors {
		return fmt.Errorf("%w: need %d sensors, got %d", ErrSensor, core.NumSensors, len(c.Sensors))
	}
	var channels, leds uint8
	for i, s := range c.Sensors {
		if s.Channel > 3 {
			return fmt.Errorf("%w: sensor %d on ADC channel %d", ErrSensor, i, s.Channel)
		}
		// bit 7 is the alive indicator
		if s.LED > 6 {
			return fmt.Errorf("%w: sensor %d on LED %d", ErrSensor, i, s.LED)
		}
		if channels&(1<<s.Channel) != 0 {
			return fmt.Errorf("%w: ADC channel %d shared", ErrSensor, s.Channel)
		}
		if leds&(1<<s.LED) != 0 {
			return fmt.Errorf("%w: LED %d shared", ErrSensor, s.LED)
		}
		channels |= 1 << s.Channel
		leds |= 1 << s.LED
	}

	if c.Cutoff == 0 || c.Cutoff > MaxADCValue {
		return fmt.Errorf("%w: %d", ErrCutoff, c.Cutoff)
	}
	if c.BlinkPeriods == 0 {
		return ErrBlink
	}

	if err := checkTiming("observe", c.Timing.ObserveMS, ObserveMS); err != nil {
		return err
	}
	if err := checkTiming("control", c.Timing.ControlMS, ControlMS); err != nil {
		return err
	}
	if err := checkTiming("display", c.Timing.DisplayMS, DisplayMS); err != nil {
		return err
	}
	if err := checkTiming("debounce", c.Timing.DebounceMS, DebounceMS); err != nil {
		return err
	}

	_, err := c.Pins()
	return err
}

func checkTiming(name string, got, want uint32) error {
	if got != 0 && got != want {
		return fmt.Errorf("%w: %s period is %dms, not %dms", ErrTiming, name, want, got)
	}
	return nil
}

// Pins is the resolved pin map
type Pins struct {
	Button       core.GPIOPin
	MotorRight   core.GPIOPin
	MotorLeft    core.GPIOPin
	Encoders     [4]core.GPIOPin
	DisplayClock core.GPIOPin
	DisplayData  core.GPIOPin
	DisplayLatch core.GPIOPin
}

// Pins parses every pin name and checks that no pin is used twice
func (c *RobotConfig) Pins() (Pins, error) {
	var p Pins
	var used uint32

	assign := func(dst *core.GPIOPin, name string) error {
		pin, err := ParsePin(name)
		if err != nil {
			return err
		}
		if used&(1<<pin) != 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateIO, name)
		}
		used |= 1 << pin
		*dst = pin
		return nil
	}

	if err := assign(&p.Button, c.ButtonPin); err != nil {
		return p, err
	}
	if err := assign(&p.MotorRight, c.MotorRightPin); err != nil {
		return p, err
	}
	if err := assign(&p.MotorLeft, c.MotorLeftPin); err != nil {
		return p, err
	}
	for i, name := range c.EncoderPins {
		if err := assign(&p.Encoders[i], name); err != nil {
			return p, err
		}
	}
	if err := assign(&p.DisplayClock, c.DisplayClockPin); err != nil {
		return p, err
	}
	if err := assign(&p.DisplayData, c.DisplayDataPin); err != nil {
		return p, err
	}
	if err := assign(&p.DisplayLatch, c.DisplayLatchPin); err != nil {
		return p, err
	}
	return p, nil
}

// ParsePin converts "gpioN" (or a bare number) to a pin number
func ParsePin(name string) (core.GPIOPin, error) {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "gpio")
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n > 29 {
		return 0, fmt.Errorf("%w: %q", ErrPinName, name)
	}
	return core.GPIOPin(n), nil
}

// ToOptions converts the config to robot options. The config must be valid.
func (c *RobotConfig) ToOptions() (core.Options, error) {
	opts := core.DefaultOptions()
	pins, err := c.Pins()
	if err != nil {
		return opts, err
	}

	for i, s := range c.Sensors {
		if i >= core.NumSensors {
			break
		}
		opts.Sensors[i] = core.IRSensor{
			Channel: core.ADCChannelID(s.Channel),
			Index:   uint8(i),
			LED:     s.LED,
		}
	}
	opts.Cutoff = core.ADCValue(c.Cutoff)
	opts.ButtonPin = pins.Button
	if c.ButtonActiveHigh != nil {
		opts.ButtonActiveHigh = *c.ButtonActiveHigh
	}
	opts.BlinkPeriods = c.BlinkPeriods
	opts.StatusPeriods = c.StatusPeriods
	opts.SkipStartupShow = c.SkipStartupShow
	return opts, nil
}
