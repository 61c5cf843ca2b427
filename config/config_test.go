package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"linebot/core"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{}`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	def := DefaultConfig()
	if cfg.Cutoff != def.Cutoff || cfg.BlinkPeriods != def.BlinkPeriods {
		t.Errorf("Defaults not applied: %+v", cfg)
	}
	if len(cfg.Sensors) != core.NumSensors {
		t.Errorf("Expected %d sensors, got %d", core.NumSensors, len(cfg.Sensors))
	}
	if cfg.ButtonActiveHigh == nil || !*cfg.ButtonActiveHigh {
		t.Error("Button should default to active high")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{
		"sensors": [
			{"adc_channel": 2, "led": 0},
			{"adc_channel": 1, "led": 1},
			{"adc_channel": 0, "led": 2}
		],
		"cutoff": 3000,
		"button_pin": "GPIO20",
		"button_active_high": false,
		"status_periods": 5,
		"timing": {"control_ms": 100}
	}`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	opts, err := cfg.ToOptions()
	if err != nil {
		t.Fatalf("ToOptions: %v", err)
	}
	if opts.Cutoff != 3000 {
		t.Errorf("Cutoff = %d, want 3000", opts.Cutoff)
	}
	if opts.ButtonPin != 20 || opts.ButtonActiveHigh {
		t.Errorf("Button = pin %d active high %v", opts.ButtonPin, opts.ButtonActiveHigh)
	}
	if opts.StatusPeriods != 5 {
		t.Errorf("StatusPeriods = %d, want 5", opts.StatusPeriods)
	}
	want := [core.NumSensors]core.IRSensor{
		{Channel: 2, Index: 0, LED: 0},
		{Channel: 1, Index: 1, LED: 1},
		{Channel: 0, Index: 2, LED: 2},
	}
	if opts.Sensors != want {
		t.Errorf("Sensors = %+v, want %+v", opts.Sensors, want)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"changed control period", `{"timing": {"control_ms": 50}}`, ErrTiming},
		{"changed observe period", `{"timing": {"observe_ms": 20}}`, ErrTiming},
		{"two sensors", `{"sensors": [{"adc_channel": 0, "led": 6}, {"adc_channel": 1, "led": 5}]}`, ErrSensor},
		{"shared channel", `{"sensors": [{"adc_channel": 0, "led": 6}, {"adc_channel": 0, "led": 5}, {"adc_channel": 2, "led": 4}]}`, ErrSensor},
		{"alive LED", `{"sensors": [{"adc_channel": 0, "led": 7}, {"adc_channel": 1, "led": 5}, {"adc_channel": 2, "led": 4}]}`, ErrSensor},
		{"bad channel", `{"sensors": [{"adc_channel": 4, "led": 6}, {"adc_channel": 1, "led": 5}, {"adc_channel": 2, "led": 4}]}`, ErrSensor},
		{"cutoff", `{"cutoff": 5000}`, ErrCutoff},
		{"pin name", `{"button_pin": "pa3"}`, ErrPinName},
		{"pin range", `{"button_pin": "gpio30"}`, ErrPinName},
		{"pin reuse", `{"button_pin": "gpio14"}`, ErrDuplicateIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig([]byte(tt.json))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadConfigBadJSON(t *testing.T) {
	if _, err := LoadConfig([]byte(`{"cutoff": "high"}`)); err == nil {
		t.Error("Expected a decode error")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "robot.json")
	if err := os.WriteFile(good, []byte(`{"blink_periods": 4}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFile(good)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.BlinkPeriods != 4 {
		t.Errorf("BlinkPeriods = %d, want 4", cfg.BlinkPeriods)
	}
	if cfg.Cutoff != DefaultConfig().Cutoff {
		t.Errorf("Defaults not applied: cutoff %d", cfg.Cutoff)
	}

	bad := filepath.Join(dir, "timing.json")
	if err := os.WriteFile(bad, []byte(`{"timing": {"control_ms": 50}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(bad); !errors.Is(err, ErrTiming) {
		t.Errorf("Expected ErrTiming, got %v", err)
	}

	if _, err := LoadConfigFile(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected a not-exist error, got %v", err)
	}
}

func TestParsePin(t *testing.T) {
	tests := []struct {
		name string
		want core.GPIOPin
		ok   bool
	}{
		{"gpio0", 0, true},
		{"GPIO15", 15, true},
		{" 7 ", 7, true},
		{"gpio29", 29, true},
		{"gpio", 0, false},
		{"led", 0, false},
	}
	for _, tt := range tests {
		got, err := ParsePin(tt.name)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParsePin(%q) = %d, %v", tt.name, got, err)
		}
	}
}

func TestDefaultConfigMatchesCore(t *testing.T) {
	opts, err := DefaultConfig().ToOptions()
	if err != nil {
		t.Fatal(err)
	}
	def := core.DefaultOptions()
	if opts.Sensors != def.Sensors || opts.Cutoff != def.Cutoff || opts.BlinkPeriods != def.BlinkPeriods {
		t.Errorf("Default config drifts from core defaults:\n%+v\n%+v", opts, def)
	}
	if ControlMS != 100 || ObserveMS != 10 || DisplayMS != 50 || DebounceMS != 20 {
		t.Errorf("Fixed timing is %d/%d/%d/%d ms", ObserveMS, ControlMS, DisplayMS, DebounceMS)
	}
}
