package sim

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"linebot/config"
	"linebot/core"
	"linebot/host/monitor"
)

func run(t *testing.T, path string) *Result {
	t.Helper()
	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load %s: %v", path, err)
	}
	s, err := New(sc, nil, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := s.Run()
	if err := res.Check(sc.Expect); err != nil {
		t.Errorf("%v\n%s", err, strings.Join(res.Trace, "\n"))
	}
	return res
}

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("No scenarios found")
	}
	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			res := run(t, f)
			t.Logf("%s: %d events, %d rounds, end %dms", res.Name, len(res.Events), res.Rounds, res.EndMS)
		})
	}
}

func TestFollowDrivesWheels(t *testing.T) {
	res := run(t, "testdata/follow.yaml")

	if res.WheelSteps[0] == 0 || res.WheelSteps[1] == 0 {
		t.Fatalf("Wheels did not turn: %v", res.WheelSteps)
	}
	if res.EncoderA != res.WheelSteps[0] || res.EncoderB != res.WheelSteps[1] {
		t.Errorf("Encoders %d/%d, wheels stepped %v", res.EncoderA, res.EncoderB, res.WheelSteps)
	}
	if res.Presses != 2 {
		t.Errorf("Expected 2 presses, got %d", res.Presses)
	}

	var commands []uint8
	statuses := 0
	for _, ev := range res.Events {
		switch ev.Kind {
		case monitor.KindCommand:
			commands = append(commands, ev.Value)
		case monitor.KindStatus:
			statuses++
			if core.Status(ev.Status.Status) != core.StatusNormal {
				t.Errorf("Unexpected status on a centred line: %v", ev)
			}
		}
	}
	if len(commands) != 2 || commands[0] != 1 || commands[1] != 0 {
		t.Errorf("Expected go then pause, got %v", commands)
	}
	// one report per second of delivery
	if statuses < 2 {
		t.Errorf("Expected periodic status reports, got %d", statuses)
	}
}

func TestStopTurnsAroundAndSleeps(t *testing.T) {
	res := run(t, "testdata/stop.yaml")

	trace := strings.Join(res.Trace, "\n")
	turn := strings.Index(trace, "turn around")
	fault := strings.Index(trace, "fault stop")
	if fault < 0 || turn < fault {
		t.Errorf("Expected the turn-around after the fault:\n%s", trace)
	}
	if !res.Asleep {
		t.Error("Run should end asleep with no press left")
	}
}

func TestLostShowsTenBlinks(t *testing.T) {
	res := run(t, "testdata/lost.yaml")

	pairs := 0
	for i := 1; i < len(res.Display); i++ {
		if res.Display[i-1] == 0xFF && res.Display[i] == 0x00 {
			pairs++
		}
	}
	// 2 startup pairs, then 10 for the lost line
	if pairs != 12 {
		t.Errorf("Expected 12 blink pairs, got %d", pairs)
	}
}

func TestBounceCountsOnePress(t *testing.T) {
	res := run(t, "testdata/bounce.yaml")
	if res.Presses != 1 {
		t.Errorf("Expected 1 press through the bounces, got %d", res.Presses)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"empty track", "name: x\n", ErrScenario},
		{"bad pattern", "track:\n  - pattern: \"01\"\n    ms: 10\n", ErrScenario},
		{"bad char", "track:\n  - pattern: \"0x0\"\n    ms: 10\n", ErrScenario},
		{"presses out of order", "track:\n  - pattern: \"010\"\n    ms: 10\npresses: [5, 5]\n", ErrScenario},
		{"fixed timing", "robot:\n  timing:\n    control_ms: 50\ntrack:\n  - pattern: \"010\"\n    ms: 10\n", config.ErrTiming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseDefaults(t *testing.T) {
	sc, err := Parse([]byte("track:\n  - pattern: \"100\"\n    ms: 300\n  - pattern: \"001\"\n    ms: 200\n"))
	if err != nil {
		t.Fatal(err)
	}
	if sc.DurationMS != 500 || sc.HoldMS == 0 || sc.LineLevel <= sc.FloorLevel {
		t.Errorf("Defaults not applied: %+v", sc)
	}
	tests := []struct {
		ms   uint32
		want uint8
	}{
		{0, 0b001},
		{299, 0b001},
		{300, 0b100},
		{10000, 0b100},
	}
	for _, tt := range tests {
		if got := sc.patternAt(tt.ms); got != tt.want {
			t.Errorf("patternAt(%d) = %03b, want %03b", tt.ms, got, tt.want)
		}
	}
}
