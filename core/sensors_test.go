package core

import "testing"

// convert runs one Observe tick, conversion complete and main loop pass
func convert(a *Acquisition, adc *fakeADC) (took, round bool) {
	if err := a.OnObserve(adc); err != nil {
		return false, false
	}
	if err := a.OnConversionComplete(adc); err != nil {
		return false, false
	}
	return a.Process()
}

func TestAcquisitionRoundIsSixConversions(t *testing.T) {
	adc := newFakeADC()
	adc.setPattern(0b010)
	a := NewAcquisition(DefaultSensors(), ADCCutoff)

	for i := 1; i <= 5; i++ {
		if _, round := convert(a, adc); round {
			t.Fatalf("Round completed after %d conversions", i)
		}
	}
	if a.Rounds() != 0 || a.Composite() != 0 {
		t.Fatalf("Composite published early: rounds=%d composite=%03b", a.Rounds(), a.Composite())
	}

	_, round := convert(a, adc)
	if !round || a.Rounds() != 1 {
		t.Fatalf("Expected round after 6 conversions, rounds=%d", a.Rounds())
	}
	if a.Composite() != 0b010 {
		t.Errorf("Expected composite 010, got %03b", a.Composite())
	}

	for i := 0; i < 6; i++ {
		convert(a, adc)
	}
	if a.Rounds() != 2 {
		t.Errorf("Expected exactly 2 rounds after 12 conversions, got %d", a.Rounds())
	}

	want := []ADCChannelID{0, 0, 1, 1, 2, 2, 0, 0, 1, 1, 2, 2}
	if len(adc.started) != len(want) {
		t.Fatalf("Expected %d conversions, got %d", len(want), len(adc.started))
	}
	for i := range want {
		if adc.started[i] != want[i] {
			t.Errorf("Conversion %d on channel %d, want %d", i, adc.started[i], want[i])
		}
	}
}

func TestAcquisitionDiscardsSettlingSample(t *testing.T) {
	tests := []struct {
		name  string
		queue []ADCValue
		want  uint8
		leds  uint8
	}{
		{
			name:  "first high second low",
			queue: []ADCValue{4095, 0, 4095, 0, 4095, 0},
			want:  0b000,
			leds:  0,
		},
		{
			name:  "first low second high",
			queue: []ADCValue{0, 4095, 0, 4095, 0, 4095},
			want:  0b111,
			leds:  1<<6 | 1<<5 | 1<<4,
		},
		{
			name:  "threshold is inclusive",
			queue: []ADCValue{0, ADCCutoff, 4095, ADCCutoff - 1, 4095, 3999},
			want:  0b101,
			leds:  1<<6 | 1<<4,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adc := newFakeADC()
			adc.queue = append([]ADCValue(nil), tc.queue...)
			a := NewAcquisition(DefaultSensors(), ADCCutoff)
			for i := 0; i < 6; i++ {
				convert(a, adc)
			}
			if a.Composite() != tc.want {
				t.Errorf("Composite %03b, want %03b", a.Composite(), tc.want)
			}
			if a.LEDs() != tc.leds {
				t.Errorf("LEDs %08b, want %08b", a.LEDs(), tc.leds)
			}
		})
	}
}

func TestAcquisitionWaitsForMainLoop(t *testing.T) {
	adc := newFakeADC()
	a := NewAcquisition(DefaultSensors(), ADCCutoff)

	a.OnObserve(adc)
	a.OnConversionComplete(adc)
	// Main loop has not processed yet: further Observe ticks start nothing
	a.OnObserve(adc)
	a.OnObserve(adc)
	if len(adc.started) != 1 {
		t.Fatalf("Expected 1 conversion in flight, got %d", len(adc.started))
	}
	if !a.Busy() {
		t.Error("Acquisition should be busy")
	}

	a.Process()
	if a.Busy() {
		t.Error("Acquisition should be idle after processing")
	}
	a.OnObserve(adc)
	if len(adc.started) != 2 {
		t.Errorf("Expected second conversion after processing, got %d", len(adc.started))
	}
}

func TestAcquisitionReadAndNext(t *testing.T) {
	adc := newFakeADC()
	a := NewAcquisition(DefaultSensors(), ADCCutoff)

	read, next := a.Reading()
	if read != 0 || next != 0 {
		t.Fatalf("Expected read=next=0 at start, got %d/%d", read, next)
	}

	convert(a, adc)
	read, next = a.Reading()
	if read != 0 || next != 1 {
		t.Errorf("After settling sample expected read=0 next=1, got %d/%d", read, next)
	}

	convert(a, adc)
	read, next = a.Reading()
	if read != 1 || next != 1 {
		t.Errorf("After commit expected read=next=1, got %d/%d", read, next)
	}
}

func TestAcquisitionADCErrors(t *testing.T) {
	adc := newFakeADC()
	adc.setPattern(0b111)
	a := NewAcquisition(DefaultSensors(), ADCCutoff)

	adc.startErr = errFake
	if err := a.OnObserve(adc); err == nil {
		t.Fatal("Expected start error")
	}
	if a.Busy() {
		t.Fatal("Failed start must not leave a conversion in flight")
	}
	adc.startErr = nil

	// A failed read is handed over as a zero sample
	a.OnObserve(adc)
	adc.readErr = errFake
	if err := a.OnConversionComplete(adc); err == nil {
		t.Fatal("Expected read error")
	}
	adc.readErr = nil
	if took, _ := a.Process(); !took {
		t.Fatal("Pipeline should keep moving after a read error")
	}

	for i := 0; i < 5; i++ {
		convert(a, adc)
	}
	if a.Composite() != 0b111 {
		t.Errorf("Expected composite 111, got %03b", a.Composite())
	}
}
