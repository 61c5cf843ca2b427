//go:build rp2040

package main

import "device/arm"

// RP2040Power implements core.PowerControl with WFI. Timer, USB and
// encoder interrupts also end a WFI, so the core waits until a button edge
// or an ADC completion has set the woken flag.
type RP2040Power struct{}

// EnterSleep blocks until a button or ADC interrupt
func (RP2040Power) EnterSleep() {
	woken.Store(false)
	for !woken.Load() {
		arm.Asm("wfi")
	}
	UpdateSystemTime()
}
