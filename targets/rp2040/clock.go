//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"linebot/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x08 // Raw timer high word
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// The hardware timer counts microseconds; the core clock runs at
// core.TimerFreq, so the 64-bit count is scaled before truncation.
const timerDivider = 1000000 / core.TimerFreq

// GetHardwareUptime reads the full 64-bit RP2040 hardware timer
func GetHardwareUptime() uint64 {
	// high, low, high again to detect a carry between the reads
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()

		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// GetHardwareTime returns the hardware timer in core ticks
func GetHardwareTime() uint32 {
	return uint32(GetHardwareUptime() / timerDivider)
}

// UpdateSystemTime copies the hardware timer into the core clock
func UpdateSystemTime() {
	core.RefreshTime()
}

// InitClock registers the hardware timer as the core clock source and
// latches the boot time
func InitClock() {
	core.SetClockSource(GetHardwareTime)
	UpdateSystemTime()
	core.TimerInit()
}
