//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"probeplat/core"
)

// Timer peripheral: a free-running 64-bit microsecond counter.
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24
	timerTIMERAWL = timerBase + 0x28
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// InitClock names the MCU in the dictionary. The counter runs at
// core.TimerFreq out of reset, so nothing needs programming.
func InitClock() {
	core.RegisterConstant("MCU", "rp2040")
}

// hardwareUptime reads the full counter, retrying across a low-word wrap.
func hardwareUptime() uint64 {
	for {
		hi := timerRAWH.Get()
		lo := timerRAWL.Get()
		if timerRAWH.Get() == hi {
			return uint64(hi)<<32 | uint64(lo)
		}
	}
}

// UpdateSystemTime feeds the counter's low word to the core clock.
func UpdateSystemTime() {
	core.SetTime(uint32(hardwareUptime()))
}
