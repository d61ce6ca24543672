//go:build rp2040

package main

import (
	"machine"
	"runtime/volatile"
	"unsafe"

	"probeplat/hal"
)

const (
	ioBank0INTR0   = 0x40014000 + 0xf0
	intrEdgeLow    = 1 << 2
	intrEdgeHigh   = 1 << 3
	intrBitsPerPin = 4
)

// pinEdge is the both-edge GPIO interrupt on one pin.
type pinEdge struct {
	pin     machine.Pin
	handler func()
}

func newPinEdge(p hal.Pin) *pinEdge { return &pinEdge{pin: machine.Pin(p.Num)} }

func (e *pinEdge) SetHandler(handler func()) { e.handler = handler }

func (e *pinEdge) Enable() error {
	return e.pin.SetInterrupt(machine.PinRising|machine.PinFalling, func(machine.Pin) {
		if e.handler != nil {
			e.handler()
		}
	})
}

// Acknowledge clears both latched edge bits for the pin.
func (e *pinEdge) Acknowledge() {
	n := uintptr(e.pin)
	reg := (*volatile.Register32)(unsafe.Pointer(uintptr(ioBank0INTR0) + 4*(n/8)))
	reg.Set((intrEdgeLow | intrEdgeHigh) << (intrBitsPerPin * (n % 8)))
}
