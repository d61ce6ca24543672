//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"probeplat/board"
	"probeplat/hal"
)

// PWM block registers
const (
	pwmBase       = 0x40050000
	pwmSliceSize  = 0x14
	pwmINTR       = pwmBase + 0xa4 // raw wrap flags, write 1 to clear
	pwmCSR_EN     = 1 << 0
	pwmCSR_A_INV  = 1 << 2
	pwmCSR_B_INV  = 1 << 3
	pwmDIV_IntPos = 4

	// rampDivider sets the PWM clock to 125MHz/16, about 122kHz per period
	// of SoftStartSteps counts.
	rampDivider = 16
)

type pwmSliceRegs struct {
	CSR volatile.Register32
	DIV volatile.Register32
	CTR volatile.Register32
	CC  volatile.Register32
	TOP volatile.Register32
}

var pwmIntr = (*volatile.Register32)(unsafe.Pointer(uintptr(pwmINTR)))

// rampTimer is the PWM slice behind the target power switch. The output is
// inverted so a rising compare value means more on-time for the
// active-low switch.
type rampTimer struct {
	regs    *pwmSliceRegs
	slice   uint8
	channel uint8
}

func newRampTimer(pin hal.Pin) *rampTimer {
	slice := (pin.Num >> 1) & 7
	t := &rampTimer{
		regs:    (*pwmSliceRegs)(unsafe.Pointer(uintptr(pwmBase + uint32(slice)*pwmSliceSize))),
		slice:   slice,
		channel: pin.Num & 1,
	}
	inv := uint32(pwmCSR_A_INV)
	if t.channel == 1 {
		inv = pwmCSR_B_INV
	}
	t.regs.CSR.Set(0)
	t.regs.DIV.Set(rampDivider << pwmDIV_IntPos)
	t.regs.TOP.Set(board.SoftStartSteps - 1)
	t.regs.CC.Set(0)
	t.regs.CTR.Set(0)
	t.regs.CSR.Set(inv | pwmCSR_EN)
	return t
}

func (t *rampTimer) SetCompare(value uint32) {
	if t.channel == 0 {
		t.regs.CC.ReplaceBits(value, 0xffff, 0)
	} else {
		t.regs.CC.ReplaceBits(value, 0xffff, 16)
	}
}

func (t *rampTimer) ClearUpdate() {
	pwmIntr.Set(1 << t.slice)
}

func (t *rampTimer) UpdatePending() bool {
	return pwmIntr.HasBits(1 << t.slice)
}
