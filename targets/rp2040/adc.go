//go:build rp2040

package main

import (
	"device/rp"
	"machine"
)

// rpADC drives the converter registers directly so the platform can poll
// the READY flag itself instead of blocking inside machine.ADC.Get.
type rpADC struct{}

func newADC() rpADC {
	machine.InitADC()
	return rpADC{}
}

func (rpADC) SelectChannel(ch uint8) {
	rp.ADC.CS.ReplaceBits(uint32(ch)<<rp.ADC_CS_AINSEL_Pos, rp.ADC_CS_AINSEL_Msk, 0)
}

func (rpADC) StartConversion()     { rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE) }
func (rpADC) ConversionDone() bool { return rp.ADC.CS.HasBits(rp.ADC_CS_READY) }
func (rpADC) Result() uint16       { return uint16(rp.ADC.RESULT.Get()) }

// ClearDone is a no-op: READY drops when the next conversion starts.
func (rpADC) ClearDone() {}
