//go:build rp2040

package main

import (
	"device/rp"
	"machine"

	"probeplat/board"
	"probeplat/hal"
)

// rpSPI is one PL022 controller. Byte exchange comes from machine.SPI;
// clock gating and reset go through the RESETS block, which is the only
// per-peripheral gate the RP2040 has.
type rpSPI struct {
	*machine.SPI
	resetBit uint32
	cfg      machine.SPIConfig
}

// Controller pin defaults; board remap pins replace SCK and SDO.
var (
	spi1Pins = [3]hal.Pin{hal.GPIO(10), hal.GPIO(11), hal.GPIO(12)}
	spi0Pins = [3]hal.Pin{hal.GPIO(18), hal.GPIO(19), hal.GPIO(16)}
)

func newSPI(bus board.BusID, cfg *board.Config) *rpSPI {
	s := &rpSPI{SPI: machine.SPI0, resetBit: rp.RESETS_RESET_SPI0}
	defaults := spi0Pins
	if bus == board.BusExternal {
		s.SPI, s.resetBit = machine.SPI1, rp.RESETS_RESET_SPI1
		defaults = spi1Pins
	}
	b := &cfg.Buses[bus]
	pins := b.ControllerPins(defaults)
	s.cfg = machine.SPIConfig{
		Frequency: b.Frequency,
		SCK:       machine.Pin(pins[0].Num),
		SDO:       machine.Pin(pins[1].Num),
		SDI:       machine.Pin(pins[2].Num),
	}
	return s
}

func (s *rpSPI) EnableClock() {
	rp.RESETS.RESET.ClearBits(s.resetBit)
	for !rp.RESETS.RESET_DONE.HasBits(s.resetBit) {
	}
}

func (s *rpSPI) DisableClock() { rp.RESETS.RESET.SetBits(s.resetBit) }

func (s *rpSPI) ResetPulse() {
	rp.RESETS.RESET.SetBits(s.resetBit)
	s.EnableClock()
}

// Configure sets mode 0, 8-bit, MSB first.
func (s *rpSPI) Configure() error {
	return s.SPI.Configure(s.cfg)
}

func (s *rpSPI) Disable() {
	s.Bus.SSPCR1.ClearBits(rp.SPI0_SSPCR1_SSE)
}
