//go:build rp2040

package main

import (
	"errors"
	"machine"

	"probeplat/board"
	"probeplat/hal"
)

const numGPIO = 30

var errBadPin = errors.New("rp2040: pin out of range")

// rpGPIO implements hal.GPIODriver on bank 0. The RP2040 has no open-drain
// output, so it is emulated: a high latch releases the pin (input, no
// pull) and a low latch drives it low.
type rpGPIO struct {
	latch [numGPIO]bool
	mode  [numGPIO]hal.PinMode
	// alt is the peripheral function a pin takes in ModeAltPushPull.
	alt [numGPIO]machine.PinMode
}

// newGPIO maps each board pin that gets handed to a peripheral onto its
// function: the power switch to PWM, the SPI remap pins to SPI.
func newGPIO(cfg *board.Config) *rpGPIO {
	g := &rpGPIO{}
	for i := range g.alt {
		g.alt[i] = machine.PinOutput
	}
	g.setAlt(cfg.PowerPin, machine.PinPWM)
	for _, bus := range cfg.Buses {
		for _, p := range bus.RemapPins {
			g.setAlt(p, machine.PinSPI)
		}
	}
	return g
}

func (g *rpGPIO) setAlt(pin hal.Pin, mode machine.PinMode) {
	if pin.Port == hal.PortA && pin.Num < numGPIO {
		g.alt[pin.Num] = mode
	}
}

func (g *rpGPIO) SetMode(pin hal.Pin, mode hal.PinMode) error {
	if pin.Port != hal.PortA || pin.Num >= numGPIO {
		return errBadPin
	}
	g.mode[pin.Num] = mode
	g.apply(pin.Num)
	return nil
}

func (g *rpGPIO) Set(pin hal.Pin, high bool) {
	if pin.Port != hal.PortA || pin.Num >= numGPIO {
		return
	}
	g.latch[pin.Num] = high
	switch g.mode[pin.Num] {
	case hal.ModeOutputPushPull:
		machine.Pin(pin.Num).Set(high)
	case hal.ModeOutputOpenDrain:
		g.apply(pin.Num)
	}
}

func (g *rpGPIO) Get(pin hal.Pin) bool {
	if pin.Port != hal.PortA || pin.Num >= numGPIO {
		return false
	}
	return machine.Pin(pin.Num).Get()
}

func (g *rpGPIO) apply(n uint8) {
	p := machine.Pin(n)
	switch g.mode[n] {
	case hal.ModeInputFloat:
		p.Configure(machine.PinConfig{Mode: machine.PinInput})
	case hal.ModeInputPullUp:
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	case hal.ModeInputPullDown:
		p.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	case hal.ModeInputAnalog:
		p.Configure(machine.PinConfig{Mode: machine.PinAnalog})
	case hal.ModeOutputPushPull:
		p.Set(g.latch[n])
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Set(g.latch[n])
	case hal.ModeOutputOpenDrain:
		if g.latch[n] {
			p.Configure(machine.PinConfig{Mode: machine.PinInput})
		} else {
			p.Set(false)
			p.Configure(machine.PinConfig{Mode: machine.PinOutput})
			p.Set(false)
		}
	case hal.ModeAltPushPull:
		p.Configure(machine.PinConfig{Mode: g.alt[n]})
	}
}
