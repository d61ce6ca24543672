// Package hal holds the hardware contracts the platform subsystem drives.
// Target-specific code (targets/*) and the simulator (sim) implement them.
package hal

import (
	"errors"
	"strconv"
)

// Port identifies a GPIO bank. Single-bank parts only use PortA.
type Port uint8

const (
	PortA Port = iota
	PortB
	PortC
	PortD
)

// Pin identifies one GPIO line as a (port, number) pair.
type Pin struct {
	Port Port
	Num  uint8
}

// NoPin marks an optional pin that the board does not wire.
var NoPin = Pin{Port: 0xff, Num: 0xff}

// GPIO returns the pin with the given line number on PortA.
func GPIO(n uint8) Pin { return Pin{Port: PortA, Num: n} }

// Valid reports whether p names a real pin.
func (p Pin) Valid() bool { return p != NoPin }

// String renders single-bank pins as "gpioN" and banked pins as "PB12".
func (p Pin) String() string {
	if !p.Valid() {
		return "none"
	}
	if p.Port == PortA {
		return "gpio" + strconv.Itoa(int(p.Num))
	}
	return "P" + string(rune('A'+p.Port)) + strconv.Itoa(int(p.Num))
}

func (p Pin) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts "gpioN", "PXn" (port letter A-D) and "none".
func (p *Pin) UnmarshalText(text []byte) error {
	s := string(text)
	switch {
	case s == "none" || s == "":
		*p = NoPin
		return nil
	case len(s) > 4 && s[:4] == "gpio":
		n, err := strconv.ParseUint(s[4:], 10, 8)
		if err != nil {
			return errors.New("invalid pin " + strconv.Quote(s))
		}
		*p = GPIO(uint8(n))
		return nil
	case len(s) > 2 && (s[0] == 'P' || s[0] == 'p'):
		port := s[1] | 0x20 // lower-case
		if port < 'a' || port > 'd' {
			return errors.New("invalid pin port " + strconv.Quote(s))
		}
		n, err := strconv.ParseUint(s[2:], 10, 8)
		if err != nil {
			return errors.New("invalid pin " + strconv.Quote(s))
		}
		*p = Pin{Port: Port(port - 'a'), Num: uint8(n)}
		return nil
	}
	return errors.New("invalid pin " + strconv.Quote(s))
}

// PinMode is the electrical configuration of a pin.
type PinMode uint8

const (
	ModeInputFloat PinMode = iota
	ModeInputPullUp
	ModeInputPullDown
	ModeInputAnalog
	ModeOutputPushPull
	ModeOutputOpenDrain
	// ModeAltPushPull hands the pin to its peripheral (timer, SPI controller).
	ModeAltPushPull
)

var pinModeNames = [...]string{
	ModeInputFloat:      "input-float",
	ModeInputPullUp:     "input-pullup",
	ModeInputPullDown:   "input-pulldown",
	ModeInputAnalog:     "input-analog",
	ModeOutputPushPull:  "output-pushpull",
	ModeOutputOpenDrain: "output-opendrain",
	ModeAltPushPull:     "alt-pushpull",
}

func (m PinMode) String() string {
	if int(m) < len(pinModeNames) {
		return pinModeNames[m]
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// GPIODriver configures and drives individual pins.
type GPIODriver interface {
	// SetMode reconfigures the pin. The output latch is left untouched, so
	// a level written while the pin is in another mode shows up once the pin
	// returns to an output mode.
	SetMode(pin Pin, mode PinMode) error

	// Set writes the raw output latch.
	Set(pin Pin, high bool)

	// Get reads the pin's input level.
	Get(pin Pin) bool
}
