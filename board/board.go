// Package board describes how a probe board wires the platform subsystem:
// which pins carry target power, reset, voltage sense, VBUS and the SPI
// chip selects, plus the polling bounds used on that board.
package board

import (
	"errors"
	"strconv"

	"probeplat/errcode"
	"probeplat/hal"
)

// BusID selects one of the two SPI buses.
type BusID uint8

const (
	BusExternal BusID = iota // target-facing bus on the JTAG clock/data pins
	BusInternal              // on-board flash, SD card and display
	NumBuses
)

var busNames = [NumBuses]string{"external", "internal"}

func (b BusID) String() string {
	if b < NumBuses {
		return busNames[b]
	}
	return "bus(" + strconv.Itoa(int(b)) + ")"
}

func (b BusID) MarshalText() ([]byte, error) {
	if b >= NumBuses {
		return nil, errors.New("invalid bus " + strconv.Itoa(int(b)))
	}
	return []byte(busNames[b]), nil
}

func (b *BusID) UnmarshalText(text []byte) error {
	for i, n := range busNames {
		if n == string(text) {
			*b = BusID(i)
			return nil
		}
	}
	return errors.New("unknown bus " + strconv.Quote(string(text)))
}

// DeviceID identifies a chip-select target.
type DeviceID uint8

const (
	DeviceIntFlash DeviceID = iota
	DeviceExtFlash
	DeviceSDCard
	DeviceDisplay
	NumDevices
)

var deviceNames = [NumDevices]string{"int_flash", "ext_flash", "sdcard", "display"}

func (d DeviceID) String() string {
	if d < NumDevices {
		return deviceNames[d]
	}
	return "device(" + strconv.Itoa(int(d)) + ")"
}

func (d DeviceID) MarshalText() ([]byte, error) {
	if d >= NumDevices {
		return nil, errors.New("invalid device " + strconv.Itoa(int(d)))
	}
	return []byte(deviceNames[d]), nil
}

func (d *DeviceID) UnmarshalText(text []byte) error {
	for i, n := range deviceNames {
		if n == string(text) {
			*d = DeviceID(i)
			return nil
		}
	}
	return errors.New("unknown device " + strconv.Quote(string(text)))
}

// BusNames returns the bus enumeration in id order.
func BusNames() []string { return busNames[:] }

// DeviceNames returns the device enumeration in id order.
func DeviceNames() []string { return deviceNames[:] }

// ChipSelect binds a device to its select line.
type ChipSelect struct {
	Bus        BusID   `json:"bus"`
	Pin        hal.Pin `json:"pin"`
	ActiveHigh bool    `json:"active_high,omitempty"`
}

// SPIBus describes one bus's pins and clock.
type SPIBus struct {
	Name string `json:"name"`
	// RemapPins are shared with other functions while the bus is idle and
	// are handed to the controller only between init and deinit. They are
	// the bus's SCK and SDO, in that order, and at most two.
	RemapPins []hal.Pin `json:"remap_pins,omitempty"`
	// DirPin, when wired, is driven high on init to turn the level
	// shifter towards the target.
	DirPin    hal.Pin `json:"dir_pin"`
	Frequency uint32  `json:"frequency"`
}

// ControllerPins returns the bus's SCK, SDO and SDI pins. Remap pins
// override the first two entries of defaults.
func (b *SPIBus) ControllerPins(defaults [3]hal.Pin) [3]hal.Pin {
	pins := defaults
	copy(pins[:2], b.RemapPins)
	return pins
}

// Reset wires the target reset line.
type Reset struct {
	Pin        hal.Pin `json:"pin"`
	AssertHigh bool    `json:"assert_high"`
	// TMSPin is driven high on every reset write; reset and mode-select
	// share drive circuitry.
	TMSPin   hal.Pin `json:"tms_pin"`
	SensePin hal.Pin `json:"sense_pin"`
	// SensePullDown selects the sense input's bias for boards strapped
	// that way; the default is pull-up.
	SensePullDown bool `json:"sense_pull_down"`
}

// Voltage wires the target rail voltage divider.
type Voltage struct {
	Pin     hal.Pin `json:"pin"`
	Channel uint8   `json:"channel"`
	// ManualEOCClear is set on converters that keep the end-of-conversion
	// flag after the result is read.
	ManualEOCClear bool `json:"manual_eoc_clear"`
}

// Vbus wires the USB presence detection.
type Vbus struct {
	SensePin  hal.Pin `json:"sense_pin"`
	PullUpPin hal.Pin `json:"pullup_pin"`
}

// Timing holds polling bounds. A zero limit polls forever.
type Timing struct {
	PWMWaitLimit uint32 `json:"pwm_wait_limit"`
	ADCWaitLimit uint32 `json:"adc_wait_limit"`
	ResetSettle  uint32 `json:"reset_settle"`
}

// Config is the complete static wiring table of a board.
type Config struct {
	Name        string
	HWVersion   uint8
	PowerPin    hal.Pin // active low
	Reset       Reset
	Voltage     Voltage
	Vbus        Vbus
	Buses       [NumBuses]SPIBus
	ChipSelects [NumDevices]ChipSelect
	Timing      Timing
}

// SoftStartSteps is the PWM period in timer counts and the length of the
// power-on ramp.
const SoftStartSteps = 64

// Default returns the RP2040 probe layout.
func Default() *Config {
	return &Config{
		Name:     "rp2040-probe",
		PowerPin: hal.GPIO(20),
		Reset: Reset{
			Pin:        hal.GPIO(14),
			AssertHigh: true,
			TMSPin:     hal.GPIO(13),
			SensePin:   hal.GPIO(15),
		},
		Voltage: Voltage{Pin: hal.GPIO(26), Channel: 0},
		Vbus:    Vbus{SensePin: hal.GPIO(24), PullUpPin: hal.GPIO(22)},
		Buses: [NumBuses]SPIBus{
			BusExternal: {
				Name:      "external",
				RemapPins: []hal.Pin{hal.GPIO(10), hal.GPIO(11)}, // TCK, TDI
				DirPin:    hal.GPIO(9),
				Frequency: 9000000,
			},
			BusInternal: {
				Name:      "internal",
				DirPin:    hal.NoPin,
				Frequency: 4500000,
			},
		},
		ChipSelects: [NumDevices]ChipSelect{
			DeviceIntFlash: {Bus: BusInternal, Pin: hal.GPIO(17)},
			DeviceExtFlash: {Bus: BusExternal, Pin: hal.GPIO(7)},
			DeviceSDCard:   {Bus: BusInternal, Pin: hal.GPIO(21)},
			DeviceDisplay:  {Bus: BusInternal, Pin: hal.GPIO(5)},
		},
		Timing: Timing{
			PWMWaitLimit: 1000000,
			ADCWaitLimit: 0,
			ResetSettle:  10000,
		},
	}
}

// Validate checks that every required pin is wired, every chip select sits
// on a real bus with its own pin, and that nothing else uses the USB
// pull-up pin, whose mode is owned by the VBUS interrupt.
func (c *Config) Validate() error {
	required := []struct {
		name string
		pin  hal.Pin
	}{
		{"power_pin", c.PowerPin},
		{"reset.pin", c.Reset.Pin},
		{"reset.tms_pin", c.Reset.TMSPin},
		{"reset.sense_pin", c.Reset.SensePin},
		{"voltage.pin", c.Voltage.Pin},
		{"vbus.sense_pin", c.Vbus.SensePin},
		{"vbus.pullup_pin", c.Vbus.PullUpPin},
	}
	for _, r := range required {
		if !r.pin.Valid() {
			return errcode.New(errcode.InvalidParams, "board", r.name+" not wired")
		}
	}

	owners := map[hal.Pin]string{}
	claim := func(name string, p hal.Pin) error {
		if !p.Valid() {
			return nil
		}
		if prev, ok := owners[p]; ok {
			return errcode.New(errcode.InvalidParams, "board", name+" reuses "+p.String()+" of "+prev)
		}
		owners[p] = name
		return nil
	}
	for _, r := range required {
		if err := claim(r.name, r.pin); err != nil {
			return err
		}
	}
	for i, cs := range c.ChipSelects {
		name := DeviceID(i).String()
		if cs.Bus >= NumBuses {
			return errcode.New(errcode.InvalidParams, "board", name+" on "+cs.Bus.String())
		}
		if !cs.Pin.Valid() {
			return errcode.New(errcode.InvalidParams, "board", name+" select not wired")
		}
		if err := claim(name, cs.Pin); err != nil {
			return err
		}
	}
	for i, b := range c.Buses {
		name := BusID(i).String()
		if len(b.RemapPins) > 2 {
			return errcode.New(errcode.InvalidParams, "board", name+" remaps more than sck and sdo")
		}
		for _, p := range b.RemapPins {
			if err := claim(name+" remap", p); err != nil {
				return err
			}
		}
		if err := claim(name+" dir", b.DirPin); err != nil {
			return err
		}
	}
	return nil
}
