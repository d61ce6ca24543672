package core

import (
	"probeplat/board"
	"probeplat/errcode"
	"probeplat/hal"
)

// Packed chip-select byte: low bits pick the device, the high bit asks for
// the select to be asserted.
const (
	ChipSelectAssert     = 0x80
	ChipSelectDeviceMask = 0x7f
)

// ChipSelect is a decoded chip-select request.
type ChipSelect struct {
	Device board.DeviceID
	Assert bool
}

// DecodeChipSelect unpacks the wire form of a chip-select request.
func DecodeChipSelect(code uint8) ChipSelect {
	return ChipSelect{
		Device: board.DeviceID(code & ChipSelectDeviceMask),
		Assert: code&ChipSelectAssert != 0,
	}
}

// Code packs cs back into its wire form.
func (cs ChipSelect) Code() uint8 {
	code := uint8(cs.Device) & ChipSelectDeviceMask
	if cs.Assert {
		code |= ChipSelectAssert
	}
	return code
}

// SPIManager owns both SPI controllers and the chip-select lines. It does
// not track a selected device: callers deselect before selecting another
// device on the same bus.
type SPIManager struct {
	gpio    hal.GPIODriver
	buses   [board.NumBuses]hal.SPIBus
	cfg     [board.NumBuses]board.SPIBus
	selects [board.NumDevices]board.ChipSelect
	enabled [board.NumBuses]bool
}

func NewSPIManager(gpio hal.GPIODriver, buses [board.NumBuses]hal.SPIBus, cfg *board.Config) *SPIManager {
	return &SPIManager{
		gpio:    gpio,
		buses:   buses,
		cfg:     cfg.Buses,
		selects: cfg.ChipSelects,
	}
}

func (m *SPIManager) bus(op string, bus board.BusID) (hal.SPIBus, error) {
	if bus >= board.NumBuses {
		return nil, errcode.New(errcode.InvalidArgument, op, bus.String())
	}
	b := m.buses[bus]
	if b == nil {
		return nil, errcode.New(errcode.Unsupported, op, bus.String()+" has no controller")
	}
	return b, nil
}

// Setup parks every chip select at its released level and makes it an
// output, and turns each wired level shifter away from the target.
func (m *SPIManager) Setup() error {
	for _, sel := range m.selects {
		m.gpio.Set(sel.Pin, !sel.ActiveHigh)
		if err := m.gpio.SetMode(sel.Pin, hal.ModeOutputPushPull); err != nil {
			return errcode.Wrap(errcode.Error, "spi_setup", err)
		}
	}
	for _, cfg := range m.cfg {
		if !cfg.DirPin.Valid() {
			continue
		}
		m.gpio.Set(cfg.DirPin, false)
		if err := m.gpio.SetMode(cfg.DirPin, hal.ModeOutputPushPull); err != nil {
			return errcode.Wrap(errcode.Error, "spi_setup", err)
		}
	}
	return nil
}

// Init clocks and resets the controller, hands the bus's shared pins to
// it and enables it as master.
func (m *SPIManager) Init(bus board.BusID) error {
	b, err := m.bus("spi_init", bus)
	if err != nil {
		return err
	}
	b.EnableClock()
	b.ResetPulse()

	cfg := &m.cfg[bus]
	for _, p := range cfg.RemapPins {
		if err := m.gpio.SetMode(p, hal.ModeAltPushPull); err != nil {
			return errcode.Wrap(errcode.Error, "spi_init", err)
		}
	}
	if cfg.DirPin.Valid() {
		m.gpio.Set(cfg.DirPin, true)
	}
	if err := b.Configure(); err != nil {
		return errcode.Wrap(errcode.Error, "spi_init", err)
	}
	m.enabled[bus] = true
	RecordEvent(EvtSPIInit, uint32(bus), 0)
	return nil
}

// Deinit disables and gates the controller and returns the shared pins to
// plain outputs.
func (m *SPIManager) Deinit(bus board.BusID) error {
	b, err := m.bus("spi_deinit", bus)
	if err != nil {
		return err
	}
	b.Disable()
	b.DisableClock()
	for _, p := range m.cfg[bus].RemapPins {
		if err := m.gpio.SetMode(p, hal.ModeOutputPushPull); err != nil {
			return errcode.Wrap(errcode.Error, "spi_deinit", err)
		}
	}
	m.enabled[bus] = false
	RecordEvent(EvtSPIDeinit, uint32(bus), 0)
	return nil
}

// Enabled reports whether bus was initialised and not since deinitialised.
func (m *SPIManager) Enabled(bus board.BusID) bool {
	return bus < board.NumBuses && m.enabled[bus]
}

// Select drives the device's select line. An unknown device is rejected
// before any pin is touched.
func (m *SPIManager) Select(cs ChipSelect) error {
	if cs.Device >= board.NumDevices {
		return errcode.New(errcode.Configuration, "spi_select", cs.Device.String())
	}
	sel := &m.selects[cs.Device]
	m.gpio.Set(sel.Pin, cs.Assert == sel.ActiveHigh)
	var v2 uint32
	if cs.Assert {
		v2 = 1
	}
	RecordEvent(EvtChipSelect, uint32(cs.Device), v2)
	return nil
}

// SelectCode decodes a packed chip-select byte and applies it.
func (m *SPIManager) SelectCode(code uint8) error {
	return m.Select(DecodeChipSelect(code))
}

// Transfer exchanges one byte on bus.
func (m *SPIManager) Transfer(bus board.BusID, out byte) (byte, error) {
	b, err := m.bus("spi_xfer", bus)
	if err != nil {
		return 0, err
	}
	in, err := b.Transfer(out)
	if err != nil {
		return 0, errcode.Wrap(errcode.Error, "spi_xfer", err)
	}
	return in, nil
}
