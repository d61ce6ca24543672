package core

import (
	"probeplat/board"
	"probeplat/errcode"
	"probeplat/hal"
)

// Drivers is the hardware a Platform runs on. Wait defaults to Poller.
type Drivers struct {
	GPIO  hal.GPIODriver
	Timer hal.PWMTimer
	ADC   hal.ADC
	SPI   [board.NumBuses]hal.SPIBus
	VBUS  hal.EdgeSource
	Wait  Waiter
}

// Platform aggregates the power, reset, voltage, SPI and VBUS subsystems of
// one board and exposes the calls the debug layer makes.
type Platform struct {
	cfg  *board.Config
	gpio hal.GPIODriver

	power   *PowerSequencer
	reset   *ResetController
	voltage *VoltageSensor
	spi     *SPIManager
	vbus    *VbusMonitor
}

// NewPlatform validates cfg and binds every subsystem to d. No hardware is
// touched until Init.
func NewPlatform(cfg *board.Config, d Drivers) (*Platform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d.GPIO == nil || d.Timer == nil || d.ADC == nil || d.VBUS == nil {
		return nil, errcode.New(errcode.InvalidParams, "platform", "missing driver")
	}
	wait := d.Wait
	if wait == nil {
		wait = Poller{}
	}
	t := cfg.Timing
	return &Platform{
		cfg:     cfg,
		gpio:    d.GPIO,
		power:   NewPowerSequencer(d.GPIO, d.Timer, wait, cfg.PowerPin, t.PWMWaitLimit),
		reset:   NewResetController(d.GPIO, wait, cfg.Reset, t.ResetSettle),
		voltage: NewVoltageSensor(d.ADC, wait, cfg.Voltage, t.ADCWaitLimit),
		spi:     NewSPIManager(d.GPIO, d.SPI, cfg),
		vbus:    NewVbusMonitor(d.GPIO, d.VBUS, cfg.Vbus),
	}, nil
}

// Init brings the pins to their safe power-on state: reset released, rail
// off, voltage pin analog, chip selects released, then arms the VBUS
// interrupt.
func (p *Platform) Init() error {
	if err := p.reset.Init(); err != nil {
		return err
	}
	if err := p.power.Init(); err != nil {
		return err
	}
	if err := p.gpio.SetMode(p.cfg.Voltage.Pin, hal.ModeInputAnalog); err != nil {
		return errcode.Wrap(errcode.Error, "platform_init", err)
	}
	if err := p.spi.Setup(); err != nil {
		return err
	}
	if err := p.vbus.Setup(); err != nil {
		return err
	}
	DebugPrintln("[PLATFORM] " + p.cfg.Name + " ready")
	return nil
}

// Config returns the board the platform was built for.
func (p *Platform) Config() *board.Config { return p.cfg }

func (p *Platform) SetPower(on bool) error     { return p.power.SetPower(on) }
func (p *Platform) Power() bool                { return p.power.Power() }
func (p *Platform) PowerState() PowerRailState { return p.power.State() }

func (p *Platform) AssertReset(active bool) { p.reset.Assert(active) }
func (p *Platform) ResetSense() bool        { return p.reset.Sense() }

func (p *Platform) VoltageRaw() (uint32, error)       { return p.voltage.ReadRaw() }
func (p *Platform) VoltageDecivolts() (uint32, error) { return p.voltage.ReadDecivolts() }
func (p *Platform) VoltageString() (string, error)    { return p.voltage.ReadString() }

func (p *Platform) SPIInit(bus board.BusID) error       { return p.spi.Init(bus) }
func (p *Platform) SPIDeinit(bus board.BusID) error     { return p.spi.Deinit(bus) }
func (p *Platform) SPIEnabled(bus board.BusID) bool     { return p.spi.Enabled(bus) }
func (p *Platform) SPISelect(code uint8) error          { return p.spi.SelectCode(code) }
func (p *Platform) SPISelectDevice(cs ChipSelect) error { return p.spi.Select(cs) }
func (p *Platform) SPITransfer(bus board.BusID, b byte) (byte, error) {
	return p.spi.Transfer(bus, b)
}

// Vbus returns the VBUS monitor whose HandleEdge the target binds to the
// edge vector.
func (p *Platform) Vbus() *VbusMonitor { return p.vbus }

// Shutdown forces the target into a safe state: rail off, reset released,
// both buses idle.
func (p *Platform) Shutdown() {
	p.power.SetPower(false)
	p.reset.Assert(false)
	for bus := board.BusID(0); bus < board.NumBuses; bus++ {
		if p.spi.Enabled(bus) {
			p.spi.Deinit(bus)
		}
	}
}

// Global singleton used by the command handlers.
var platform *Platform

// SetPlatform is called by target-specific code once the platform is built.
func SetPlatform(p *Platform) {
	platform = p
}

// MustPlatform returns the configured platform or panics if missing.
func MustPlatform() *Platform {
	if platform == nil {
		panic("platform not configured")
	}
	return platform
}

// GetPlatform returns the configured platform, or NotReady.
func GetPlatform() (*Platform, error) {
	if platform == nil {
		return nil, errcode.NotReady
	}
	return platform, nil
}
