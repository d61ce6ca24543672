package core

import (
	"testing"

	"probeplat/board"
	"probeplat/errcode"
	"probeplat/hal"
	"probeplat/sim"
)

func newSimPlatform(t *testing.T, cfg *board.Config) (*sim.Board, *Platform) {
	t.Helper()
	b := sim.NewBoard(cfg)
	p, err := NewPlatform(cfg, Drivers{
		GPIO:  b.GPIO,
		Timer: b.Timer,
		ADC:   b.ADC,
		SPI:   b.Buses(),
		VBUS:  b.Vbus,
	})
	if err != nil {
		t.Fatalf("NewPlatform failed: %v", err)
	}
	if err := p.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return b, p
}

func TestNewPlatformValidatesBoard(t *testing.T) {
	cfg := board.Default()
	cfg.PowerPin = hal.NoPin
	b := sim.NewBoard(board.Default())
	_, err := NewPlatform(cfg, Drivers{GPIO: b.GPIO, Timer: b.Timer, ADC: b.ADC, VBUS: b.Vbus})
	if errcode.Of(err) != errcode.InvalidParams {
		t.Errorf("Expected invalid_params, got %v", err)
	}

	_, err = NewPlatform(board.Default(), Drivers{GPIO: b.GPIO})
	if errcode.Of(err) != errcode.InvalidParams {
		t.Errorf("Expected invalid_params for missing drivers, got %v", err)
	}
}

func TestPlatformInitSafeState(t *testing.T) {
	cfg := board.Default()
	b, p := newSimPlatform(t, cfg)

	if p.Power() {
		t.Error("Target powered after init")
	}
	if b.GPIO.Mode(cfg.PowerPin) != hal.ModeOutputOpenDrain {
		t.Errorf("Power pin mode %v", b.GPIO.Mode(cfg.PowerPin))
	}
	if b.GPIO.Latch(cfg.Reset.Pin) != !cfg.Reset.AssertHigh {
		t.Error("Reset asserted after init")
	}
	if b.GPIO.Mode(cfg.Voltage.Pin) != hal.ModeInputAnalog {
		t.Errorf("Voltage pin mode %v", b.GPIO.Mode(cfg.Voltage.Pin))
	}
	if !b.Vbus.Enabled() {
		t.Error("VBUS interrupt not enabled")
	}
	if p.PowerState() != (PowerRailState{}) {
		t.Errorf("Unexpected rail state %+v", p.PowerState())
	}
}

func TestPlatformSession(t *testing.T) {
	cfg := board.Default()
	b, p := newSimPlatform(t, cfg)
	b.ADC.SetRaw(2731)

	if err := p.SetPower(true); err != nil {
		t.Fatalf("SetPower failed: %v", err)
	}
	if !p.Power() {
		t.Fatal("Power() = false")
	}
	s, err := p.VoltageString()
	if err != nil || s != "3.3V" {
		t.Errorf("VoltageString = %q, %v", s, err)
	}

	p.AssertReset(true)
	p.AssertReset(false)

	if err := p.SPIInit(board.BusInternal); err != nil {
		t.Fatalf("SPIInit failed: %v", err)
	}
	if err := p.SPISelect(ChipSelectAssert | uint8(board.DeviceIntFlash)); err != nil {
		t.Fatalf("SPISelect failed: %v", err)
	}
	if in, err := p.SPITransfer(board.BusInternal, 0x9f); err != nil || in != 0x9f {
		t.Errorf("SPITransfer = %#x, %v", in, err)
	}
	if err := p.SPISelect(uint8(board.DeviceIntFlash)); err != nil {
		t.Fatalf("SPISelect release failed: %v", err)
	}

	p.Shutdown()
	if p.Power() {
		t.Error("Power() after shutdown")
	}
	if p.SPIEnabled(board.BusInternal) {
		t.Error("Bus still enabled after shutdown")
	}
	if b.GPIO.Latch(cfg.Reset.Pin) != !cfg.Reset.AssertHigh {
		t.Error("Reset asserted after shutdown")
	}
}

func TestPlatformSingleton(t *testing.T) {
	SetPlatform(nil)
	if _, err := GetPlatform(); err != errcode.NotReady {
		t.Errorf("Expected not_ready, got %v", err)
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("MustPlatform did not panic")
			}
		}()
		MustPlatform()
	}()

	_, p := newSimPlatform(t, board.Default())
	SetPlatform(p)
	defer SetPlatform(nil)
	if got, err := GetPlatform(); err != nil || got != p {
		t.Errorf("GetPlatform = %p, %v", got, err)
	}
}
