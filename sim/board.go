package sim

import (
	"probeplat/board"
	"probeplat/hal"
)

// Board bundles one simulated peripheral of each kind for a board config.
type Board struct {
	Config *board.Config
	GPIO   *GPIO
	Timer  *Timer
	ADC    *ADC
	SPI    [board.NumBuses]*SPIBus
	Vbus   *EdgeSource
}

// NewBoard returns fresh simulated peripherals for cfg.
func NewBoard(cfg *board.Config) *Board {
	b := &Board{
		Config: cfg,
		GPIO:   NewGPIO(),
		Timer:  NewTimer(),
		ADC:    NewADC(),
		Vbus:   &EdgeSource{},
	}
	for i := range b.SPI {
		b.SPI[i] = &SPIBus{}
	}
	b.ADC.SelfClearing = !cfg.Voltage.ManualEOCClear
	return b
}

// Buses returns the SPI buses as HAL interfaces.
func (b *Board) Buses() [board.NumBuses]hal.SPIBus {
	var out [board.NumBuses]hal.SPIBus
	for i, s := range b.SPI {
		out[i] = s
	}
	return out
}

// VbusEdge drives the VBUS sense pin to level and fires the edge.
func (b *Board) VbusEdge(level bool) {
	b.GPIO.SetInput(b.Config.Vbus.SensePin, level)
	b.Vbus.Fire()
}

// SetResetSense drives the reset sense input.
func (b *Board) SetResetSense(level bool) {
	b.GPIO.SetInput(b.Config.Reset.SensePin, level)
}
