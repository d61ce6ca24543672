// Package sim is a simulated HAL: a recording GPIO sink, a PWM timer driven
// by a simulated clock, a scripted ADC, loopback SPI buses and an edge
// source that tests or the host simulator fire by hand.
package sim

import (
	"sync"

	"probeplat/hal"
)

// PinWrite is one recorded latch write. Seq orders it against mode
// changes on the same GPIO; Mode is the pin's mode when it was written,
// so a write that never reaches the pad (input mode) is visible.
type PinWrite struct {
	Seq  uint64
	Pin  hal.Pin
	High bool
	Mode hal.PinMode
}

// ModeChange is one recorded SetMode call.
type ModeChange struct {
	Seq  uint64
	Pin  hal.Pin
	Mode hal.PinMode
}

// GPIO records every write and mode change. Input pins read their
// externally driven level (SetInput); output pins read back their latch.
type GPIO struct {
	mu     sync.Mutex
	modes  map[hal.Pin]hal.PinMode
	latch  map[hal.Pin]bool
	inputs map[hal.Pin]bool

	seq     uint64
	writes  []PinWrite
	changes []ModeChange
}

// NewGPIO returns a GPIO with every pin floating low.
func NewGPIO() *GPIO {
	return &GPIO{
		modes:  make(map[hal.Pin]hal.PinMode),
		latch:  make(map[hal.Pin]bool),
		inputs: make(map[hal.Pin]bool),
	}
}

func (g *GPIO) SetMode(pin hal.Pin, mode hal.PinMode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.modes[pin] = mode
	g.seq++
	g.changes = append(g.changes, ModeChange{Seq: g.seq, Pin: pin, Mode: mode})
	return nil
}

func (g *GPIO) Set(pin hal.Pin, high bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latch[pin] = high
	g.seq++
	g.writes = append(g.writes, PinWrite{Seq: g.seq, Pin: pin, High: high, Mode: g.modes[pin]})
}

func (g *GPIO) Get(pin hal.Pin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.modes[pin] {
	case hal.ModeOutputPushPull:
		return g.latch[pin]
	case hal.ModeOutputOpenDrain:
		// released open-drain lines read the external level
		return g.latch[pin] && g.inputOrPull(pin)
	}
	return g.inputOrPull(pin)
}

func (g *GPIO) inputOrPull(pin hal.Pin) bool {
	if v, ok := g.inputs[pin]; ok {
		return v
	}
	return g.modes[pin] == hal.ModeInputPullUp || g.modes[pin] == hal.ModeOutputOpenDrain
}

// SetInput drives the external level seen by pin.
func (g *GPIO) SetInput(pin hal.Pin, high bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inputs[pin] = high
}

// Mode returns the current mode of pin.
func (g *GPIO) Mode(pin hal.Pin) hal.PinMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.modes[pin]
}

// Latch returns the last level written to pin.
func (g *GPIO) Latch(pin hal.Pin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latch[pin]
}

// Writes returns a copy of the write log.
func (g *GPIO) Writes() []PinWrite {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]PinWrite(nil), g.writes...)
}

// WritesTo returns the logged writes to one pin.
func (g *GPIO) WritesTo(pin hal.Pin) []PinWrite {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []PinWrite
	for _, w := range g.writes {
		if w.Pin == pin {
			out = append(out, w)
		}
	}
	return out
}

// ModeChangesOf returns the logged mode changes of one pin.
func (g *GPIO) ModeChangesOf(pin hal.Pin) []ModeChange {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []ModeChange
	for _, c := range g.changes {
		if c.Pin == pin {
			out = append(out, c)
		}
	}
	return out
}

// ModeChanges returns a copy of the mode-change log.
func (g *GPIO) ModeChanges() []ModeChange {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ModeChange(nil), g.changes...)
}

// ClearLog forgets recorded writes and mode changes but keeps pin state.
func (g *GPIO) ClearLog() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes = nil
	g.changes = nil
}
