package core

import (
	"probeplat/board"
	"probeplat/errcode"
	"probeplat/hal"
)

// PowerRailState is the observable state of the target power switch.
// RampStep is non-zero only while a soft start is in progress.
type PowerRailState struct {
	Energized bool
	RampStep  uint8
}

// PowerSequencer drives the active-low target power switch. Switching on
// ramps the PWM duty through every compare value of one period before
// latching the pin on, which limits inrush into the target's decoupling.
type PowerSequencer struct {
	gpio  hal.GPIODriver
	timer hal.PWMTimer
	wait  Waiter
	pin   hal.Pin
	limit uint32
	state PowerRailState
}

// NewPowerSequencer binds the sequencer to its pin and PWM timer. limit
// bounds each wait for a PWM period (0 = unbounded).
func NewPowerSequencer(gpio hal.GPIODriver, timer hal.PWMTimer, wait Waiter, pin hal.Pin, limit uint32) *PowerSequencer {
	return &PowerSequencer{gpio: gpio, timer: timer, wait: wait, pin: pin, limit: limit}
}

// Init parks the switch off: latch high, open-drain, zero duty.
func (p *PowerSequencer) Init() error {
	p.gpio.Set(p.pin, true)
	if err := p.gpio.SetMode(p.pin, hal.ModeOutputOpenDrain); err != nil {
		return errcode.Wrap(errcode.Error, "power_init", err)
	}
	p.timer.SetCompare(0)
	p.state = PowerRailState{}
	return nil
}

// SetPower switches the rail. Switching off is a single pin write;
// switching on runs the soft-start ramp and blocks for 64 PWM periods.
// The ramp is not re-entrant and must not be run from interrupt context.
func (p *PowerSequencer) SetPower(on bool) error {
	if !on {
		p.gpio.Set(p.pin, true)
		p.state = PowerRailState{}
		RecordEvent(EvtPowerOff, 0, 0)
		return nil
	}

	if err := p.gpio.SetMode(p.pin, hal.ModeAltPushPull); err != nil {
		return errcode.Wrap(errcode.Error, "set_power", err)
	}
	p.timer.ClearUpdate()
	if err := p.waitPeriod(); err != nil {
		return p.abort(0, err)
	}
	for step := uint8(1); step < board.SoftStartSteps; step++ {
		p.state.RampStep = step
		p.timer.SetCompare(uint32(step))
		if err := p.waitPeriod(); err != nil {
			return p.abort(step, err)
		}
	}

	// Latch the raw pin on before leaving PWM so the rail never glitches.
	p.gpio.Set(p.pin, false)
	if err := p.gpio.SetMode(p.pin, hal.ModeOutputOpenDrain); err != nil {
		return errcode.Wrap(errcode.Error, "set_power", err)
	}
	p.timer.SetCompare(0)
	p.state = PowerRailState{Energized: true}
	RecordEvent(EvtPowerOn, board.SoftStartSteps-1, 0)
	return nil
}

// waitPeriod waits for the timer's update flag and clears it.
func (p *PowerSequencer) waitPeriod() error {
	if err := p.wait.Await(p.limit, p.timer.UpdatePending); err != nil {
		return err
	}
	p.timer.ClearUpdate()
	return nil
}

// abort leaves the rail de-energized after a stalled ramp.
func (p *PowerSequencer) abort(step uint8, cause error) error {
	p.gpio.Set(p.pin, true)
	if err := p.gpio.SetMode(p.pin, hal.ModeOutputOpenDrain); err != nil {
		DebugPrintln("[POWER] switch pin not reverted: " + err.Error())
	}
	p.timer.SetCompare(0)
	p.state = PowerRailState{}
	RecordEvent(EvtPowerTimeout, uint32(step), 0)
	DebugPrintln("[POWER] ramp stalled at step " + itoa(int(step)))
	return &errcode.E{C: errcode.Of(cause), Op: "set_power", Msg: "pwm period not seen at step " + itoa(int(step)), Err: cause}
}

// Power reports whether the switch is on. The pin is active low.
func (p *PowerSequencer) Power() bool {
	return !p.gpio.Get(p.pin)
}

// State returns the tracked rail state.
func (p *PowerSequencer) State() PowerRailState {
	return p.state
}
