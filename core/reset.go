package core

import (
	"probeplat/board"
	"probeplat/errcode"
	"probeplat/hal"
)

// ResetController drives and senses the target nRST line.
type ResetController struct {
	gpio   hal.GPIODriver
	wait   Waiter
	cfg    board.Reset
	settle uint32
}

// NewResetController binds the controller to the board's reset wiring.
// settle is the busy-wait run after every assert.
func NewResetController(gpio hal.GPIODriver, wait Waiter, cfg board.Reset, settle uint32) *ResetController {
	return &ResetController{gpio: gpio, wait: wait, cfg: cfg, settle: settle}
}

// Init releases nRST and makes it an output, and biases the sense input
// the way the board straps it.
func (r *ResetController) Init() error {
	r.Assert(false)
	if err := r.gpio.SetMode(r.cfg.Pin, hal.ModeOutputPushPull); err != nil {
		return errcode.Wrap(errcode.Error, "reset_init", err)
	}
	if err := r.gpio.SetMode(r.cfg.TMSPin, hal.ModeOutputPushPull); err != nil {
		return errcode.Wrap(errcode.Error, "reset_init", err)
	}
	pull := hal.ModeInputPullUp
	if r.cfg.SensePullDown {
		pull = hal.ModeInputPullDown
	}
	r.gpio.Set(r.cfg.SensePin, !r.cfg.SensePullDown)
	if err := r.gpio.SetMode(r.cfg.SensePin, pull); err != nil {
		return errcode.Wrap(errcode.Error, "reset_init", err)
	}
	return nil
}

// Assert drives nRST. TMS is forced high first on every call: on this
// hardware reset and TMS share drive circuitry.
func (r *ResetController) Assert(active bool) {
	r.gpio.Set(r.cfg.TMSPin, true)
	r.gpio.Set(r.cfg.Pin, active == r.cfg.AssertHigh)
	if active {
		r.wait.Settle(r.settle)
		RecordEvent(EvtResetAssert, 0, 0)
		return
	}
	RecordEvent(EvtResetRelease, 0, 0)
}

// Sense reads the reset sense input. No debouncing.
func (r *ResetController) Sense() bool {
	return r.gpio.Get(r.cfg.SensePin)
}
