package core

import (
	"probeplat/board"
	"probeplat/errcode"
	"probeplat/hal"
)

// VbusMonitor mirrors USB VBUS presence onto the D+ pull-up. The pull-up
// pin's mode is its only state: push-pull high while VBUS is present,
// floating input otherwise. HandleEdge is the only writer of that mode.
type VbusMonitor struct {
	gpio hal.GPIODriver
	edge hal.EdgeSource
	cfg  board.Vbus
}

func NewVbusMonitor(gpio hal.GPIODriver, edge hal.EdgeSource, cfg board.Vbus) *VbusMonitor {
	return &VbusMonitor{gpio: gpio, edge: edge, cfg: cfg}
}

// Setup arms the both-edge interrupt and applies the current VBUS level
// once so the pull-up is never left in an unknown mode.
func (v *VbusMonitor) Setup() error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	v.gpio.Set(v.cfg.SensePin, true)
	v.gpio.Set(v.cfg.PullUpPin, true)
	if err := v.gpio.SetMode(v.cfg.SensePin, hal.ModeInputPullUp); err != nil {
		return errcode.Wrap(errcode.Error, "vbus_setup", err)
	}
	v.edge.SetHandler(v.HandleEdge)
	if err := v.edge.Enable(); err != nil {
		return errcode.Wrap(errcode.Error, "vbus_setup", err)
	}
	v.HandleEdge()
	return nil
}

// HandleEdge runs from interrupt context on every VBUS edge. It never
// blocks and always acknowledges the edge source.
func (v *VbusMonitor) HandleEdge() {
	mode, evt := hal.ModeInputFloat, uint8(EvtVbusDisconnect)
	if v.gpio.Get(v.cfg.SensePin) {
		mode, evt = hal.ModeOutputPushPull, EvtVbusConnect
	}
	if err := v.gpio.SetMode(v.cfg.PullUpPin, mode); err != nil {
		DebugPrintln("[VBUS] pull-up not set to " + mode.String() + ": " + err.Error())
	}
	RecordEvent(evt, 0, 0)
	v.edge.Acknowledge()
}

// Connected reports the sensed VBUS level.
func (v *VbusMonitor) Connected() bool {
	return v.gpio.Get(v.cfg.SensePin)
}
