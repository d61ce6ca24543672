package core

import (
	"testing"

	"probeplat/board"
	"probeplat/hal"
	"probeplat/sim"
)

func TestResetAssertDrivesTMSFirst(t *testing.T) {
	tests := []struct {
		name       string
		assertHigh bool
	}{
		{"npn driver", true},
		{"direct open drain", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := board.Default()
			cfg.Reset.AssertHigh = tt.assertHigh
			b := sim.NewBoard(cfg)
			w := &recordingWaiter{}
			r := NewResetController(b.GPIO, w, cfg.Reset, cfg.Timing.ResetSettle)

			r.Assert(true)
			writes := b.GPIO.Writes()
			if len(writes) != 2 {
				t.Fatalf("Expected 2 writes, got %+v", writes)
			}
			if writes[0].Pin != cfg.Reset.TMSPin || !writes[0].High {
				t.Errorf("First write should drive TMS high, got %+v", writes[0])
			}
			if writes[1].Pin != cfg.Reset.Pin || writes[1].High != tt.assertHigh {
				t.Errorf("Assert wrote %+v", writes[1])
			}
			if len(w.settles) != 1 || w.settles[0] != 10000 {
				t.Errorf("Expected one 10000 settle, got %v", w.settles)
			}

			b.GPIO.ClearLog()
			r.Assert(false)
			writes = b.GPIO.Writes()
			if len(writes) != 2 || writes[0].Pin != cfg.Reset.TMSPin || writes[1].High == tt.assertHigh {
				t.Errorf("Release wrote %+v", writes)
			}
			if len(w.settles) != 1 {
				t.Errorf("Release must not settle, got %v", w.settles)
			}
		})
	}
}

func TestResetInit(t *testing.T) {
	cfg := board.Default()
	b := sim.NewBoard(cfg)
	r := NewResetController(b.GPIO, &recordingWaiter{}, cfg.Reset, cfg.Timing.ResetSettle)
	if err := r.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if b.GPIO.Mode(cfg.Reset.Pin) != hal.ModeOutputPushPull {
		t.Errorf("nRST mode %v", b.GPIO.Mode(cfg.Reset.Pin))
	}
	if b.GPIO.Latch(cfg.Reset.Pin) != !cfg.Reset.AssertHigh {
		t.Error("nRST initialised asserted")
	}
	if b.GPIO.Mode(cfg.Reset.SensePin) != hal.ModeInputPullUp {
		t.Errorf("sense mode %v", b.GPIO.Mode(cfg.Reset.SensePin))
	}
}

func TestResetSenseIsUnlatched(t *testing.T) {
	cfg := board.Default()
	b := sim.NewBoard(cfg)
	r := NewResetController(b.GPIO, &recordingWaiter{}, cfg.Reset, cfg.Timing.ResetSettle)
	r.Init()

	for _, level := range []bool{false, true, false} {
		b.SetResetSense(level)
		if got := r.Sense(); got != level {
			t.Errorf("Sense() = %v, want %v", got, level)
		}
	}
}

func TestResetSensePull(t *testing.T) {
	tests := []struct {
		name     string
		pullDown bool
		want     hal.PinMode
	}{
		{"default", false, hal.ModeInputPullUp},
		{"strapped low", true, hal.ModeInputPullDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := board.Default()
			cfg.Reset.SensePullDown = tt.pullDown
			b := sim.NewBoard(cfg)
			r := NewResetController(b.GPIO, &recordingWaiter{}, cfg.Reset, cfg.Timing.ResetSettle)
			if err := r.Init(); err != nil {
				t.Fatalf("Init failed: %v", err)
			}
			if got := b.GPIO.Mode(cfg.Reset.SensePin); got != tt.want {
				t.Errorf("sense mode %v, want %v", got, tt.want)
			}
			if r.Sense() != !tt.pullDown {
				t.Errorf("Undriven sense reads %v", r.Sense())
			}
		})
	}
}
