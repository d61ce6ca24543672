package simport

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"probeplat/core"
	"probeplat/hal"
	"probeplat/protocol"
	"probeplat/sim"
)

func TestRawForDecivolts(t *testing.T) {
	for _, dv := range []uint32{0, 5, 18, 33, 49} {
		if got := core.Decivolts(uint32(RawForDecivolts(dv))); got != dv {
			t.Errorf("Decivolts(RawForDecivolts(%d)) = %d", dv, got)
		}
	}
	if raw := RawForDecivolts(120); raw != 0x0fff {
		t.Errorf("RawForDecivolts(120) = %d, want full scale", raw)
	}
}

func TestSingleInstance(t *testing.T) {
	p, err := Open(nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(nil, Options{}); err == nil {
		t.Error("second Open succeeded while the first is running")
	}
	p.Close()

	p, err = Open(nil, Options{})
	if err != nil {
		t.Fatalf("Open after Close: %v", err)
	}
	p.Close()
}

func TestBootState(t *testing.T) {
	var log strings.Builder
	p, err := Open(nil, Options{Log: &log, Vbus: true})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	var powerOn, vbusPulled bool
	p.Do(func(b *sim.Board) {
		powerOn = !b.GPIO.Latch(b.Config.PowerPin)
		vbusPulled = b.GPIO.Mode(b.Config.Vbus.PullUpPin) == hal.ModeOutputPushPull
	})
	if powerOn {
		t.Error("target rail energized at boot")
	}
	if !vbusPulled {
		t.Error("VBUS pull-up not driven with VBUS present")
	}
	if !strings.Contains(log.String(), "[PLATFORM]") {
		t.Errorf("debug log not routed: %q", log.String())
	}
}

func TestRawLink(t *testing.T) {
	p, err := Open(nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	out := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(out, 1) // identify
	protocol.EncodeVLQUint(out, 0)
	protocol.EncodeVLQUint(out, 8)
	block, err := protocol.AppendBlock(nil, protocol.MessageDest, out.Result())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Write(block); err != nil {
		t.Fatal(err)
	}

	var got []byte
	buf := make([]byte, 256)
	deadline := time.Now().Add(time.Second)
	for !bytes.Contains(got, []byte(`{"versio`)) && time.Now().Before(deadline) {
		n, err := p.Read(buf)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, buf[:n]...)
	}
	if !bytes.Contains(got, []byte(`{"versio`)) {
		t.Errorf("identify reply missing dictionary head: % X", got)
	}
}

func TestClosedPort(t *testing.T) {
	p, err := Open(nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	p.Close()
	if _, err := p.Write([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %v", err)
	}
	if _, err := p.Read(make([]byte, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after Close = %v", err)
	}
	if err := p.SetVbus(true); !errors.Is(err, ErrClosed) {
		t.Errorf("SetVbus after Close = %v", err)
	}
	if _, err := core.GetPlatform(); err == nil {
		t.Error("platform still installed after Close")
	}
}
