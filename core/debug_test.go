package core

import (
	"strings"
	"testing"
)

func TestEventRingWraps(t *testing.T) {
	ClearEvents()
	defer ClearEvents()

	for i := 0; i < EventRingSize+5; i++ {
		RecordEvent(EvtChipSelect, uint32(i), 0)
	}
	events := Events()
	if len(events) != EventRingSize {
		t.Fatalf("Expected %d events, got %d", EventRingSize, len(events))
	}
	if events[0].Value1 != 5 || events[len(events)-1].Value1 != EventRingSize+4 {
		t.Errorf("Ring order wrong: first=%d last=%d", events[0].Value1, events[len(events)-1].Value1)
	}
	if EventCount() != EventRingSize+5 {
		t.Errorf("EventCount = %d", EventCount())
	}
}

func TestEventClock(t *testing.T) {
	ClearEvents()
	defer ClearEvents()
	SetTime(1234)
	RecordEvent(EvtPowerOn, 63, 0)
	if ev := Events(); len(ev) != 1 || ev[0].Clock != 1234 {
		t.Errorf("Unexpected events %+v", ev)
	}
}

func TestDumpEvents(t *testing.T) {
	ClearEvents()
	defer ClearEvents()

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})

	RecordEvent(EvtVbusConnect, 0, 0)
	RecordEvent(EvtPowerTimeout, 12, 0)
	DumpEvents()

	out := strings.Join(lines, "\n")
	if !strings.Contains(out, "VBUS_CONNECT") || !strings.Contains(out, "POWER_TIMEOUT! clock=") {
		t.Errorf("Dump missing events:\n%s", out)
	}
}

func TestDebugPrintlnGated(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})
	defer SetDebugEnabled(false)

	SetDebugEnabled(false)
	DebugPrintln("hidden")
	SetDebugEnabled(true)
	DebugPrintln("shown")
	if len(lines) != 1 || lines[0] != "shown" {
		t.Errorf("lines = %v", lines)
	}
}

func TestUptimeTracksWrap(t *testing.T) {
	SetTime(0xfffffff0)
	TimerInit()
	SetTime(0x10)
	if up := GetUptime(); up != 0x20 {
		t.Errorf("GetUptime = %#x, want 0x20", up)
	}
	SetTime(0)
}
