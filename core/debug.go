package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event is one platform state change kept for post-mortem analysis.
type Event struct {
	Type   uint8  // Event type code
	Clock  uint32 // System clock at event
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Event type codes
const (
	EvtPowerOn        = 1  // rail energized, v1 = ramp steps
	EvtPowerOff       = 2  // rail de-energized
	EvtPowerTimeout   = 3  // ramp aborted, v1 = step that timed out
	EvtResetAssert    = 4  // nRST asserted
	EvtResetRelease   = 5  // nRST released
	EvtVbusConnect    = 6  // VBUS present, pull-up driven
	EvtVbusDisconnect = 7  // VBUS gone, pull-up floated
	EvtSPIInit        = 8  // v1 = bus
	EvtSPIDeinit      = 9  // v1 = bus
	EvtChipSelect     = 10 // v1 = device, v2 = 1 when asserted
	EvtVoltage        = 11 // v1 = raw, v2 = decivolts
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event ring. Writers may run in interrupt context, so writes are
	// bracketed by disableInterrupts and never allocate.
	eventRing     [EventRingSize]Event
	eventRingHead uint8
	eventCount    uint32
	eventsEnabled bool = true
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent captures an event in the ring buffer.
func RecordEvent(eventType uint8, value1, value2 uint32) {
	if !eventsEnabled {
		return
	}
	state := disableInterrupts()
	idx := eventRingHead
	eventRing[idx] = Event{
		Type:   eventType,
		Clock:  GetTime(),
		Value1: value1,
		Value2: value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
	eventCount++
	restoreInterrupts(state)
}

// Events returns the buffered events, oldest first.
func Events() []Event {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	out := make([]Event, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.Type == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// EventCount returns the number of events recorded since the last clear,
// including those overwritten in the ring.
func EventCount() uint32 {
	return eventCount
}

// EventName returns a short label for an event type.
func EventName(eventType uint8) string {
	switch eventType {
	case EvtPowerOn:
		return "POWER_ON"
	case EvtPowerOff:
		return "POWER_OFF"
	case EvtPowerTimeout:
		return "POWER_TIMEOUT!"
	case EvtResetAssert:
		return "RESET_ASSERT"
	case EvtResetRelease:
		return "RESET_RELEASE"
	case EvtVbusConnect:
		return "VBUS_CONNECT"
	case EvtVbusDisconnect:
		return "VBUS_DISCONNECT"
	case EvtSPIInit:
		return "SPI_INIT"
	case EvtSPIDeinit:
		return "SPI_DEINIT"
	case EvtChipSelect:
		return "CHIP_SELECT"
	case EvtVoltage:
		return "VOLTAGE"
	}
	return "UNKNOWN"
}

// DumpEvents outputs the event ring (call on shutdown/error)
func DumpEvents() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	debugPrintln("[EVENTS] Total recorded: " + utoa(eventCount))
	for _, evt := range Events() {
		debugPrintln("[EVENTS] " + EventName(evt.Type) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEvents clears the event buffer
func ClearEvents() {
	state := disableInterrupts()
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
	eventCount = 0
	restoreInterrupts(state)
}
