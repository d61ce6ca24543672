package core

import (
	"sync/atomic"

	"probeplat/protocol"
)

// FirmwareState holds the global firmware state
type FirmwareState struct {
	isShutdown uint32 // atomic bool
	hwVersion  uint32
}

var globalState = &FirmwareState{}

// InitCoreCommands registers the protocol bootstrap and housekeeping
// messages. identify_response and identify must keep IDs 0 and 1: hosts
// use them before they have the dictionary.
func InitCoreCommands() {
	RegisterResponse("identify_response", "offset=%u data=%*s")       // ID 0
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify) // ID 1

	RegisterCommand("get_uptime", "", handleGetUptime)
	RegisterCommand("get_clock", "", handleGetClock)
	RegisterCommand("get_config", "", handleGetConfig)
	RegisterCommand("emergency_stop", "", handleEmergencyStop)
	RegisterCommand("reset", "", handleReset)

	RegisterResponse("clock", "clock=%u")
	RegisterResponse("uptime", "high=%u clock=%u")
	RegisterResponse("config", "is_shutdown=%c hw_version=%c")

	RegisterConstant("CLOCK_FREQ", uint32(TimerFreq))
}

// handleIdentify returns one chunk of the dictionary
func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	chunk := GetGlobalDictionary().GetChunk(offset, uint8(count))
	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

func handleGetUptime(data *[]byte) error {
	uptime := GetUptime()
	SendResponse("uptime", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(uptime>>32))
		protocol.EncodeVLQUint(output, uint32(uptime))
	})
	return nil
}

func handleGetClock(data *[]byte) error {
	clock := GetTime()
	SendResponse("clock", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, clock)
	})
	return nil
}

func handleGetConfig(data *[]byte) error {
	shutdown := IsShutdown()
	hw := atomic.LoadUint32(&globalState.hwVersion)
	SendResponse("config", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, boolArg(shutdown))
		protocol.EncodeVLQUint(output, hw)
	})
	return nil
}

// handleEmergencyStop drops target power and releases reset. Power stays
// locked off until the host resets the session.
func handleEmergencyStop(data *[]byte) error {
	TryShutdown("emergency_stop")
	return nil
}

// TryShutdown latches the shutdown flag and puts the target in its safe
// state.
func TryShutdown(reason string) {
	atomic.StoreUint32(&globalState.isShutdown, 1)
	if p, err := GetPlatform(); err == nil {
		p.Shutdown()
	}
	DebugPrintln("[SHUTDOWN] " + reason)
	DumpEvents()
}

// IsShutdown returns true if the firmware is in shutdown state
func IsShutdown() bool {
	return atomic.LoadUint32(&globalState.isShutdown) != 0
}

// SetHWVersion sets the hardware revision reported by get_config.
func SetHWVersion(v uint8) {
	atomic.StoreUint32(&globalState.hwVersion, uint32(v))
}

// ResetFirmwareState clears the shutdown flag for a new host session.
func ResetFirmwareState() {
	atomic.StoreUint32(&globalState.isShutdown, 0)
}

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// SendResponse encodes a registered response on the global transport. An
// unregistered name is a programming error and panics.
func SendResponse(responseName string, args func(output protocol.OutputBuffer)) {
	if globalTransport == nil {
		return
	}
	cmd, ok := globalRegistry.GetCommandByName(responseName)
	if !ok {
		panic("Response not registered: " + responseName)
	}
	globalTransport.SendCommand(cmd.ID, args)
}

// Global transport for sending responses (set by main)
var globalTransport *protocol.Transport

// SetGlobalTransport sets the global transport for sending responses
func SetGlobalTransport(transport *protocol.Transport) {
	globalTransport = transport
}

// Global reset handler (set by target-specific code)
var globalResetHandler func()

// resetPending is set by the reset command and acted on by the main loop
// once the ACK is out.
var resetPending uint32 // atomic bool

// SetResetHandler sets the platform-specific reset handler
func SetResetHandler(handler func()) {
	globalResetHandler = handler
}

func handleReset(_ *[]byte) error {
	atomic.StoreUint32(&resetPending, 1)
	return nil
}

// CheckPendingReset runs the reset handler if a reset was requested. The
// target is put in its safe state first.
func CheckPendingReset() {
	if atomic.SwapUint32(&resetPending, 0) == 0 {
		return
	}
	if p, err := GetPlatform(); err == nil {
		p.Shutdown()
	}
	if globalResetHandler != nil {
		globalResetHandler()
	}
}
