package core

import (
	"probeplat/board"
	"probeplat/errcode"
	"probeplat/hal"
	"probeplat/protocol"
)

// EventsPerQuery bounds get_events so its replies fit one output buffer.
const EventsPerQuery = 16

// InitProbeCommands registers the target power, reset, voltage and SPI
// commands and the constants describing cfg.
func InitProbeCommands(cfg *board.Config) {
	RegisterCommand("target_power_set", "on=%c", handleTargetPowerSet)
	RegisterCommand("target_power_query", "", handleTargetPowerQuery)
	RegisterCommand("target_reset_set", "assert=%c", handleTargetResetSet)
	RegisterCommand("target_reset_query", "", handleTargetResetQuery)
	RegisterCommand("target_voltage_query", "", handleTargetVoltageQuery)
	RegisterCommand("spi_bus_init", "bus=%c", handleSPIBusInit)
	RegisterCommand("spi_bus_deinit", "bus=%c", handleSPIBusDeinit)
	RegisterCommand("spi_chip_select", "code=%c", handleSPIChipSelect)
	RegisterCommand("spi_xfer", "bus=%c data=%*s", handleSPIXfer)
	RegisterCommand("get_events", "", handleGetEvents)

	RegisterResponse("target_power_state", "on=%c")
	RegisterResponse("target_reset_state", "sense=%c")
	RegisterResponse("target_voltage", "raw=%u decivolts=%u text=%*s")
	RegisterResponse("spi_bus_state", "bus=%c enabled=%c")
	RegisterResponse("spi_chip_select_state", "code=%c")
	RegisterResponse("spi_xfer_response", "bus=%c data=%*s")
	RegisterResponse("event", "type=%c clock=%u value1=%u value2=%u")
	RegisterResponse("platform_error", "op=%*s code=%*s")

	RegisterConstant("BOARD", cfg.Name)
	RegisterConstant("HW_VERSION", cfg.HWVersion)
	RegisterConstant("TPWR_SOFT_START_STEPS", uint32(board.SoftStartSteps))
	RegisterConstant("ADC_MAX", uint32(hal.ADCMax))
	RegisterEnumeration("spi_bus", board.BusNames())
	RegisterEnumeration("spi_device", board.DeviceNames())
	SetHWVersion(cfg.HWVersion)
}

// reportError turns a platform failure into a platform_error response. The
// command itself succeeds so the rest of the frame still runs.
func reportError(op string, err error) error {
	code := errcode.Of(err)
	DebugPrintln("[CMD] " + op + ": " + err.Error())
	SendResponse("platform_error", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQString(output, op)
		protocol.EncodeVLQString(output, string(code))
	})
	return nil
}

func sendPowerState(p *Platform) {
	on := p.Power()
	SendResponse("target_power_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, boolArg(on))
	})
}

func sendResetState(p *Platform) {
	sense := p.ResetSense()
	SendResponse("target_reset_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, boolArg(sense))
	})
}

func sendBusState(p *Platform, bus board.BusID) {
	enabled := p.SPIEnabled(bus)
	SendResponse("spi_bus_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(bus))
		protocol.EncodeVLQUint(output, boolArg(enabled))
	})
}

func handleTargetPowerSet(data *[]byte) error {
	on, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	p, err := GetPlatform()
	if err != nil {
		return reportError("target_power_set", err)
	}
	if on != 0 && IsShutdown() {
		return reportError("target_power_set", errcode.New(errcode.NotReady, "target_power_set", "shutdown"))
	}
	if err := p.SetPower(on != 0); err != nil {
		return reportError("target_power_set", err)
	}
	sendPowerState(p)
	return nil
}

func handleTargetPowerQuery(data *[]byte) error {
	p, err := GetPlatform()
	if err != nil {
		return reportError("target_power_query", err)
	}
	sendPowerState(p)
	return nil
}

func handleTargetResetSet(data *[]byte) error {
	assert, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	p, err := GetPlatform()
	if err != nil {
		return reportError("target_reset_set", err)
	}
	p.AssertReset(assert != 0)
	sendResetState(p)
	return nil
}

func handleTargetResetQuery(data *[]byte) error {
	p, err := GetPlatform()
	if err != nil {
		return reportError("target_reset_query", err)
	}
	sendResetState(p)
	return nil
}

func handleTargetVoltageQuery(data *[]byte) error {
	p, err := GetPlatform()
	if err != nil {
		return reportError("target_voltage_query", err)
	}
	raw, err := p.VoltageRaw()
	if err != nil {
		return reportError("target_voltage_query", err)
	}
	dv := Decivolts(raw)
	RecordEvent(EvtVoltage, raw, dv)
	SendResponse("target_voltage", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, raw)
		protocol.EncodeVLQUint(output, dv)
		protocol.EncodeVLQString(output, FormatDecivolts(dv))
	})
	return nil
}

func decodeBus(data *[]byte) (board.BusID, error) {
	bus, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return 0, err
	}
	if bus > 0xff {
		bus = 0xff
	}
	return board.BusID(bus), nil
}

func handleSPIBusInit(data *[]byte) error {
	bus, err := decodeBus(data)
	if err != nil {
		return err
	}
	p, err := GetPlatform()
	if err != nil {
		return reportError("spi_bus_init", err)
	}
	if err := p.SPIInit(bus); err != nil {
		return reportError("spi_bus_init", err)
	}
	sendBusState(p, bus)
	return nil
}

func handleSPIBusDeinit(data *[]byte) error {
	bus, err := decodeBus(data)
	if err != nil {
		return err
	}
	p, err := GetPlatform()
	if err != nil {
		return reportError("spi_bus_deinit", err)
	}
	if err := p.SPIDeinit(bus); err != nil {
		return reportError("spi_bus_deinit", err)
	}
	sendBusState(p, bus)
	return nil
}

func handleSPIChipSelect(data *[]byte) error {
	code, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if code > 0xff {
		return reportError("spi_chip_select", errcode.New(errcode.InvalidArgument, "spi_chip_select", "code out of range"))
	}
	p, err := GetPlatform()
	if err != nil {
		return reportError("spi_chip_select", err)
	}
	if err := p.SPISelect(uint8(code)); err != nil {
		return reportError("spi_chip_select", err)
	}
	SendResponse("spi_chip_select_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, code)
	})
	return nil
}

// handleSPIXfer clocks each byte through the bus in order and returns the
// bytes read back.
func handleSPIXfer(data *[]byte) error {
	bus, err := decodeBus(data)
	if err != nil {
		return err
	}
	out, err := protocol.DecodeVLQBytes(data)
	if err != nil {
		return err
	}
	p, err := GetPlatform()
	if err != nil {
		return reportError("spi_xfer", err)
	}
	in := make([]byte, len(out))
	for i, b := range out {
		if in[i], err = p.SPITransfer(bus, b); err != nil {
			return reportError("spi_xfer", err)
		}
	}
	SendResponse("spi_xfer_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(bus))
		protocol.EncodeVLQBytes(output, in)
	})
	return nil
}

// handleGetEvents replays the newest EventsPerQuery events, oldest first.
func handleGetEvents(data *[]byte) error {
	events := Events()
	if len(events) > EventsPerQuery {
		events = events[len(events)-EventsPerQuery:]
	}
	for _, evt := range events {
		SendResponse("event", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(evt.Type))
			protocol.EncodeVLQUint(output, evt.Clock)
			protocol.EncodeVLQUint(output, evt.Value1)
			protocol.EncodeVLQUint(output, evt.Value2)
		})
	}
	return nil
}
