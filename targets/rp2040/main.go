//go:build rp2040

package main

import (
	"machine"
	"time"

	"probeplat/board"
	"probeplat/core"
	"probeplat/hal"
	"probeplat/protocol"
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	msgerrors uint32

	// USB link state
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// Clear any watchdog state left over from a previous reset.
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	InitDebugUART()
	InitClock()
	core.TimerInit()

	cfg := board.Default()
	core.SetHWVersion(cfg.HWVersion)
	core.InitCoreCommands()
	core.InitProbeCommands(cfg)

	plat, err := core.NewPlatform(cfg, core.Drivers{
		GPIO:  newGPIO(cfg),
		Timer: newRampTimer(cfg.PowerPin),
		ADC:   newADC(),
		SPI:   [board.NumBuses]hal.SPIBus{newSPI(board.BusExternal, cfg), newSPI(board.BusInternal, cfg)},
		VBUS:  newPinEdge(cfg.Vbus.SensePin),
		Wait:  rpWaiter{},
	})
	if err == nil {
		err = plat.Init()
	}
	if err != nil {
		// Leave the platform unset; every target command then reports
		// not_ready and the host can still read the dictionary.
		core.DebugPrintln("[PLATFORM] init failed: " + err.Error())
	} else {
		core.SetPlatform(plat)
	}

	core.GetGlobalDictionary().BuildDictionary()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, core.DispatchCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
		core.ResetFirmwareState()
	})
	// Acks must leave before the next block is parsed.
	transport.SetFlushCallback(writeUSB)
	core.SetGlobalTransport(transport)

	// Watchdog reset re-enumerates USB more reliably than SYSRESETREQ.
	core.SetResetHandler(func() {
		if plat != nil {
			plat.Shutdown()
		}
		if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1}); err != nil {
			return
		}
		if err := machine.Watchdog.Start(); err != nil {
			return
		}
		for {
			time.Sleep(time.Millisecond)
		}
	})

	go usbReaderLoop()

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			UpdateSystemTime()

			if inputBuffer.Available() > 0 {
				data := inputBuffer.Data()
				in := protocol.NewSliceInputBuffer(data)
				transport.Receive(in)
				if consumed := len(data) - in.Available(); consumed > 0 {
					inputBuffer.Pop(consumed)
				}
			}

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
			}

			// Runs after the flush so the reset ack reaches the host.
			core.CheckPendingReset()
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// usbReaderLoop moves bytes from the CDC endpoint into inputBuffer.
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			b, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(time.Millisecond)
				continue
			}
			if usbWasDisconnected {
				// A new session: drop everything from the old one.
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
				core.ResetFirmwareState()
				consecutiveWriteFailures = 0
			}
			if inputBuffer.Write([]byte{b}) == 0 {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB sends the pending output. After repeated failures the link is
// treated as gone and stale data is dropped.
func writeUSB() {
	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
