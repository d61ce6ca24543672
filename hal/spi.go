package hal

import "tinygo.org/x/drivers"

// SPIBus is one SPI controller. Byte exchange goes through drivers.SPI so
// TinyGo's machine.SPI and any tinygo driver-compatible bus fit.
type SPIBus interface {
	drivers.SPI

	// EnableClock ungates the controller's peripheral clock.
	EnableClock()
	// DisableClock gates it again.
	DisableClock()
	// ResetPulse pulses the controller's peripheral reset.
	ResetPulse()

	// Configure sets up master mode (mode 0, 8-bit, MSB first) and
	// enables the controller.
	Configure() error
	// Disable stops the controller.
	Disable()
}
