// Package serial opens the host side of the probe's USB CDC link.
package serial

import "io"

// Port is the byte stream the host transport runs over. The native port
// and the in-process simulator both satisfy it.
type Port interface {
	io.ReadWriteCloser

	// Flush discards anything buffered in either direction.
	Flush() error
}

// Config describes how to open a port.
type Config struct {
	// Device path, e.g. "/dev/ttyACM0" or "COM3".
	Device string

	// Baud is ignored by USB CDC but still required by the OS driver.
	Baud int

	// ReadTimeout in milliseconds; 0 blocks.
	ReadTimeout int
}

// DefaultConfig returns the settings used by probectl.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}
