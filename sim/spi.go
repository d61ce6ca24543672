package sim

import (
	"errors"
	"sync"
)

// ErrBusDisabled is returned by transfers on a bus that is not configured.
var ErrBusDisabled = errors.New("sim: spi bus disabled")

// SPIBus is a loopback SPI controller. Respond, when set, computes the
// byte clocked in for each byte clocked out; otherwise the bus echoes.
type SPIBus struct {
	mu sync.Mutex

	Respond func(out byte) byte

	clock   bool
	enabled bool
	resets  int
	sent    []byte
}

func (s *SPIBus) EnableClock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = true
}

func (s *SPIBus) DisableClock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = false
}

func (s *SPIBus) ResetPulse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	s.enabled = false
}

func (s *SPIBus) Configure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.clock {
		return errors.New("sim: spi clock gated")
	}
	s.enabled = true
	return nil
}

func (s *SPIBus) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
}

// Transfer exchanges one byte.
func (s *SPIBus) Transfer(b byte) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || !s.clock {
		return 0, ErrBusDisabled
	}
	s.sent = append(s.sent, b)
	if s.Respond != nil {
		return s.Respond(b), nil
	}
	return b, nil
}

// Tx exchanges w and r byte by byte; either may be nil.
func (s *SPIBus) Tx(w, r []byte) error {
	n := len(w)
	if len(r) > n {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		var out byte
		if i < len(w) {
			out = w[i]
		}
		in, err := s.Transfer(out)
		if err != nil {
			return err
		}
		if i < len(r) {
			r[i] = in
		}
	}
	return nil
}

// Enabled reports whether the controller is configured and clocked.
func (s *SPIBus) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled && s.clock
}

// Clocked reports the clock gate.
func (s *SPIBus) Clocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Resets returns the number of reset pulses.
func (s *SPIBus) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// Sent returns every byte clocked out.
func (s *SPIBus) Sent() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.sent...)
}
