package sim

import (
	"errors"
	"sync"
)

// EdgeSource is a both-edge interrupt line fired by hand. Fire runs the
// bound handler synchronously, as the interrupt controller would.
type EdgeSource struct {
	mu      sync.Mutex
	handler func()
	enabled bool
	pending int
	acks    int
	fired   int
}

func (e *EdgeSource) SetHandler(handler func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = handler
}

func (e *EdgeSource) Enable() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handler == nil {
		return errors.New("sim: edge source has no handler")
	}
	e.enabled = true
	return nil
}

func (e *EdgeSource) Acknowledge() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = 0
	e.acks++
}

// Fire latches an edge and, if the request is enabled, runs the handler.
func (e *EdgeSource) Fire() {
	e.mu.Lock()
	e.pending++
	e.fired++
	h, on := e.handler, e.enabled
	e.mu.Unlock()
	if on && h != nil {
		h()
	}
}

// Pending returns the number of latched, unacknowledged edges.
func (e *EdgeSource) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Acks returns the number of acknowledgements.
func (e *EdgeSource) Acks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acks
}

// Enabled reports whether the request is unmasked.
func (e *EdgeSource) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}
