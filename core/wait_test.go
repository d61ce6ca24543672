package core

import (
	"errors"
	"testing"

	"probeplat/errcode"
)

// recordingWaiter polls like Poller but logs every Settle request.
type recordingWaiter struct {
	Poller
	settles []uint32
}

func (w *recordingWaiter) Settle(iterations uint32) {
	w.settles = append(w.settles, iterations)
}

func TestPollerBounded(t *testing.T) {
	polls := 0
	err := Poller{}.Await(25, func() bool {
		polls++
		return false
	})
	if !errors.Is(err, errcode.Timeout) {
		t.Fatalf("Expected timeout, got %v", err)
	}
	if polls != 25 {
		t.Errorf("Expected 25 polls, got %d", polls)
	}
}

func TestPollerUnbounded(t *testing.T) {
	polls := 0
	err := Poller{}.Await(0, func() bool {
		polls++
		return polls == 5000
	})
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if polls != 5000 {
		t.Errorf("Expected 5000 polls, got %d", polls)
	}
}

func TestPollerReturnsOnFirstTrue(t *testing.T) {
	polls := 0
	if err := (Poller{}).Await(10, func() bool { polls++; return true }); err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if polls != 1 {
		t.Errorf("Expected 1 poll, got %d", polls)
	}
}
