package core

import (
	"sync/atomic"

	"probeplat/errcode"
)

// Waiter blocks on hardware status flags. Await polls cond until it reports
// true, giving up after limit polls; a zero limit polls forever. Settle
// burns a fixed delay expressed in busy-loop iterations.
type Waiter interface {
	Await(limit uint32, cond func() bool) error
	Settle(iterations uint32)
}

// Poller is the busy-polling Waiter used on bare metal and in tests.
type Poller struct{}

func (Poller) Await(limit uint32, cond func() bool) error {
	if limit == 0 {
		for !cond() {
		}
		return nil
	}
	for i := uint32(0); i < limit; i++ {
		if cond() {
			return nil
		}
	}
	return errcode.Timeout
}

// spinSink keeps Settle's loop from being optimised away.
var spinSink uint32

func (Poller) Settle(iterations uint32) {
	for i := uint32(0); i < iterations; i++ {
		atomic.AddUint32(&spinSink, 1)
	}
}
