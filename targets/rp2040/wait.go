//go:build rp2040

package main

import (
	"time"

	"tinygo.org/x/drivers/delay"

	"probeplat/core"
)

// settleTick is the time one settle iteration stands for, roughly one
// loop pass at 125MHz.
const settleTick = 10 * time.Nanosecond

// rpWaiter polls flags like core.Poller but settles on the cycle counter,
// so the reset pulse width does not depend on compiler output.
type rpWaiter struct {
	core.Poller
}

func (rpWaiter) Settle(iterations uint32) {
	delay.Sleep(time.Duration(iterations) * settleTick)
}
