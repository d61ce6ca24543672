//go:build !tinygo

package core

import "sync/atomic"

var systemTicks uint32

// getSystemTicks returns the tick count last stored by SetTime. Hosted
// builds have no free-running counter; the simulator advances it.
func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicks)
}

func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}
