package core

// TimerFreq is the rate of the system tick counter reported as CLOCK_FREQ.
const (
	TimerFreq = 1000000 // 1MHz microsecond counter
)

var (
	bootTime  uint32 // Tick count at TimerInit
	uptimeHi  uint32 // Wraps of the 32-bit counter since boot
	lastTicks uint32
)

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// GetUptime returns ticks since TimerInit as a 64-bit value. The high word
// advances each time the counter is seen to wrap, so it must be called at
// least once per wrap period (about 71 minutes at 1MHz).
func GetUptime() uint64 {
	now := GetTime()
	if now < lastTicks {
		uptimeHi++
	}
	lastTicks = now
	return (uint64(uptimeHi)<<32 | uint64(now)) - uint64(bootTime)
}

// TimerInit latches the boot time used by GetUptime.
func TimerInit() {
	bootTime = GetTime()
	lastTicks = bootTime
	uptimeHi = 0
}
