//go:build !tinygo

package core

// State stands in for the saved interrupt mask on hosted builds.
type State uintptr

// disableInterrupts does nothing on hosted builds. The simulator runs edge
// handlers synchronously on the caller's goroutine.
func disableInterrupts() State {
	return 0
}

func restoreInterrupts(state State) {}
