package sim

import "sync"

// Timer simulates a free-running PWM timer. Each UpdatePending poll
// advances the simulated clock by one tick; the update flag sets once
// TicksPerPeriod ticks have passed since the last clear.
type Timer struct {
	mu sync.Mutex

	// TicksPerPeriod is the number of polls per PWM period (minimum 1).
	TicksPerPeriod uint32
	// Stalled stops the clock, so the update flag never sets.
	Stalled bool
	// OnCompare, when set, runs after every compare write.
	OnCompare func(value uint32)

	compare  uint32
	ticks    uint32
	sinceClr uint32
	flag     bool
	writes   []uint32
	clears   int
	periods  int
}

// NewTimer returns a timer with a three-poll period.
func NewTimer() *Timer {
	return &Timer{TicksPerPeriod: 3}
}

func (t *Timer) SetCompare(value uint32) {
	t.mu.Lock()
	t.compare = value
	t.writes = append(t.writes, value)
	hook := t.OnCompare
	t.mu.Unlock()
	if hook != nil {
		hook(value)
	}
}

func (t *Timer) ClearUpdate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flag = false
	t.sinceClr = 0
	t.clears++
}

func (t *Timer) UpdatePending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Stalled {
		return t.flag
	}
	t.ticks++
	t.sinceClr++
	period := t.TicksPerPeriod
	if period == 0 {
		period = 1
	}
	if !t.flag && t.sinceClr >= period {
		t.flag = true
		t.periods++
	}
	return t.flag
}

// Compare returns the current compare value.
func (t *Timer) Compare() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.compare
}

// CompareWrites returns every compare value written, in order.
func (t *Timer) CompareWrites() []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]uint32(nil), t.writes...)
}

// Ticks returns the simulated clock.
func (t *Timer) Ticks() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks
}

// Periods returns how many update flags were raised.
func (t *Timer) Periods() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.periods
}

// Clears returns how many times the update flag was cleared.
func (t *Timer) Clears() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clears
}

// Reset forgets the compare log.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = nil
	t.clears = 0
	t.periods = 0
}
