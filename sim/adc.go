package sim

import "sync"

// ADC simulates a single-conversion converter whose result is set by the
// test. ConversionPolls controls how many ConversionDone polls a
// conversion takes.
type ADC struct {
	mu sync.Mutex

	ConversionPolls uint32
	// SelfClearing clears the done flag on Result, like most converters.
	// Leave it false to model parts that need an explicit clear.
	SelfClearing bool
	// Stuck makes conversions never finish.
	Stuck bool

	raw         uint16
	channel     uint8
	converting  bool
	polls       uint32
	done        bool
	conversions int
	clears      int
}

// NewADC returns a converter finishing after two polls that does not clear
// its done flag on read.
func NewADC() *ADC {
	return &ADC{ConversionPolls: 2}
}

// SetRaw sets the value the next conversions return (masked to 12 bits).
func (a *ADC) SetRaw(raw uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.raw = raw & 0x0fff
}

func (a *ADC) SelectChannel(ch uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.channel = ch
}

func (a *ADC) StartConversion() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.converting = true
	a.polls = 0
	a.conversions++
}

func (a *ADC) ConversionDone() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.converting && !a.Stuck {
		a.polls++
		if a.polls >= a.ConversionPolls {
			a.converting = false
			a.done = true
		}
	}
	return a.done
}

func (a *ADC) Result() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.SelfClearing {
		a.done = false
	}
	return a.raw
}

func (a *ADC) ClearDone() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.done = false
	a.clears++
}

// Channel returns the selected channel.
func (a *ADC) Channel() uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channel
}

// Done reports the end-of-conversion flag without polling.
func (a *ADC) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// Conversions returns the number of conversions started.
func (a *ADC) Conversions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conversions
}

// Clears returns the number of explicit done-flag clears.
func (a *ADC) Clears() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clears
}
