package hal

// PWMTimer is the timer channel that drives the target power switch during
// soft start. It runs continuously with a period of SoftStartSteps counts.
type PWMTimer interface {
	// SetCompare writes the channel compare value (0 = never active).
	SetCompare(value uint32)

	// ClearUpdate clears the update (overflow) flag.
	ClearUpdate()

	// UpdatePending reports whether a full PWM period elapsed since the
	// flag was last cleared.
	UpdatePending() bool
}
