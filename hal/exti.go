package hal

// EdgeSource is an external-interrupt line watching one input pin on both
// edges.
type EdgeSource interface {
	// SetHandler binds the callback run from interrupt context.
	SetHandler(handler func())

	// Enable unmasks the request for both edges.
	Enable() error

	// Acknowledge clears the pending request. Every handler run must end
	// with one.
	Acknowledge()
}
