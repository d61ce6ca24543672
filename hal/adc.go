package hal

// ADCMax is the largest raw value of a 12-bit conversion.
const ADCMax = 4095

// ADC is a single-conversion analog converter.
type ADC interface {
	SelectChannel(ch uint8)
	StartConversion()

	// ConversionDone reports the end-of-conversion flag.
	ConversionDone() bool

	// Result reads the right-aligned conversion result.
	Result() uint16

	// ClearDone clears the end-of-conversion flag. Only needed on parts
	// that do not clear it on result read.
	ClearDone()
}
