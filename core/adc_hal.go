package core

// ADCChannelID identifies an analog input channel (the multiplexer selector).
type ADCChannelID uint8

// ADCValue is the raw ADC reading as seen by the rest of the firmware.
// Convention here: right-justified 12-bit value.
type ADCValue uint16

// ADCDriver is the abstract ADC interface that core code uses.
// Conversions are asynchronous: the platform raises IRQADCComplete when a
// conversion started by StartConversion has finished.
type ADCDriver interface {
	// StartConversion switches the multiplexer to ch and begins one
	// conversion. The result is fetched with ReadLastConversion.
	StartConversion(ch ADCChannelID) error

	// ReadLastConversion returns the result of the last finished conversion.
	ReadLastConversion() (ADCValue, error)
}

// Global singleton used by core code.
var adcDriver ADCDriver

// SetADCDriver is called by target-specific code to register its driver.
func SetADCDriver(d ADCDriver) {
	adcDriver = d
}

// MustADC returns the configured driver or panics if missing.
func MustADC() ADCDriver {
	if adcDriver == nil {
		panic("ADC driver not configured")
	}
	return adcDriver
}
