// Package adc provides raw CP line voltage readings with hardware
// abstraction. The real implementation uses the Linux IIO sysfs interface.
// The fake implementations allow testing without hardware.
package adc

// Reader reads single ADC samples from the CP line.
type Reader interface {
	// ReadMillivolts returns one raw reading in millivolts.
	ReadMillivolts() (int, error)

	// Close releases ADC resources.
	Close() error
}

// Default IIO wiring for the reference carrier board.
const (
	DefaultDevice  = "iio:device0"
	DefaultChannel = 0
)
