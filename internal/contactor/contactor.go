// Package contactor provides contactor coil drive and aux-feedback reading
// with hardware abstraction. The real implementation uses the Linux GPIO
// character device. The fake implementation allows testing without hardware.
package contactor

// Driver commands the contactor coil and reads the auxiliary contact.
type Driver interface {
	// Set drives the coil on or off.
	Set(on bool) error

	// Aux returns the auxiliary contact feedback. True means the main
	// contacts are closed.
	Aux() (bool, error)

	// Close de-energizes the coil and releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	PinCoil = 23 // contactor coil drive (via relay board)
	PinAux  = 24 // auxiliary contact feedback
)
