//go:build !linux

package contactor

import "errors"

// RealDriver is not available on non-Linux platforms.
type RealDriver struct{}

// NewRealDriver returns an error on non-Linux platforms.
func NewRealDriver(pinCoil, pinAux int) (*RealDriver, error) {
	return nil, errors.New("contactor: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (d *RealDriver) Set(on bool) error {
	return errors.New("contactor: not supported")
}

// Aux is not implemented on non-Linux platforms.
func (d *RealDriver) Aux() (bool, error) {
	return false, errors.New("contactor: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *RealDriver) Close() error { return nil }
