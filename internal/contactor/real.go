//go:build linux

package contactor

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealDriver drives the contactor through the Linux GPIO character device.
type RealDriver struct {
	chip *gpiocdev.Chip
	coil *gpiocdev.Line
	aux  *gpiocdev.Line
}

// NewRealDriver opens the coil output (driven low at start, contactor open)
// and the aux feedback input.
func NewRealDriver(pinCoil, pinAux int) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	coil, err := chip.RequestLine(pinCoil, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request coil pin %d: %w", pinCoil, err)
	}

	// Pull-down so a disconnected feedback harness reads "open", which the
	// commit check treats as a mismatch and fails closed-to-open.
	aux, err := chip.RequestLine(pinAux, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		coil.Close()
		chip.Close()
		return nil, fmt.Errorf("request aux pin %d: %w", pinAux, err)
	}

	return &RealDriver{chip: chip, coil: coil, aux: aux}, nil
}

// Set drives the coil.
func (d *RealDriver) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := d.coil.SetValue(v); err != nil {
		return fmt.Errorf("set coil: %w", err)
	}
	return nil
}

// Aux reads the auxiliary contact feedback.
func (d *RealDriver) Aux() (bool, error) {
	v, err := d.aux.Value()
	if err != nil {
		return false, fmt.Errorf("read aux pin: %w", err)
	}
	return v != 0, nil
}

// Close de-energizes the coil, reconfigures the lines to input with
// pull-down (matching boot defaults), and releases the chip.
func (d *RealDriver) Close() error {
	var errs []error

	if d.coil != nil {
		if err := d.coil.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release coil: %w", err))
		}
		if err := d.coil.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure coil pin: %w", err))
		}
		if err := d.coil.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close coil pin: %w", err))
		}
	}
	if d.aux != nil {
		if err := d.aux.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close aux pin: %w", err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
