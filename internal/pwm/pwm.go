// Package pwm drives the CP PWM output with hardware abstraction.
// The real implementation uses the Linux pwmchip sysfs interface.
// The fake implementation allows testing without hardware.
package pwm

// Driver generates the CP square wave.
type Driver interface {
	// Configure sets the PWM frequency in Hz and re-applies the last duty.
	Configure(hz int) error

	// SetDutyPercent sets the output duty cycle, 0..100.
	SetDutyPercent(pct int) error

	// Close releases PWM resources, leaving the line idle-high.
	Close() error
}

// Default pwmchip wiring for the reference carrier board.
const (
	DefaultChip    = 0
	DefaultChannel = 0
)
