package pwm

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// SysfsDriver drives a channel of a Linux pwmchip
// (/sys/class/pwm/pwmchipN/pwmM) via its period/duty_cycle/enable files.
type SysfsDriver struct {
	dir      string
	periodNS int64
	lastPct  int
}

// NewSysfsDriver exports (if needed) and enables the given pwmchip channel.
// The output starts at 100% duty so the CP line rests at its idle-high
// potential before the first policy decision.
func NewSysfsDriver(chip, channel int) (*SysfsDriver, error) {
	chipDir := fmt.Sprintf("/sys/class/pwm/pwmchip%d", chip)
	dir := filepath.Join(chipDir, fmt.Sprintf("pwm%d", channel))

	if _, err := os.Stat(dir); err != nil {
		if werr := os.WriteFile(filepath.Join(chipDir, "export"), []byte(strconv.Itoa(channel)), 0o644); werr != nil {
			return nil, fmt.Errorf("export pwm channel %d: %w", channel, werr)
		}
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("pwm channel %d missing after export: %w", channel, err)
		}
	}

	d := &SysfsDriver{dir: dir, lastPct: 100}
	if err := d.Configure(1000); err != nil {
		return nil, err
	}
	if err := d.writeAttr("enable", 1); err != nil {
		return nil, fmt.Errorf("enable pwm: %w", err)
	}
	return d, nil
}

// Configure sets the period from hz and re-applies the last duty so the duty
// ratio survives frequency changes.
func (d *SysfsDriver) Configure(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("configure pwm: bad frequency %d", hz)
	}
	period := int64(1e9) / int64(hz)

	// duty_cycle must never exceed period, so shrink duty first when the
	// period is going down.
	if err := d.writeAttr("duty_cycle", 0); err != nil {
		return fmt.Errorf("clear duty: %w", err)
	}
	if err := d.writeAttr("period", period); err != nil {
		return fmt.Errorf("set period: %w", err)
	}
	d.periodNS = period
	return d.SetDutyPercent(d.lastPct)
}

// SetDutyPercent sets the duty cycle as a percentage of the period.
func (d *SysfsDriver) SetDutyPercent(pct int) error {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	duty := d.periodNS * int64(pct) / 100
	if err := d.writeAttr("duty_cycle", duty); err != nil {
		return fmt.Errorf("set duty: %w", err)
	}
	d.lastPct = pct
	return nil
}

// Close forces the line idle-high, then disables the channel.
func (d *SysfsDriver) Close() error {
	if err := d.SetDutyPercent(100); err != nil {
		return err
	}
	if err := d.writeAttr("enable", 0); err != nil {
		return fmt.Errorf("disable pwm: %w", err)
	}
	return nil
}

func (d *SysfsDriver) writeAttr(name string, v int64) error {
	return os.WriteFile(filepath.Join(d.dir, name), []byte(strconv.FormatInt(v, 10)), 0o644)
}
