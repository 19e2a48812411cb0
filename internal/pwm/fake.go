package pwm

// FakeDriver records configuration and duty commands for tests.
type FakeDriver struct {
	Hz      int
	DutyPct int

	// DutyHistory records every SetDutyPercent call in order.
	DutyHistory []int

	// ConfigureCalls counts Configure invocations.
	ConfigureCalls int

	// ConfigureError / DutyError, if set, are returned by the methods.
	ConfigureError error
	DutyError      error

	Closed bool
}

// NewFakeDriver returns a fake resting at idle-high.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{Hz: 1000, DutyPct: 100}
}

// Configure records the frequency.
func (f *FakeDriver) Configure(hz int) error {
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	f.Hz = hz
	f.ConfigureCalls++
	return nil
}

// SetDutyPercent records the duty.
func (f *FakeDriver) SetDutyPercent(pct int) error {
	if f.DutyError != nil {
		return f.DutyError
	}
	f.DutyPct = pct
	f.DutyHistory = append(f.DutyHistory, pct)
	return nil
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}
