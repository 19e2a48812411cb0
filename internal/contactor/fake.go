package contactor

// FakeDriver is a test double with scripted aux behavior.
type FakeDriver struct {
	// On is the last commanded coil state.
	On bool

	// AuxFollows makes the aux contact mirror the coil, simulating a
	// healthy contactor.
	AuxFollows bool

	// AuxStuck, if non-nil, forces the aux reading regardless of the coil,
	// simulating welded or broken feedback.
	AuxStuck *bool

	// SetError / AuxError, if set, are returned by the methods.
	SetError error
	AuxError error

	// SetCalls records every commanded coil state in order.
	SetCalls []bool

	Closed bool
}

// NewFakeDriver returns a healthy fake whose aux mirrors the coil.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{AuxFollows: true}
}

// Set records the commanded coil state.
func (f *FakeDriver) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.On = on
	f.SetCalls = append(f.SetCalls, on)
	return nil
}

// Aux returns the scripted feedback.
func (f *FakeDriver) Aux() (bool, error) {
	if f.AuxError != nil {
		return false, f.AuxError
	}
	if f.AuxStuck != nil {
		return *f.AuxStuck, nil
	}
	if f.AuxFollows {
		return f.On, nil
	}
	return false, nil
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}
