package periph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattline/cp-pilot/internal/contactor"
)

var t0 = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestController(drv *contactor.FakeDriver) (*Controller, *[]time.Duration) {
	var sleeps []time.Duration
	c := NewController(DefaultConfig(), drv, func(d time.Duration) { sleeps = append(sleeps, d) }, t0)
	return c, &sleeps
}

func TestCommitWithoutArmRejected(t *testing.T) {
	drv := contactor.NewFakeDriver()
	c, _ := newTestController(drv)

	err := c.Commit(true, t0)
	assert.ErrorIs(t, err, ErrNotArmed)
	assert.Empty(t, drv.SetCalls, "coil must not be driven without an arm grant")
	assert.Equal(t, StateOpen, c.State())
}

func TestArmThenCommitCloses(t *testing.T) {
	drv := contactor.NewFakeDriver()
	c, sleeps := newTestController(drv)

	until := c.Arm(t0)
	assert.Equal(t, t0.Add(1500*time.Millisecond), until)
	assert.Equal(t, StateArmed, c.State())

	require.NoError(t, c.Commit(true, t0.Add(time.Second)))
	assert.Equal(t, StateClosed, c.State())
	commanded, aux := c.Commanded()
	assert.True(t, commanded)
	assert.True(t, aux)
	assert.Equal(t, []bool{true}, drv.SetCalls)
	assert.Equal(t, []time.Duration{40 * time.Millisecond, 60 * time.Millisecond}, *sleeps)
}

func TestArmWindowExpires(t *testing.T) {
	drv := contactor.NewFakeDriver()
	c, _ := newTestController(drv)

	c.Arm(t0)
	err := c.Commit(true, t0.Add(1501*time.Millisecond))
	assert.ErrorIs(t, err, ErrNotArmed)
	assert.Equal(t, StateArmed, c.State())
	assert.Empty(t, drv.SetCalls)
}

func TestRearmRefreshesWindow(t *testing.T) {
	drv := contactor.NewFakeDriver()
	c, _ := newTestController(drv)

	c.Arm(t0)
	c.Arm(t0.Add(time.Second))
	require.NoError(t, c.Commit(true, t0.Add(2*time.Second)))
	assert.Equal(t, StateClosed, c.State())
}

func TestAuxMismatchRollsBack(t *testing.T) {
	drv := contactor.NewFakeDriver()
	stuck := false
	drv.AuxStuck = &stuck

	c, _ := newTestController(drv)
	c.Arm(t0)

	err := c.Commit(true, t0)
	assert.ErrorIs(t, err, ErrAuxMismatch)
	assert.Equal(t, StateFault, c.State())

	commanded, aux := c.Commanded()
	assert.False(t, commanded)
	assert.False(t, aux)
	// Close attempt followed by the rollback open.
	assert.Equal(t, []bool{true, false}, drv.SetCalls)
	assert.False(t, drv.On)
}

func TestArmClearsFault(t *testing.T) {
	drv := contactor.NewFakeDriver()
	stuck := false
	drv.AuxStuck = &stuck

	c, _ := newTestController(drv)
	c.Arm(t0)
	require.ErrorIs(t, c.Commit(true, t0), ErrAuxMismatch)

	c.Arm(t0.Add(time.Second))
	assert.Equal(t, StateArmed, c.State())
}

func TestOpenNotBlockedByFeedback(t *testing.T) {
	drv := contactor.NewFakeDriver()
	stuck := true
	drv.AuxStuck = &stuck // welded aux

	c, _ := newTestController(drv)
	c.Arm(t0)
	require.NoError(t, c.Commit(false, t0))
	assert.Equal(t, StateOpen, c.State())
}

func TestCoilDriveErrorForcesOpen(t *testing.T) {
	drv := contactor.NewFakeDriver()
	drv.SetError = assert.AnError

	c, _ := newTestController(drv)
	c.Arm(t0)
	err := c.Commit(true, t0)
	assert.Error(t, err)
	assert.Equal(t, StateOpen, c.State())
	commanded, _ := c.Commanded()
	assert.False(t, commanded)
}

func TestWatchdog(t *testing.T) {
	drv := contactor.NewFakeDriver()
	c, _ := newTestController(drv)
	c.Arm(t0)
	require.NoError(t, c.Commit(true, t0))

	// Silence inside the timeout: no trip.
	assert.False(t, c.CheckWatchdog(t0.Add(5*time.Second)))
	assert.Equal(t, StateClosed, c.State())

	// A ping restarts the clock.
	c.Ping(t0.Add(5 * time.Second))
	assert.False(t, c.CheckWatchdog(t0.Add(10*time.Second)))

	// Past the timeout the contactor is forced open.
	assert.True(t, c.CheckWatchdog(t0.Add(11*time.Second+time.Millisecond)))
	assert.Equal(t, StateOpen, c.State())
	assert.False(t, drv.On)

	// Already open: the watchdog stays quiet.
	assert.False(t, c.CheckWatchdog(t0.Add(time.Minute)))
}

func TestCheckReportsSession(t *testing.T) {
	drv := contactor.NewFakeDriver()
	c, _ := newTestController(drv)

	r := c.Check()
	assert.Equal(t, CheckResult{AuxOK: true, CoilMA: 0, Reason: "ok", State: StateOpen}, r)

	c.Arm(t0)
	require.NoError(t, c.Commit(true, t0))
	r = c.Check()
	assert.True(t, r.Commanded)
	assert.True(t, r.AuxOK)
	assert.Equal(t, 120.0, r.CoilMA)
	assert.Equal(t, "ok", r.Reason)
	assert.Equal(t, StateClosed, r.State)
}

func TestMeterAccumulatesEnergy(t *testing.T) {
	drv := contactor.NewFakeDriver()
	c, _ := newTestController(drv)

	idle := c.ReadMeter()
	assert.Equal(t, 415.0, idle.V)
	assert.Equal(t, 0.0, idle.I)
	assert.Equal(t, 0.0, idle.P)

	c.Arm(t0)
	require.NoError(t, c.Commit(true, t0))

	first := c.ReadMeter()
	assert.Equal(t, 50.0, first.I)
	assert.InDelta(t, 20.75, first.P, 1e-9)
	second := c.ReadMeter()
	assert.Greater(t, second.E, first.E)
}

func TestTempsFollowLoad(t *testing.T) {
	drv := contactor.NewFakeDriver()
	c, _ := newTestController(drv)

	idle := c.ReadTemps()
	c.Arm(t0)
	require.NoError(t, c.Commit(true, t0))
	loaded := c.ReadTemps()

	assert.Greater(t, loaded.GunA, idle.GunA)
	assert.Greater(t, loaded.GunB, idle.GunB)
}

func TestModeSwitch(t *testing.T) {
	drv := contactor.NewFakeDriver()
	c, _ := newTestController(drv)

	assert.Equal(t, ModeSim, c.Mode())
	assert.Equal(t, ModeHW, c.SetMode(ModeHW))
	// Anything unrecognized falls back to sim.
	assert.Equal(t, ModeSim, c.SetMode(Mode("bogus")))
}

func TestReset(t *testing.T) {
	drv := contactor.NewFakeDriver()
	c, _ := newTestController(drv)

	c.Arm(t0)
	require.NoError(t, c.Commit(true, t0))
	c.SetMeterStream(true)
	c.SetTempsStream(true)
	c.SetMode(ModeHW)
	c.ReadMeter()

	c.Reset(t0.Add(time.Minute))
	assert.Equal(t, StateOpen, c.State())
	assert.False(t, c.MeterStream())
	assert.False(t, c.TempsStream())
	assert.Equal(t, ModeSim, c.Mode())
	assert.False(t, drv.On)
	assert.Equal(t, 0.0, c.ReadMeter().E, "energy counter restarts")
	// Reset does not grant a commit window.
	assert.ErrorIs(t, c.Commit(true, t0.Add(time.Minute)), ErrNotArmed)
}
