// Package periph implements the peripheral safety surface: the contactor
// arm/commit state machine with aux-feedback verification and keepalive
// failsafe, plus meter and temperature telemetry.
package periph

import (
	"errors"
	"fmt"
	"time"

	"github.com/wattline/cp-pilot/internal/contactor"
)

// ContactorState is the observable contactor state machine position.
type ContactorState string

const (
	StateOpen    ContactorState = "open"
	StateArmed   ContactorState = "armed"
	StateClosing ContactorState = "closing"
	StateClosed  ContactorState = "closed"
	StateFault   ContactorState = "fault"
)

// Mode selects between simulated and hardware-backed peripherals.
type Mode string

const (
	ModeSim Mode = "sim"
	ModeHW  Mode = "hw"
)

// Safety preconditions violated by a contactor command.
var (
	ErrNotArmed    = errors.New("not_armed")
	ErrAuxMismatch = errors.New("aux_mismatch")
)

// Config holds the safety timing constants.
type Config struct {
	ArmWindow        time.Duration // how long an arm grant stays valid
	CommandSettle    time.Duration // coil drive to aux sample
	AuxSettle        time.Duration // aux sample to verification
	KeepaliveTimeout time.Duration // max silence before forced open
}

// DefaultConfig returns the reference timing: 1.5 s arm window, 40+60 ms
// commit settle, 6 s keepalive.
func DefaultConfig() Config {
	return Config{
		ArmWindow:        1500 * time.Millisecond,
		CommandSettle:    40 * time.Millisecond,
		AuxSettle:        60 * time.Millisecond,
		KeepaliveTimeout: 6 * time.Second,
	}
}

// Controller owns the contactor session and the telemetry models. All methods
// run to completion on the control loop; the only blocking waits are the
// bounded commit settle delays.
type Controller struct {
	cfg   Config
	drv   contactor.Driver
	sleep func(time.Duration)

	mode  Mode
	state ContactorState

	commanded  bool
	aux        bool
	armedUntil time.Time
	lastPing   time.Time

	meterStream bool
	tempsStream bool
	meter       SimMeter
}

// NewController builds a controller around drv. sleep is injectable for
// tests; pass time.Sleep in production. start seeds the keepalive clock so
// the watchdog does not fire before the first ping.
func NewController(cfg Config, drv contactor.Driver, sleep func(time.Duration), start time.Time) *Controller {
	return &Controller{
		cfg:      cfg,
		drv:      drv,
		sleep:    sleep,
		mode:     ModeSim,
		state:    StateOpen,
		lastPing: start,
	}
}

// Mode returns the current peripheral mode.
func (c *Controller) Mode() Mode { return c.mode }

// SetMode switches between simulated and hardware peripherals.
func (c *Controller) SetMode(m Mode) Mode {
	if m == ModeHW {
		c.mode = ModeHW
	} else {
		c.mode = ModeSim
	}
	return c.mode
}

// State returns the contactor state machine position.
func (c *Controller) State() ContactorState { return c.state }

// Commanded returns the commanded and observed contactor flags.
func (c *Controller) Commanded() (commanded, aux bool) { return c.commanded, c.aux }

// Ping records a host keepalive.
func (c *Controller) Ping(now time.Time) { c.lastPing = now }

// Arm opens a commit window and returns its expiry. Arming from fault clears
// the fault; an armed or closed contactor keeps its position, only the window
// is refreshed.
func (c *Controller) Arm(now time.Time) time.Time {
	c.armedUntil = now.Add(c.cfg.ArmWindow)
	if c.state == StateOpen || c.state == StateFault || c.state == StateArmed {
		c.state = StateArmed
	}
	return c.armedUntil
}

// Commit drives the contactor to the requested position. It is rejected with
// ErrNotArmed outside a live arm window. Closing verifies the aux feedback
// after the settle delays; a mismatch rolls both flags back to open and
// returns ErrAuxMismatch. Opening is never blocked by feedback.
func (c *Controller) Commit(on bool, now time.Time) error {
	if now.After(c.armedUntil) {
		return ErrNotArmed
	}

	if on {
		c.state = StateClosing
	}
	c.commanded = on
	if err := c.drv.Set(on); err != nil {
		c.forceOpen()
		return fmt.Errorf("drive coil: %w", err)
	}
	c.sleep(c.cfg.CommandSettle)

	aux, err := c.drv.Aux()
	if err != nil {
		c.forceOpen()
		return fmt.Errorf("read aux: %w", err)
	}
	c.aux = aux
	c.sleep(c.cfg.AuxSettle)

	if c.aux != c.commanded && on {
		c.forceOpen()
		c.state = StateFault
		return ErrAuxMismatch
	}

	if on {
		c.state = StateClosed
	} else {
		c.state = StateOpen
	}
	return nil
}

// forceOpen drives the coil off and clears both flags. Best effort: the coil
// command is the safe direction and its error is not recoverable here.
func (c *Controller) forceOpen() {
	c.commanded = false
	c.aux = false
	c.state = StateOpen
	_ = c.drv.Set(false)
}

// CommitSettle returns the total settle time of a commit sequence.
func (c *Controller) CommitSettle() time.Duration {
	return c.cfg.CommandSettle + c.cfg.AuxSettle
}

// CheckWatchdog forces the contactor open when the keepalive has been silent
// past the timeout while commanded closed. Returns true when it fired.
func (c *Controller) CheckWatchdog(now time.Time) bool {
	if !c.commanded || now.Sub(c.lastPing) <= c.cfg.KeepaliveTimeout {
		return false
	}
	c.forceOpen()
	return true
}

// CheckResult is the contactor.check telemetry.
type CheckResult struct {
	Commanded bool
	AuxOK     bool
	CoilMA    float64
	Reason    string
	State     ContactorState
}

// Check reports the contactor session without side effects.
func (c *Controller) Check() CheckResult {
	auxOK := c.aux == c.commanded
	reason := "ok"
	if !auxOK {
		reason = "mismatch"
	}
	coil := 0.0
	if c.commanded {
		coil = 120.0
	}
	return CheckResult{
		Commanded: c.commanded,
		AuxOK:     auxOK,
		CoilMA:    coil,
		Reason:    reason,
		State:     c.state,
	}
}

// Stream flags are read by the control loop's telemetry phase and toggled by
// the stream_start/stream_stop methods.
func (c *Controller) MeterStream() bool      { return c.meterStream }
func (c *Controller) SetMeterStream(on bool) { c.meterStream = on }
func (c *Controller) TempsStream() bool      { return c.tempsStream }
func (c *Controller) SetTempsStream(on bool) { c.tempsStream = on }

// ReadMeter returns the current meter reading, integrating energy.
func (c *Controller) ReadMeter() MeterReading {
	return c.meter.Read(c.aux)
}

// ReadTemps returns the gun temperature readings.
func (c *Controller) ReadTemps() TempReading {
	return simTemps(c.aux)
}

// Reset returns the peripheral surface to boot state: contactor open, streams
// off, sim mode. The keepalive clock restarts at now.
func (c *Controller) Reset(now time.Time) {
	c.forceOpen()
	c.armedUntil = time.Time{}
	c.meterStream = false
	c.tempsStream = false
	c.mode = ModeSim
	c.meter = SimMeter{}
	c.lastPing = now
}
