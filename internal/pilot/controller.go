// Package pilot implements the control-pilot controller: the classification
// loop, output policy, threshold calibration, and command dispatch for both
// links. The controller is a single-threaded state machine over injected
// hardware interfaces; all handlers run to completion on the control loop.
package pilot

import (
	"log"
	"time"

	"github.com/wattline/cp-pilot/internal/cp"
	"github.com/wattline/cp-pilot/internal/periph"
	"github.com/wattline/cp-pilot/internal/proto"
	"github.com/wattline/cp-pilot/internal/pwm"
	"github.com/wattline/cp-pilot/internal/status"
)

// OpMode selects the output policy.
type OpMode int

const (
	ModeManual OpMode = iota
	ModeDCAuto
)

func (m OpMode) String() string {
	if m == ModeDCAuto {
		return "dc"
	}
	return "manual"
}

// Fixed duty communicating DC fast-charge readiness while a vehicle is
// connected. Idle and fault keep the line at its rest potential.
const (
	autoConnectedDuty = 5
	idleDuty          = 100
)

// Frequency bounds accepted by set_freq.
const (
	minFreqHz = 500
	maxFreqHz = 5000
)

// Restart-hint pulse bounds.
const (
	minHintMS     = 50
	maxHintMS     = 2000
	defaultHintMS = 400
)

// Config collects the controller's tunables.
type Config struct {
	Burst      cp.BurstConfig
	Thresholds cp.Thresholds
	Ratios     cp.CalRatios
	DefaultHz  int

	StatusPeriod time.Duration
	DiagPeriod   time.Duration
	StreamPeriod time.Duration

	CalSettle  time.Duration // idle-high settle before calibration bursts
	CalBursts  int
	CalMinV12  int // reject calibration below this reference plateau
	ScanBursts int

	Firmware string
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Burst:        cp.DefaultBurstConfig(),
		Thresholds:   cp.DefaultThresholds(),
		Ratios:       cp.DefaultCalRatios(),
		DefaultHz:    1000,
		StatusPeriod: 200 * time.Millisecond,
		DiagPeriod:   time.Second,
		StreamPeriod: time.Second,
		CalSettle:    30 * time.Millisecond,
		CalBursts:    4,
		CalMinV12:    2350,
		ScanBursts:   4,
		Firmware:     "cp-pilot/0.3.0",
	}
}

// Controller owns the CP front-end state: mode, thresholds, classifier,
// output policy and the peripheral surface.
type Controller struct {
	cfg     Config
	sampler *cp.Sampler
	clf     *cp.Classifier
	thr     cp.Thresholds
	drv     pwm.Driver
	periph  *periph.Controller
	tracker *status.Tracker
	sleep   func(time.Duration)

	mode       OpMode
	pwmEnabled bool
	pwmDuty    int
	pwmHz      int
	outDuty    int

	lastMax, lastMin, lastAvg int

	start      time.Time
	lastStatus time.Time
	lastDiag   time.Time
	lastStream time.Time
}

// New wires a controller and forces the boot output: automatic mode,
// idle-high line, default frequency.
func New(cfg Config, src cp.Source, drv pwm.Driver, per *periph.Controller, tracker *status.Tracker, sleep func(time.Duration), start time.Time) (*Controller, error) {
	c := &Controller{
		cfg:     cfg,
		sampler: cp.NewSampler(cfg.Burst, src, sleep),
		clf:     cp.NewClassifier(),
		thr:     cfg.Thresholds,
		drv:     drv,
		periph:  per,
		tracker: tracker,
		sleep:   sleep,
		mode:    ModeDCAuto,
		pwmHz:   cfg.DefaultHz,
		start:   start,
	}
	if err := drv.Configure(c.pwmHz); err != nil {
		return nil, err
	}
	c.sampler.SetPWMFrequency(c.pwmHz)
	// Idle-high before the first measurement so the line never floats.
	if err := drv.SetDutyPercent(idleDuty); err != nil {
		return nil, err
	}
	c.outDuty = idleDuty
	return c, nil
}

// State returns the committed CP state.
func (c *Controller) State() cp.State { return c.clf.Committed() }

// Thresholds returns the active threshold set.
func (c *Controller) Thresholds() cp.Thresholds { return c.thr }

// Mode returns the active output mode.
func (c *Controller) Mode() OpMode { return c.mode }

// OutputDuty returns the effective duty on the line.
func (c *Controller) OutputDuty() int { return c.outDuty }

func (c *Controller) uptimeMS(now time.Time) int64 {
	return now.Sub(c.start).Milliseconds()
}

// effectiveDuty is the pure output policy: automatic mode derives duty from
// the committed state; manual mode forces idle-high whenever disabled so the
// line is never left at an undefined duty.
func (c *Controller) effectiveDuty() int {
	if c.mode == ModeDCAuto {
		if c.clf.Committed().Connected() {
			return autoConnectedDuty
		}
		return idleDuty
	}
	if c.pwmEnabled {
		return c.pwmDuty
	}
	return idleDuty
}

// applyOutput pushes the policy duty to the generator when it changed (or
// unconditionally with force, after reconfiguration).
func (c *Controller) applyOutput(force bool) {
	duty := c.effectiveDuty()
	if !force && duty == c.outDuty {
		return
	}
	if err := c.drv.SetDutyPercent(duty); err != nil {
		log.Printf("pwm: apply duty %d%%: %v", duty, err)
		return
	}
	c.outDuty = duty
}

// Tick runs one control-loop iteration's periodic phases and returns frames
// to broadcast on every link: status snapshots, CP transition events,
// telemetry ticks, and failsafe notices.
func (c *Controller) Tick(now time.Time) [][]byte {
	var out [][]byte

	if now.Sub(c.lastStatus) >= c.cfg.StatusPeriod {
		c.lastStatus = now
		out = append(out, c.classifyCycle(now)...)
	}

	if now.Sub(c.lastDiag) >= c.cfg.DiagPeriod {
		c.lastDiag = now
		s := c.tracker.Snapshot()
		log.Printf("mv_max=%d mv_min=%d mv_avg=%d mv_robust=%d state=%s mode=%s pwm: en=%t duty%%=%d hz=%d out%%=%d",
			s.MVMax, s.MVMin, s.MVAvg, s.MVRobust, s.State, s.Mode,
			s.PWMEnabled, s.PWMDuty, s.PWMHz, s.OutDuty)
	}

	if now.Sub(c.lastStream) >= c.cfg.StreamPeriod {
		c.lastStream = now
		ts := c.uptimeMS(now)
		if c.periph.MeterStream() {
			m := c.periph.ReadMeter()
			out = append(out, proto.Marshal(proto.Event{
				Type: "evt", TS: ts, Method: "evt:meter.tick",
				Result: proto.MeterResult{V: m.V, I: m.I, P: m.P, E: m.E},
			}))
		}
		if c.periph.TempsStream() {
			tr := c.periph.ReadTemps()
			out = append(out, proto.Marshal(proto.Event{
				Type: "evt", TS: ts, Method: "evt:temps.tick",
				Result: proto.TempsResult{GunA: proto.Temp{C: tr.GunA}, GunB: proto.Temp{C: tr.GunB}},
			}))
		}
	}

	if c.periph.CheckWatchdog(now) {
		log.Printf("keepalive lost: contactor forced open")
		out = append(out, proto.Marshal(proto.Event{
			Type: "evt", TS: c.uptimeMS(now), Method: "evt:failsafe.keepalive",
			Result: proto.FailsafeResult{Forced: "contactor_off"},
		}))
	}

	return out
}

// classifyCycle samples, classifies, applies the output policy, and returns
// the transition event (if any) followed by the status broadcast.
func (c *Controller) classifyCycle(now time.Time) [][]byte {
	p := c.sampler.Burst()
	prev := c.clf.Committed()
	st := c.clf.Observe(c.thr, p)
	robust := c.clf.RobustMV()

	c.lastMax = p.Max
	c.lastMin = p.Min
	c.lastAvg = p.Avg

	c.applyOutput(false)

	var out [][]byte
	if st != prev {
		log.Printf("cp state %s -> %s at %d mV (robust=%d mV)", prev, st, p.Max, robust)
		c.tracker.CountTransition(st)
		out = append(out, proto.Marshal(proto.Event{
			Type: "evt", TS: c.uptimeMS(now), Method: "evt:cp.state",
			Result: proto.StateChangeResult{From: prev.String(), To: st.String(), MV: p.Max, RobustMV: robust},
		}))
	}

	c.tracker.UpdateCP(st, c.mode.String(), p.Max, p.Min, p.Avg, robust,
		c.pwmEnabled, c.pwmDuty, c.pwmHz, c.outDuty)

	return append(out, c.statusFrame())
}

// statusFrame snapshots the observable state into one status envelope.
func (c *Controller) statusFrame() []byte {
	return proto.Marshal(proto.Status{
		Type:       "status",
		CPMV:       c.lastMax,
		CPMVRobust: c.clf.RobustMV(),
		State:      c.clf.Committed().String(),
		Mode:       c.mode.String(),
		PWM: proto.PWMStatus{
			Enabled: c.pwmEnabled,
			Duty:    c.pwmDuty,
			Hz:      c.pwmHz,
			Out:     c.outDuty,
		},
		Thresh: proto.ThresholdStatus{
			T12: c.thr.T12, T9: c.thr.T9, T6: c.thr.T6, T3: c.thr.T3, T0: c.thr.T0,
			Hys: c.thr.Hys, HysAB: c.thr.HysAB,
		},
	})
}

// calibrate measures the idle (state-A) plateau and rescales the upper
// thresholds. The previously active mode/duty/enable are restored whether or
// not calibration succeeds.
func (c *Controller) calibrate() (v12 int, ok bool) {
	prevMode, prevDuty, prevEnabled := c.mode, c.pwmDuty, c.pwmEnabled
	defer func() {
		c.mode, c.pwmDuty, c.pwmEnabled = prevMode, prevDuty, prevEnabled
		c.applyOutput(true)
	}()

	// Force idle-high so the measurement sees the unloaded +12V plateau.
	c.mode = ModeManual
	c.pwmEnabled = false
	c.applyOutput(true)
	c.sleep(c.cfg.CalSettle)

	sum := 0
	for i := 0; i < c.cfg.CalBursts; i++ {
		sum += c.sampler.Burst().Robust
	}
	v12 = sum / c.cfg.CalBursts

	if v12 < c.cfg.CalMinV12 {
		// Most likely a vehicle on the line pulling the plateau down;
		// rescaling now would corrupt every derived threshold.
		log.Printf("calibration rejected: v12=%d mV below %d", v12, c.cfg.CalMinV12)
		return v12, false
	}

	c.thr.Rescale(v12, c.cfg.Ratios)
	log.Printf("calibrated: v12=%d mV t12=%d t9=%d t6=%d t3=%d",
		v12, c.thr.T12, c.thr.T9, c.thr.T6, c.thr.T3)
	return v12, true
}

// reset returns the controller (and the peripheral surface) to boot state.
func (c *Controller) reset(now time.Time) {
	c.thr = c.cfg.Thresholds
	c.mode = ModeDCAuto
	c.pwmEnabled = false
	c.pwmDuty = 0
	c.pwmHz = c.cfg.DefaultHz
	if err := c.drv.Configure(c.pwmHz); err != nil {
		log.Printf("pwm: reconfigure: %v", err)
	}
	c.sampler.SetPWMFrequency(c.pwmHz)
	c.clf.Reset()
	c.applyOutput(true)
	c.periph.Reset(now)
}

// Shutdown drives the safe rest state: idle-high line, open contactor.
func (c *Controller) Shutdown(now time.Time) {
	c.mode = ModeDCAuto
	c.clf.Reset()
	c.applyOutput(true)
	c.periph.Reset(now)
}
