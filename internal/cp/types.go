// Package cp contains the pure control-pilot signal logic: burst plateau
// statistics, threshold banding, hysteresis and debounce.
// This package has NO hardware dependencies (no ADC, PWM, or serial).
// Delays are always injectable via function parameters.
package cp

// State is a logical control-pilot state, ordered by descending plateau
// voltage. A is idle/unplugged, B/C/D mean a vehicle is connected with
// ascending readiness, E/F are fault or indeterminate.
type State byte

const (
	StateA State = 'A'
	StateB State = 'B'
	StateC State = 'C'
	StateD State = 'D'
	StateE State = 'E'
	StateF State = 'F'
)

func (s State) String() string { return string(rune(s)) }

// Connected reports whether a vehicle is on the line in this state.
func (s State) Connected() bool { return s == StateB || s == StateC || s == StateD }

// Plateau holds the reduced statistics of one sample burst, in millivolts.
// Max is the true peak; Robust is the trimmed top-K mean, which is what
// classification consumes (a naive peak is sensitive to switching overshoot).
type Plateau struct {
	Min    int
	Max    int
	Robust int
	Avg    int
}

// Thresholds are the five band boundaries in millivolts, highest first, plus
// the hysteresis margins. Boundaries must stay monotonically decreasing from
// T12 down to T0 for banding to be well-defined; setters do not enforce this.
type Thresholds struct {
	T12 int // A/B boundary
	T9  int // B/C boundary
	T6  int // C/D boundary
	T3  int // D/E boundary
	T0  int // E/F boundary

	Hys   int // general hysteresis margin
	HysAB int // smaller margin leaving idle, so connection is detected quickly
}

// NominalV12 is the expected state-A plateau for the reference hardware
// divider. The default calibration ratios are the stock thresholds over this.
const NominalV12 = 2650

// DefaultThresholds returns the stock threshold set for the reference divider.
func DefaultThresholds() Thresholds {
	return Thresholds{T12: 2300, T9: 2000, T6: 1700, T3: 1450, T0: 1250, Hys: 100, HysAB: 50}
}

// Readings above this are treated as implausible and band as fault.
const maxPlausibleMV = 5000

// Band maps a plateau voltage to a state by comparing the boundaries
// top-down. Out-of-range readings band as F; Band never fails.
func (t Thresholds) Band(mv int) State {
	if mv <= 0 || mv > maxPlausibleMV {
		return StateF
	}
	switch {
	case mv >= t.T12:
		return StateA
	case mv >= t.T9:
		return StateB
	case mv >= t.T6:
		return StateC
	case mv >= t.T3:
		return StateD
	case mv >= t.T0:
		return StateE
	default:
		return StateF
	}
}

// CalRatios are the proportional constants used to rescale the four upper
// boundaries from a measured state-A plateau. They encode the hardware
// voltage divider: treat them as configuration, not a universal law.
type CalRatios struct {
	R12 float64
	R9  float64
	R6  float64
	R3  float64
}

// DefaultCalRatios derives the ratios from the stock thresholds and the
// nominal state-A plateau.
func DefaultCalRatios() CalRatios {
	d := DefaultThresholds()
	return CalRatios{
		R12: float64(d.T12) / NominalV12,
		R9:  float64(d.T9) / NominalV12,
		R6:  float64(d.T6) / NominalV12,
		R3:  float64(d.T3) / NominalV12,
	}
}

// Rescale recomputes the upper four boundaries from a measured state-A
// plateau. T0 anchors near zero and is left unchanged.
func (t *Thresholds) Rescale(v12 int, r CalRatios) {
	t.T12 = int(float64(v12)*r.R12 + 0.5)
	t.T9 = int(float64(v12)*r.R9 + 0.5)
	t.T6 = int(float64(v12)*r.R6 + 0.5)
	t.T3 = int(float64(v12)*r.R3 + 0.5)
}
