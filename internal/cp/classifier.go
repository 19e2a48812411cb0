package cp

// Debounce confirmation counts. A reading strongly inside the candidate band
// takes the fast path; readings near a boundary need more agreement.
const (
	confirmFast = 1
	confirmSlow = 3
)

// A single burst maximum this far below T0 while connected is treated as a
// missed plateau capture, not a disconnect.
const dropoutMargin = 150

// bandRow describes the hysteresis geometry for one committed state: the
// boundary to the next-higher band, the boundary below which the reading
// leaves the band downward, and the margin applied on the way down.
type bandRow struct {
	up         State // state one band higher (0 when none)
	upper      int   // boundary to the higher band (0 when none)
	lower      int   // boundary below the band (0 when none)
	downMargin int
}

func (t Thresholds) row(committed State) bandRow {
	switch committed {
	case StateA:
		// Leaving idle uses the smaller margin: fast vehicle detection
		// matters more than chatter suppression in this direction.
		return bandRow{lower: t.T12, downMargin: t.HysAB}
	case StateB:
		return bandRow{up: StateA, upper: t.T12, lower: t.T9, downMargin: t.Hys}
	case StateC:
		return bandRow{up: StateB, upper: t.T9, lower: t.T6, downMargin: t.Hys}
	case StateD:
		return bandRow{up: StateC, upper: t.T6, lower: t.T3, downMargin: t.Hys}
	case StateE:
		return bandRow{up: StateD, upper: t.T3, lower: t.T0, downMargin: t.Hys}
	default:
		return bandRow{up: StateE, upper: t.T0}
	}
}

// candidate applies hysteresis: moving up one band requires clearing the
// upper boundary by Hys, falling out of the band requires undershooting the
// lower boundary by the row's down margin. Readings inside the widened band
// hold the committed state. Out-of-range readings always propose F.
func (t Thresholds) candidate(mv int, committed State) State {
	if mv <= 0 || mv > maxPlausibleMV {
		return StateF
	}
	r := t.row(committed)
	if r.upper != 0 && mv >= r.upper+t.Hys {
		return r.up
	}
	if r.lower != 0 && mv < r.lower-r.downMargin {
		return t.Band(mv)
	}
	return committed
}

// strongInBand reports whether mv sits inside the band for st beyond the
// hysteresis margin on both sides.
func (t Thresholds) strongInBand(mv int, st State) bool {
	switch st {
	case StateA:
		return mv >= t.T12+t.Hys
	case StateB:
		return mv >= t.T9+t.Hys && mv < t.T12-t.Hys
	case StateC:
		return mv >= t.T6+t.Hys && mv < t.T9-t.Hys
	case StateD:
		return mv >= t.T3+t.Hys && mv < t.T6-t.Hys
	case StateE:
		return mv >= t.T0+t.Hys && mv < t.T3-t.Hys
	default:
		return mv < t.T0-t.Hys
	}
}

// Classifier owns the committed CP state and the debounce bookkeeping. It is
// fed one Plateau per classification cycle and never fails: every input maps
// to a defined state.
type Classifier struct {
	committed    State
	pending      State
	pendingCount int
	hist         Ring
}

// NewClassifier returns a classifier committed to idle.
func NewClassifier() *Classifier {
	return &Classifier{committed: StateA, pending: StateA}
}

// Committed returns the current debounced state.
func (c *Classifier) Committed() State { return c.committed }

// RobustMV returns the smoothed plateau voltage over recent bursts.
func (c *Classifier) RobustMV() int { return c.hist.Robust() }

// Observe feeds one burst's statistics into the classifier and returns the
// committed state after hysteresis, transient suppression and debounce.
// Classification consumes the per-burst robust max directly; the history ring
// only smooths the telemetry value.
func (c *Classifier) Observe(t Thresholds, p Plateau) State {
	c.hist.Push(p.Robust)
	robust := p.Robust

	// A lone very-low maximum while connected is a missed plateau capture:
	// hold the state and let the pending count decay.
	if c.committed.Connected() && p.Max < t.T0-dropoutMargin {
		if c.pendingCount > 0 {
			c.pendingCount--
		}
		return c.committed
	}

	cand := t.candidate(robust, c.committed)
	if cand == c.committed {
		c.pending = cand
		c.pendingCount = 0
		return c.committed
	}

	if cand == c.pending {
		c.pendingCount++
	} else {
		c.pending = cand
		c.pendingCount = 1
	}

	confirm := confirmSlow
	if t.strongInBand(robust, cand) {
		confirm = confirmFast
	}
	if c.pendingCount >= confirm {
		c.committed = cand
		c.pendingCount = 0
	}
	return c.committed
}

// Reset returns the classifier to its boot state (idle, empty history).
func (c *Classifier) Reset() {
	c.committed = StateA
	c.pending = StateA
	c.pendingCount = 0
	c.hist.Reset()
}
