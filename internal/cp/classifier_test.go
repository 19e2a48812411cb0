package cp

import "testing"

// flat builds a plateau whose peak and robust max agree, the usual shape for
// a clean capture.
func flat(mv int) Plateau {
	return Plateau{Min: 80, Max: mv, Robust: mv, Avg: mv / 2}
}

func TestBand(t *testing.T) {
	thr := DefaultThresholds()
	tests := []struct {
		mv   int
		want State
	}{
		{3000, StateA},
		{2300, StateA},
		{2299, StateB},
		{2000, StateB},
		{1999, StateC},
		{1700, StateC},
		{1699, StateD},
		{1450, StateD},
		{1449, StateE},
		{1250, StateE},
		{1249, StateF},
		{1149, StateF}, // below T0 - Hys
		{1, StateF},
		{0, StateF},
		{-20, StateF},
		{5001, StateF},
	}
	for _, tc := range tests {
		if got := thr.Band(tc.mv); got != tc.want {
			t.Errorf("Band(%d) = %s, want %s", tc.mv, got, tc.want)
		}
	}
}

func TestFastPathCommitsOnFirstStrongReading(t *testing.T) {
	c := NewClassifier()
	thr := DefaultThresholds()

	// 2150 is strongly inside B: >= T9+Hys and < T12-Hys.
	if got := c.Observe(thr, flat(2150)); got != StateB {
		t.Errorf("expected B after one strong reading, got %s", got)
	}
}

func TestSlowPathNeedsThreeConfirmations(t *testing.T) {
	c := NewClassifier()
	thr := DefaultThresholds()

	// 2220 leaves the A band (below T12-HysAB) but is within Hys of T12,
	// so it takes the slow path.
	for i := 1; i <= 2; i++ {
		if got := c.Observe(thr, flat(2220)); got != StateA {
			t.Fatalf("reading %d: expected A while confirming, got %s", i, got)
		}
	}
	if got := c.Observe(thr, flat(2220)); got != StateB {
		t.Errorf("expected B on third confirmation, got %s", got)
	}
}

func TestDisagreeingCandidateResetsCounter(t *testing.T) {
	c := NewClassifier()
	thr := DefaultThresholds()

	c.Observe(thr, flat(2220)) // weak B, count 1
	c.Observe(thr, flat(2220)) // weak B, count 2

	// 1620 is a weak D reading (within Hys of T6): candidate changes, the
	// counter restarts at 1 for D.
	if got := c.Observe(thr, flat(1620)); got != StateA {
		t.Fatalf("expected A after candidate change, got %s", got)
	}
	if got := c.Observe(thr, flat(1620)); got != StateA {
		t.Fatalf("expected A on second D confirmation, got %s", got)
	}
	if got := c.Observe(thr, flat(1620)); got != StateD {
		t.Errorf("expected D on third confirmation, got %s", got)
	}
}

func TestAgreementWithCommittedClearsPending(t *testing.T) {
	c := NewClassifier()
	thr := DefaultThresholds()

	c.Observe(thr, flat(2220)) // weak B, count 1
	c.Observe(thr, flat(2220)) // weak B, count 2
	c.Observe(thr, flat(2650)) // back in A: pending cleared

	c.Observe(thr, flat(2220))
	c.Observe(thr, flat(2220))
	if got := c.Committed(); got != StateA {
		t.Fatalf("pending was not cleared: committed %s", got)
	}
	if got := c.Observe(thr, flat(2220)); got != StateB {
		t.Errorf("expected B after three fresh confirmations, got %s", got)
	}
}

func TestHysteresisHoldsAtBoundary(t *testing.T) {
	c := NewClassifier()
	thr := DefaultThresholds()
	c.Observe(thr, flat(2150)) // commit B

	// Noise of bounded amplitude around the A/B boundary must not produce
	// any transition: leaving B upward needs T12+Hys.
	for _, mv := range []int{2300, 2350, 2250, 2320, 2280, 2350} {
		if got := c.Observe(thr, flat(mv)); got != StateB {
			t.Fatalf("mv=%d: expected B held at boundary, got %s", mv, got)
		}
	}

	// A single clean approach beyond the margin transitions exactly once.
	if got := c.Observe(thr, flat(2450)); got != StateA {
		t.Errorf("expected A beyond hysteresis margin, got %s", got)
	}
}

func TestDropoutHeldWhileConnected(t *testing.T) {
	c := NewClassifier()
	thr := DefaultThresholds()
	c.Observe(thr, flat(2150)) // commit B

	// An abnormally low peak is a missed plateau capture, not a disconnect.
	if got := c.Observe(thr, Plateau{Min: 0, Max: 900, Robust: 850, Avg: 400}); got != StateB {
		t.Errorf("expected B held through dropout, got %s", got)
	}
	if got := c.Observe(thr, flat(2150)); got != StateB {
		t.Errorf("expected B after recovery, got %s", got)
	}
}

func TestSpuriousIdleSuppressedWhileConnected(t *testing.T) {
	c := NewClassifier()
	thr := DefaultThresholds()
	c.Observe(thr, flat(2150)) // commit B

	// Readings at idle band strength but inside the widened margin must not
	// disconnect the session.
	for i := 0; i < 5; i++ {
		if got := c.Observe(thr, flat(2350)); got != StateB {
			t.Fatalf("expected B held on line ripple, got %s", got)
		}
	}
}

func TestZeroBurstCommitsFault(t *testing.T) {
	c := NewClassifier()
	thr := DefaultThresholds()

	if got := c.Observe(thr, Plateau{}); got != StateF {
		t.Errorf("expected F for zero burst, got %s", got)
	}
}

func TestConnectDisconnectCycle(t *testing.T) {
	c := NewClassifier()
	thr := DefaultThresholds()

	if got := c.Observe(thr, flat(2650)); got != StateA {
		t.Fatalf("expected idle at boot, got %s", got)
	}
	if got := c.Observe(thr, flat(2150)); got != StateB {
		t.Fatalf("expected B on strong plug-in, got %s", got)
	}
	if got := c.Observe(thr, flat(2650)); got != StateA {
		t.Fatalf("expected A on strong unplug, got %s", got)
	}
}

func TestRescale(t *testing.T) {
	thr := DefaultThresholds()
	thr.Rescale(2400, DefaultCalRatios())

	want := Thresholds{T12: 2083, T9: 1811, T6: 1540, T3: 1313, T0: 1250, Hys: 100, HysAB: 50}
	if thr != want {
		t.Errorf("Rescale(2400) = %+v, want %+v", thr, want)
	}
}

func TestRescaleAtNominalIsIdentity(t *testing.T) {
	thr := DefaultThresholds()
	thr.Rescale(NominalV12, DefaultCalRatios())
	if thr != DefaultThresholds() {
		t.Errorf("Rescale at nominal changed thresholds: %+v", thr)
	}
}

func TestClassifierReset(t *testing.T) {
	c := NewClassifier()
	thr := DefaultThresholds()
	c.Observe(thr, flat(2150))
	c.Reset()
	if c.Committed() != StateA {
		t.Errorf("expected A after reset, got %s", c.Committed())
	}
	if c.RobustMV() != 0 {
		t.Errorf("expected empty history after reset, got %d", c.RobustMV())
	}
}
