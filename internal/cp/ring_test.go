package cp

import "testing"

func TestRingRobust(t *testing.T) {
	var r Ring

	if got := r.Robust(); got != 0 {
		t.Errorf("empty ring: got %d, want 0", got)
	}

	r.Push(2100)
	if got := r.Robust(); got != 2100 {
		t.Errorf("single entry: got %d, want 2100", got)
	}

	r.Push(2300)
	if got := r.Robust(); got != 2200 {
		t.Errorf("two entries: got %d, want 2200", got)
	}
}

func TestRingEvictsOldest(t *testing.T) {
	var r Ring
	for v := 1; v <= 7; v++ {
		r.Push(v * 100)
	}
	// 100 has been evicted; top two of {200..700} average to 650.
	if got := r.Robust(); got != 650 {
		t.Errorf("got %d, want 650", got)
	}
}

func TestRingReset(t *testing.T) {
	var r Ring
	r.Push(500)
	r.Reset()
	if got := r.Robust(); got != 0 {
		t.Errorf("after reset: got %d, want 0", got)
	}
}
