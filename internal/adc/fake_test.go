package adc

import "testing"

func TestFakeReaderRepeatsLastSample(t *testing.T) {
	r := NewFakeReader([]int{100, 200})

	for _, want := range []int{100, 200, 200, 200} {
		got, err := r.ReadMillivolts()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got != want {
			t.Errorf("got %d, want %d", got, want)
		}
	}

	r.Reset()
	if got, _ := r.ReadMillivolts(); got != 100 {
		t.Errorf("after reset: got %d, want 100", got)
	}
}

func TestFakeReaderEmpty(t *testing.T) {
	r := &FakeReader{}
	if _, err := r.ReadMillivolts(); err == nil {
		t.Error("expected error for empty sample script")
	}
}

func TestWaveReaderShape(t *testing.T) {
	w := &WaveReader{High: 2650, Low: 80, DutyPct: 50, Period: 10}

	var highs, lows int
	for i := 0; i < 100; i++ {
		v, err := w.ReadMillivolts()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		switch v {
		case 2650:
			highs++
		case 80:
			lows++
		default:
			t.Fatalf("sample %d: unexpected value %d", i, v)
		}
	}
	if highs != 50 || lows != 50 {
		t.Errorf("50%% duty over 100 samples: %d high / %d low", highs, lows)
	}
}

func TestWaveReaderSpikes(t *testing.T) {
	w := &WaveReader{High: 2650, Low: 80, DutyPct: 100, Period: 10, SpikeEvery: 25, SpikeMV: 400}

	spikes := 0
	for i := 0; i < 100; i++ {
		v, _ := w.ReadMillivolts()
		if v == 3050 {
			spikes++
		}
	}
	if spikes != 4 {
		t.Errorf("got %d spikes over 100 samples, want 4", spikes)
	}
}
