package adc

import "errors"

// FakeReader is a test double that returns scripted millivolt values.
type FakeReader struct {
	// Samples contains scripted readings. Each call to ReadMillivolts
	// consumes the next sample; the last sample repeats once exhausted.
	Samples []int

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by ReadMillivolts
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []int) *FakeReader {
	return &FakeReader{Samples: samples}
}

// ReadMillivolts returns the next scripted sample.
func (f *FakeReader) ReadMillivolts() (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}
	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}

// WaveReader synthesizes a PWM-shaped square wave so sampler tests see
// realistic plateau/edge structure instead of a flat level.
type WaveReader struct {
	High    int // plateau level, mV
	Low     int // low rail, mV
	DutyPct int // fraction of each period spent at High
	Period  int // samples per PWM period

	// Noise alternates +/- on successive samples when non-zero.
	Noise int

	// SpikeEvery injects a High+SpikeMV overshoot every Nth sample when > 0.
	SpikeEvery int
	SpikeMV    int

	n int
}

// ReadMillivolts returns the next point of the synthetic waveform.
func (w *WaveReader) ReadMillivolts() (int, error) {
	period := w.Period
	if period <= 0 {
		period = 100
	}
	pos := w.n % period
	w.n++

	v := w.Low
	if pos < period*w.DutyPct/100 {
		v = w.High
	}
	if w.Noise != 0 {
		if w.n%2 == 0 {
			v += w.Noise
		} else {
			v -= w.Noise
		}
	}
	if w.SpikeEvery > 0 && w.n%w.SpikeEvery == 0 {
		v = w.High + w.SpikeMV
	}
	return v, nil
}

// Close is a no-op for the synthetic waveform.
func (w *WaveReader) Close() error { return nil }
