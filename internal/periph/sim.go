package periph

// MeterReading is one DC meter sample.
type MeterReading struct {
	V float64 // bus voltage, V
	I float64 // current, A
	P float64 // power, kW
	E float64 // accumulated energy, kWh-equivalent counter
}

// SimMeter models the DC meter: a fixed 415 V bus delivering 50 A whenever
// the contactor is closed. Energy accumulates per read, matching the
// reference peripheral model.
type SimMeter struct {
	energy float64
}

// Read returns the next sample given the contactor position.
func (m *SimMeter) Read(closed bool) MeterReading {
	v := 415.0
	i := 0.0
	if closed {
		i = 50.0
	}
	p := v * i / 1000.0
	m.energy += p * 0.001
	return MeterReading{V: v, I: i, P: p, E: m.energy}
}

// TempReading holds the charging gun temperatures in Celsius.
type TempReading struct {
	GunA float64
	GunB float64
}

// simTemps models gun heating: a few tenths above ambient when idle, roughly
// twelve degrees up under load.
func simTemps(closed bool) TempReading {
	if closed {
		return TempReading{GunA: 32.0 + 12.0, GunB: 31.5 + 11.0}
	}
	return TempReading{GunA: 32.0 + 0.5, GunB: 31.5 + 0.3}
}
