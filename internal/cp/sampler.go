package cp

import "time"

// Source yields single raw CP line readings in millivolts.
type Source interface {
	ReadMillivolts() (int, error)
}

// BurstConfig controls plateau capture.
type BurstConfig struct {
	Samples  int           // readings per burst
	Interval time.Duration // spacing between readings
	TopK     int           // size of the order-statistic buffer for the robust max
	Trim     int           // highest entries dropped as overshoot outliers
}

// DefaultBurstConfig matches the reference capture parameters: 256 samples at
// 10us, robust max from the top 8 readings with the highest 2 trimmed.
func DefaultBurstConfig() BurstConfig {
	return BurstConfig{Samples: 256, Interval: 10 * time.Microsecond, TopK: 8, Trim: 2}
}

// phaseStep advances the burst start offset each cycle. 17us is coprime with
// the 1000us period of the default 1 kHz PWM, so sampling instants never lock
// to a PWM edge.
const phaseStep = 17 * time.Microsecond

// Sampler reduces bursts of raw ADC readings to plateau statistics. The CP
// plateau is the positive rail of a square wave; a naive max is sensitive to
// single-sample switching overshoot, so the maximum is a trimmed mean of the
// top-K readings instead.
type Sampler struct {
	cfg    BurstConfig
	src    Source
	sleep  func(time.Duration)
	phase  time.Duration
	period time.Duration
}

// NewSampler builds a sampler over src. sleep is injectable for tests; pass
// time.Sleep in production.
func NewSampler(cfg BurstConfig, src Source, sleep func(time.Duration)) *Sampler {
	if cfg.Samples <= 0 {
		cfg.Samples = 1
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 8
	}
	if cfg.Trim >= cfg.TopK {
		cfg.Trim = cfg.TopK - 1
	}
	return &Sampler{cfg: cfg, src: src, sleep: sleep, period: time.Millisecond}
}

// SetPWMFrequency updates the PWM period the phase offset wraps on.
func (s *Sampler) SetPWMFrequency(hz int) {
	if hz <= 0 {
		return
	}
	s.period = time.Second / time.Duration(hz)
	if s.period <= 0 {
		s.period = time.Millisecond
	}
}

// Burst reads cfg.Samples values and reduces them to plateau statistics.
// Failed reads are skipped; a burst with no successful reads returns a zero
// plateau, which banding treats as fault. The phase offset advances after
// every burst so consecutive bursts sample different points of the PWM cycle.
func (s *Sampler) Burst() Plateau {
	if s.phase > 0 {
		s.sleep(s.phase)
	}

	var (
		acc   int64
		minv  = int(^uint(0) >> 1)
		maxv  int
		count int
		top   = make([]int, 0, s.cfg.TopK)
	)
	for i := 0; i < s.cfg.Samples; i++ {
		if i > 0 && s.cfg.Interval > 0 {
			s.sleep(s.cfg.Interval)
		}
		v, err := s.src.ReadMillivolts()
		if err != nil {
			continue
		}
		acc += int64(v)
		count++
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
		top = insertTop(top, v, s.cfg.TopK)
	}

	s.phase = (s.phase + phaseStep) % s.period

	if count == 0 {
		return Plateau{}
	}
	return Plateau{
		Min:    minv,
		Max:    maxv,
		Robust: trimmedMean(top, s.cfg.Trim),
		Avg:    int(acc / int64(count)),
	}
}

// insertTop keeps the k largest values seen so far, ascending.
func insertTop(top []int, v, k int) []int {
	if len(top) == k {
		if v <= top[0] {
			return top
		}
		top = top[1:]
	}
	i := len(top)
	for i > 0 && top[i-1] > v {
		i--
	}
	top = append(top, 0)
	copy(top[i+1:], top[i:])
	top[i] = v
	return top
}

// trimmedMean averages the retained top values after dropping the trim
// highest. When trimming would leave nothing, it falls back to the full mean.
func trimmedMean(top []int, trim int) int {
	keep := top
	if len(top) > trim {
		keep = top[:len(top)-trim]
	}
	if len(keep) == 0 {
		return 0
	}
	sum := 0
	for _, v := range keep {
		sum += v
	}
	return sum / len(keep)
}
