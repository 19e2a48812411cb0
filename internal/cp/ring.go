package cp

// historyLen is the number of recent burst maxima retained for smoothing.
const historyLen = 6

// Ring is a fixed-capacity circular buffer of recent burst maxima. It is used
// to derive a robust plateau value across several classification cycles.
type Ring struct {
	buf [historyLen]int
	n   int
	idx int
}

// Push appends a value, overwriting the oldest once the ring is full.
func (r *Ring) Push(v int) {
	r.buf[r.idx] = v
	r.idx = (r.idx + 1) % historyLen
	if r.n < historyLen {
		r.n++
	}
}

// Robust returns the mean of the two largest retained values. With a single
// entry it returns that entry; empty rings return 0.
func (r *Ring) Robust() int {
	if r.n == 0 {
		return 0
	}
	top1, top2 := 0, 0
	for i := 0; i < r.n; i++ {
		v := r.buf[i]
		if v >= top1 {
			top2 = top1
			top1 = v
		} else if v > top2 {
			top2 = v
		}
	}
	if r.n == 1 {
		return top1
	}
	return (top1 + top2) / 2
}

// Reset discards all retained values.
func (r *Ring) Reset() {
	r.n = 0
	r.idx = 0
}
