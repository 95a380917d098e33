package stats

import "time"

// ring is a fixed-capacity ring of float64 samples. Once full, new samples
// overwrite the oldest.
type ring struct {
	buf  []float64
	next int
	n    int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]float64, capacity)}
}

func (r *ring) add(v float64) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

func (r *ring) len() int { return r.n }

// mean returns the average of retained samples, or 0 when empty.
func (r *ring) mean() float64 {
	if r.n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < r.n; i++ {
		sum += r.buf[i]
	}
	return sum / float64(r.n)
}

// timeRing is a fixed-capacity ring of timestamps used for throughput.
type timeRing struct {
	buf  []time.Time
	next int
	n    int
}

func newTimeRing(capacity int) *timeRing {
	return &timeRing{buf: make([]time.Time, capacity)}
}

func (t *timeRing) add(ts time.Time) {
	t.buf[t.next] = ts
	t.next = (t.next + 1) % len(t.buf)
	if t.n < len(t.buf) {
		t.n++
	}
}

// countSince returns how many retained timestamps fall after cutoff.
func (t *timeRing) countSince(cutoff time.Time) int {
	count := 0
	for i := 0; i < t.n; i++ {
		if t.buf[i].After(cutoff) {
			count++
		}
	}
	return count
}
