package indicator

// rollingExtreme tracks the max or min over a fixed trailing window.
type rollingExtreme struct {
	buf   []float64
	idx   int
	count int
	max   bool
}

func newRollingMax(window int) *rollingExtreme {
	return &rollingExtreme{buf: make([]float64, window), max: true}
}

func newRollingMin(window int) *rollingExtreme {
	return &rollingExtreme{buf: make([]float64, window)}
}

func (r *rollingExtreme) Update(v float64) {
	r.buf[r.idx] = v
	r.idx = (r.idx + 1) % len(r.buf)
	r.count++
}

func (r *rollingExtreme) Ready() bool { return r.count >= len(r.buf) }

func (r *rollingExtreme) Value() float64 {
	if !r.Ready() {
		return 0
	}
	best := r.buf[0]
	for _, v := range r.buf[1:] {
		if r.max && v > best || !r.max && v < best {
			best = v
		}
	}
	return best
}
