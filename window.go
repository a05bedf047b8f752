package spo2

// window is a fixed-capacity ring of timestamped red/IR sample pairs.
// Three parallel buffers share one write cursor; the window is complete
// every time the cursor wraps back to zero, at which point each buffer
// holds exactly one full capture in chronological order.
type window struct {
	red []float64
	ir  []float64
	ts  []float64
	idx int
}

func newWindow(size int) *window {
	return &window{
		red: make([]float64, size),
		ir:  make([]float64, size),
		ts:  make([]float64, size),
	}
}

// add stores one sample at the cursor and reports whether the cursor
// wrapped, i.e. whether the buffers now hold a complete window.
func (w *window) add(red, ir, ts float64) bool {
	w.red[w.idx] = red
	w.ir[w.idx] = ir
	w.ts[w.idx] = ts
	w.idx++
	w.idx %= len(w.red)
	return w.idx == 0
}

func (w *window) size() int {
	return len(w.red)
}

func (w *window) reset() {
	for i := range w.red {
		w.red[i] = 0
		w.ir[i] = 0
		w.ts[i] = 0
	}
	w.idx = 0
}

// snapshot copies a channel buffer so callers never see the ring
// mutate under them. The copy is only chronologically contiguous right
// after add reported completion.
func snapshot(src []float64) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	return out
}
