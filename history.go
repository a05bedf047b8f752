package spo2

// history is a fixed-size rolling buffer of readings. Slots start at
// zero and every add evicts the oldest value, so the mean always runs
// over the full capacity: a fresh engine reports averages that ramp up
// from zero as real readings displace the initial zeros.
type history struct {
	values []float64
}

func newHistory(size int) *history {
	return &history{values: make([]float64, size)}
}

func (h *history) add(v float64) {
	copy(h.values, h.values[1:])
	h.values[len(h.values)-1] = v
}

func (h *history) mean() float64 {
	sum := 0.0
	for _, v := range h.values {
		sum += v
	}
	return sum / float64(len(h.values))
}

func (h *history) reset() {
	for i := range h.values {
		h.values[i] = 0
	}
}
