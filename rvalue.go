package spo2

import "math"

// rResult holds the ratio-of-ratios computation for one window.
type rResult struct {
	r      float64
	rmsRed float64
	rmsIR  float64
}

// computeR derives the red/IR absorption ratio over one complete
// window: subtract each channel's mean to remove the DC offset, take
// the RMS of what remains, and divide red by IR. A flat IR channel has
// zero RMS; the ratio is then +Inf so the calibration lookup clamps to
// the far end of the curve instead of dividing by zero.
func computeR(red, ir []float64) rResult {
	rmsRed := rms(red, mean(red))
	rmsIR := rms(ir, mean(ir))

	r := math.Inf(1)
	if rmsIR != 0 {
		r = rmsRed / rmsIR
	}

	return rResult{
		r:      r,
		rmsRed: rmsRed,
		rmsIR:  rmsIR,
	}
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// rms is the root-mean-square of xs after subtracting offset.
func rms(xs []float64, offset float64) float64 {
	total := 0.0
	for _, x := range xs {
		d := x - offset
		total += d * d
	}
	return math.Sqrt(total / float64(len(xs)))
}
