package spo2

import "math"

// rateDetector converts the red-channel waveform of one complete
// window into beats per minute. Every window is processed from
// scratch: smooth, trim the filter's boundary artifacts, search for
// pulse peaks, then turn the mean inter-peak timestamp delta into a
// rate. Only the rolling rate history survives between windows.
type rateDetector struct {
	filter     *savgol
	margin     int
	prominence float64
	holdoff    int

	inst  int
	avg   int
	hist  *history
	peaks []int
}

func newRateDetector(filter *savgol, margin int, prominence float64, holdoff int) *rateDetector {
	return &rateDetector{
		filter:     filter,
		margin:     margin,
		prominence: prominence,
		holdoff:    holdoff,
		hist:       newHistory(rateHistorySize),
	}
}

// run processes one chronological window of red samples and their
// capture timestamps (milliseconds). Fewer than two detected peaks is
// a normal no-signal outcome: the rate reads zero and the rolling
// history is left alone.
func (d *rateDetector) run(red, ts []float64) {
	smoothed := d.filter.apply(red)
	trimmed := smoothed[d.margin : len(smoothed)-d.margin]

	vmax, vmin := trimmed[0], trimmed[0]
	for _, v := range trimmed {
		if v > vmax {
			vmax = v
		}
		if v < vmin {
			vmin = v
		}
	}

	// Accept only peaks above the midpoint of the dynamic range to
	// suppress low-amplitude noise.
	d.peaks = findPeaks(trimmed, peakParams{
		height:     vmax - (vmax-vmin)/2,
		prominence: d.prominence,
		distance:   d.holdoff,
	})

	if len(d.peaks) < 2 {
		d.inst = 0
		d.avg = 0
		return
	}

	total := 0.0
	for i := 1; i < len(d.peaks); i++ {
		// Peak indices are relative to the trimmed slice; timestamps
		// come from the untrimmed window.
		total += ts[d.peaks[i]+d.margin] - ts[d.peaks[i-1]+d.margin]
	}
	meanDelta := total / float64(len(d.peaks)-1)

	bpm := math.Round(60000 / meanDelta)
	d.inst = int(bpm)
	d.hist.add(bpm)
	d.avg = int(math.Round(d.hist.mean()))
}

func (d *rateDetector) reset() {
	d.inst = 0
	d.avg = 0
	d.peaks = nil
	d.hist.reset()
}
