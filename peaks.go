package spo2

import "sort"

// peakParams are the acceptance conditions for a local maximum.
type peakParams struct {
	height     float64 // minimum sample value at the peak
	prominence float64 // minimum topographic prominence
	distance   int     // minimum index separation between accepted peaks
}

// findPeaks locates local maxima of x that clear a height threshold,
// then thins peaks closer than the minimum distance keeping the taller
// one, then drops peaks below the prominence threshold. Returned
// indices are ascending. Flat-topped maxima report the middle of the
// plateau.
func findPeaks(x []float64, p peakParams) []int {
	peaks := localMaxima(x)

	kept := peaks[:0]
	for _, i := range peaks {
		if x[i] >= p.height {
			kept = append(kept, i)
		}
	}
	peaks = kept

	if p.distance > 1 {
		peaks = thinByDistance(x, peaks, p.distance)
	}

	kept = peaks[:0]
	for _, i := range peaks {
		if peakProminence(x, i) >= p.prominence {
			kept = append(kept, i)
		}
	}
	return kept
}

// localMaxima returns every index whose value is strictly greater than
// both neighbors. A plateau counts once, at its midpoint, when the
// signal falls off on both sides.
func localMaxima(x []float64) []int {
	var peaks []int
	i := 1
	for i < len(x)-1 {
		if x[i-1] < x[i] {
			ahead := i + 1
			for ahead < len(x)-1 && x[ahead] == x[i] {
				ahead++
			}
			if x[ahead] < x[i] {
				peaks = append(peaks, (i+ahead-1)/2)
				i = ahead
				continue
			}
		}
		i++
	}
	return peaks
}

// peakProminence is the vertical drop from the peak to the higher of
// the lowest points reached before the signal next exceeds the peak on
// either side (or before the signal border).
func peakProminence(x []float64, peak int) float64 {
	leftMin := x[peak]
	for i := peak; i >= 0 && x[i] <= x[peak]; i-- {
		if x[i] < leftMin {
			leftMin = x[i]
		}
	}

	rightMin := x[peak]
	for i := peak; i < len(x) && x[i] <= x[peak]; i++ {
		if x[i] < rightMin {
			rightMin = x[i]
		}
	}

	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return x[peak] - base
}

// thinByDistance removes peaks within the minimum distance of a taller
// peak. Peaks are visited tallest first; each survivor suppresses its
// shorter neighbors.
func thinByDistance(x []float64, peaks []int, distance int) []int {
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return x[peaks[order[a]]] > x[peaks[order[b]]]
	})

	removed := make([]bool, len(peaks))
	for _, j := range order {
		if removed[j] {
			continue
		}
		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			removed[k] = true
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < distance; k++ {
			removed[k] = true
		}
	}

	kept := peaks[:0]
	for i, p := range peaks {
		if !removed[i] {
			kept = append(kept, p)
		}
	}
	return kept
}
