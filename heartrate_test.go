package spo2

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// twinPeak returns n samples with clean gaussian pulses at the given
// indices and timestamps spaced stepMillis apart.
func twinPeak(n, p1, p2 int, stepMillis float64) (red, ts []float64) {
	red = make([]float64, n)
	ts = make([]float64, n)
	for i := 0; i < n; i++ {
		red[i] = 10*gaussBump(i, p1, 4) + 10*gaussBump(i, p2, 4)
		ts[i] = float64(i) * stepMillis
	}
	return red, ts
}

func gaussBump(i, mu int, sigma float64) float64 {
	z := float64(i-mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func testDetector(t *testing.T) *rateDetector {
	t.Helper()
	filter, err := newSavgol(11, 3)
	require.NoError(t, err)
	return newRateDetector(filter, 5, DefaultProminence, 10)
}

func TestRateDetectorTwoPeaks(t *testing.T) {
	d := testDetector(t)

	// Peaks 40 samples apart at 12.5ms per sample: 500ms between
	// beats, 120 bpm.
	red, ts := twinPeak(80, 20, 60, 12.5)
	d.run(red, ts)

	require.Equal(t, 120, d.inst)
	// History is [0, 0, 120].
	require.Equal(t, 40, d.avg)

	d.run(red, ts)
	require.Equal(t, 120, d.inst)
	require.Equal(t, 80, d.avg)
}

func TestRateDetectorNoPeaksKeepsHistory(t *testing.T) {
	d := testDetector(t)

	red, ts := twinPeak(80, 20, 60, 12.5)
	d.run(red, ts)
	require.Equal(t, 120, d.inst)

	// A flat window is a normal no-signal outcome: zero rate, but the
	// rolling history is untouched.
	flat := make([]float64, 80)
	d.run(flat, ts)
	require.Equal(t, 0, d.inst)
	require.Equal(t, 0, d.avg)

	d.run(red, ts)
	require.Equal(t, 120, d.inst)
	// History is [0, 120, 120]: the flat window left no zero behind.
	require.Equal(t, 80, d.avg)
}

func TestRateDetectorSinglePeak(t *testing.T) {
	d := testDetector(t)

	red := make([]float64, 80)
	ts := make([]float64, 80)
	for i := range red {
		red[i] = 10 * gaussBump(i, 40, 4)
		ts[i] = float64(i) * 12.5
	}
	d.run(red, ts)

	require.Equal(t, 0, d.inst)
	require.Equal(t, 0, d.avg)
}

func TestRateDetectorReset(t *testing.T) {
	d := testDetector(t)

	red, ts := twinPeak(80, 20, 60, 12.5)
	d.run(red, ts)
	require.NotZero(t, d.inst)

	d.reset()
	require.Zero(t, d.inst)
	require.Zero(t, d.avg)
	require.Nil(t, d.peaks)
	require.Equal(t, 0.0, d.hist.mean())
}
