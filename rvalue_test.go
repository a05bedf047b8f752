package spo2

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRMSExact(t *testing.T) {
	// Zero-mean square wave: RMS is the amplitude.
	require.InDelta(t, 1.0, rms([]float64{1, -1, 1, -1}, 0), 1e-12)

	// The DC offset is removed before squaring.
	require.InDelta(t, 1.0, rms([]float64{6, 4, 6, 4}, 5), 1e-12)
}

func TestComputeR(t *testing.T) {
	red := []float64{6, 4, 6, 4}  // RMS 1 after DC removal
	ir := []float64{12, 8, 12, 8} // RMS 2 after DC removal

	res := computeR(red, ir)
	require.InDelta(t, 1.0, res.rmsRed, 1e-12)
	require.InDelta(t, 2.0, res.rmsIR, 1e-12)
	require.InDelta(t, 0.5, res.r, 1e-12)
}

func TestComputeROffsetInvariant(t *testing.T) {
	red := []float64{1, 2, 3, 2, 1}
	ir := []float64{2, 4, 6, 4, 2}

	base := computeR(red, ir)

	shiftedRed := make([]float64, len(red))
	shiftedIR := make([]float64, len(ir))
	for i := range red {
		shiftedRed[i] = red[i] + 1000
		shiftedIR[i] = ir[i] + 500
	}
	shifted := computeR(shiftedRed, shiftedIR)

	require.InDelta(t, base.r, shifted.r, 1e-9)
}

func TestComputeRFlatIRIsInf(t *testing.T) {
	res := computeR([]float64{1, 2, 3}, []float64{5, 5, 5})
	require.True(t, math.IsInf(res.r, 1))
	require.Equal(t, 0.0, res.rmsIR)
}

func TestComputeRFlatBothIsInf(t *testing.T) {
	res := computeR([]float64{5, 5, 5}, []float64{5, 5, 5})
	require.True(t, math.IsInf(res.r, 1))
	require.Equal(t, 0.0, res.rmsRed)
	require.Equal(t, 0.0, res.rmsIR)
}
