package spo2

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSavgolValidation(t *testing.T) {
	_, err := newSavgol(10, 3)
	require.Error(t, err, "even window")

	_, err = newSavgol(1, 0)
	require.Error(t, err, "window too short")

	_, err = newSavgol(5, 5)
	require.Error(t, err, "order does not fit")

	_, err = newSavgol(11, 3)
	require.NoError(t, err)
}

func TestSavgolPreservesConstant(t *testing.T) {
	s, err := newSavgol(11, 3)
	require.NoError(t, err)

	x := make([]float64, 40)
	for i := range x {
		x[i] = 7.5
	}

	out := s.apply(x)
	require.Len(t, out, len(x))
	for i, v := range out {
		require.InDeltaf(t, 7.5, v, 1e-9, "index %d", i)
	}
}

func TestSavgolReproducesPolynomial(t *testing.T) {
	// A filter of order p reproduces any polynomial of degree <= p
	// exactly, including at the fitted edges.
	s, err := newSavgol(11, 3)
	require.NoError(t, err)

	x := make([]float64, 30)
	for i := range x {
		ti := float64(i)
		x[i] = 2 - 3*ti + 0.5*ti*ti + 0.25*ti*ti*ti
	}

	out := s.apply(x)
	for i := range x {
		require.InDeltaf(t, x[i], out[i], 1e-6, "index %d", i)
	}
}

func TestSavgolSameLengthOutput(t *testing.T) {
	s, err := newSavgol(5, 2)
	require.NoError(t, err)

	x := make([]float64, 17)
	for i := range x {
		x[i] = math.Sin(float64(i) / 3)
	}

	out := s.apply(x)
	require.Len(t, out, 17)
}

func TestSavgolSmoothsNoise(t *testing.T) {
	s, err := newSavgol(11, 3)
	require.NoError(t, err)

	// Slow sine with deterministic high-frequency jitter.
	x := make([]float64, 100)
	for i := range x {
		x[i] = math.Sin(float64(i)/20) + 0.2*math.Sin(float64(i)*2.7)
	}

	out := s.apply(x)

	// Compare residual energy against the clean sine in the interior.
	var rough, smooth float64
	for i := 10; i < 90; i++ {
		clean := math.Sin(float64(i) / 20)
		rough += (x[i] - clean) * (x[i] - clean)
		smooth += (out[i] - clean) * (out[i] - clean)
	}
	require.Less(t, smooth, rough)
}

func TestMidpointWeightsSumToOne(t *testing.T) {
	w, err := midpointWeights(199, 5)
	require.NoError(t, err)
	require.Len(t, w, 199)

	sum := 0.0
	for _, c := range w {
		sum += c
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}
