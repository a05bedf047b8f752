package spo2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowCompletesOnWrap(t *testing.T) {
	w := newWindow(5)

	for cycle := 0; cycle < 3; cycle++ {
		for i := 0; i < 4; i++ {
			require.False(t, w.add(1, 2, float64(i)))
		}
		require.True(t, w.add(1, 2, 4))
	}
}

func TestWindowChronologicalAfterCompletion(t *testing.T) {
	w := newWindow(4)

	// Partial fill, then complete a second window so the ring has
	// wrapped at least once.
	complete := false
	for i := 0; i < 8; i++ {
		complete = w.add(float64(i), float64(i)*2, float64(i)*10)
	}
	require.True(t, complete)

	require.Equal(t, []float64{4, 5, 6, 7}, w.red)
	require.Equal(t, []float64{8, 10, 12, 14}, w.ir)
	require.Equal(t, []float64{40, 50, 60, 70}, w.ts)
}

func TestWindowResetZeroes(t *testing.T) {
	w := newWindow(3)
	w.add(1, 2, 3)
	w.add(4, 5, 6)

	w.reset()

	require.Equal(t, []float64{0, 0, 0}, w.red)
	require.Equal(t, []float64{0, 0, 0}, w.ir)
	require.Equal(t, []float64{0, 0, 0}, w.ts)
	require.Equal(t, 0, w.idx)

	// Completion counting restarts from scratch.
	require.False(t, w.add(1, 1, 1))
	require.False(t, w.add(1, 1, 2))
	require.True(t, w.add(1, 1, 3))
}

func TestSnapshotIsACopy(t *testing.T) {
	w := newWindow(3)
	w.add(7, 8, 9)

	snap := snapshot(w.red)
	snap[0] = -1

	require.Equal(t, 7.0, w.red[0])
}
