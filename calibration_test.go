package spo2

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func defaultTable(t *testing.T) *Calibration {
	t.Helper()
	c := &Calibration{log: zap.NewNop()}
	require.NoError(t, c.SetR(DefaultCalR))
	spo2 := make([]float64, len(DefaultCalSpO2))
	for i, v := range DefaultCalSpO2 {
		spo2[i] = float64(v)
	}
	require.NoError(t, c.SetSpO2(spo2))
	return c
}

func TestSetRRejectsNegative(t *testing.T) {
	c := defaultTable(t)

	err := c.SetR([]float64{-0.1, 1.0})
	require.ErrorIs(t, err, ErrInvalidCalibration)

	// Table unchanged.
	require.Equal(t, DefaultCalR, c.R())
}

func TestSetSpO2TruncatesTowardZero(t *testing.T) {
	c := defaultTable(t)

	require.NoError(t, c.SetSpO2([]float64{100.9, 50.5, 0.0}))
	require.Equal(t, []int{100, 50, 0}, c.SpO2())

	// -0.5 truncates to 0, which is in range.
	require.NoError(t, c.SetSpO2([]float64{0, -0.5}))
	require.Equal(t, []int{0, 0}, c.SpO2())
}

func TestSetSpO2RejectsOutOfRange(t *testing.T) {
	c := defaultTable(t)

	require.ErrorIs(t, c.SetSpO2([]float64{50, 101}), ErrInvalidCalibration)
	require.ErrorIs(t, c.SetSpO2([]float64{-1, 50}), ErrInvalidCalibration)

	require.Equal(t, DefaultCalSpO2, c.SpO2())
}

func TestInterpolateAtControlPoints(t *testing.T) {
	c := defaultTable(t)

	for i, r := range DefaultCalR {
		got, err := c.Interpolate(r)
		require.NoError(t, err)
		require.InDelta(t, float64(DefaultCalSpO2[i]), got, 1e-12)
	}
}

func TestInterpolateBetweenPoints(t *testing.T) {
	c := defaultTable(t)

	// Halfway between (0.4, 100) and (0.85, 97).
	got, err := c.Interpolate(0.625)
	require.NoError(t, err)
	require.InDelta(t, 98.5, got, 1e-12)
}

func TestInterpolateClampsFlat(t *testing.T) {
	c := defaultTable(t)

	low, err := c.Interpolate(0.0)
	require.NoError(t, err)
	require.InDelta(t, 100.0, low, 1e-12)

	high, err := c.Interpolate(500.0)
	require.NoError(t, err)
	require.InDelta(t, 0.0, high, 1e-12)
}

func TestInterpolateNeedsTwoPoints(t *testing.T) {
	c := &Calibration{log: zap.NewNop()}
	require.NoError(t, c.SetR([]float64{0.5}))
	require.NoError(t, c.SetSpO2([]float64{97}))

	_, err := c.Interpolate(0.5)
	require.ErrorIs(t, err, ErrInsufficientCalibration)
}

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.json")

	c, err := LoadCalibration(path, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, DefaultCalR, c.R())
	require.Equal(t, DefaultCalSpO2, c.SpO2())

	// The defaults were persisted; a second load reads them back.
	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := LoadCalibration(path, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, c.R(), again.R())
	require.Equal(t, c.SpO2(), again.SpO2())
}

func TestLoadMalformedFileIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadCalibration(path, zap.NewNop())
	require.ErrorIs(t, err, ErrCalibrationLoad)
}

func TestLoadRejectsOutOfRangeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.json")
	raw := []byte(`{"R_TABLE": [-1, 0.5], "SPO2_TABLE": [100, 95]}`)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err := LoadCalibration(path, zap.NewNop())
	require.ErrorIs(t, err, ErrCalibrationLoad)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.json")

	c, err := LoadCalibration(path, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, c.SetR([]float64{0.1, 0.9, 2.5}))
	require.NoError(t, c.SetSpO2([]float64{99, 96, 80}))
	require.NoError(t, c.Save())

	loaded, err := LoadCalibration(path, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, []float64{0.1, 0.9, 2.5}, loaded.R())
	require.Equal(t, []int{99, 96, 80}, loaded.SpO2())
}

func TestSaveFailureKeepsTable(t *testing.T) {
	c := defaultTable(t)
	c.path = filepath.Join(t.TempDir(), "missing", "cal.json")

	err := c.Save()
	require.ErrorIs(t, err, ErrCalibrationSave)
	require.Equal(t, DefaultCalR, c.R())
	require.Equal(t, DefaultCalSpO2, c.SpO2())
}
