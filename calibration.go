package spo2

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// calFile is the on-disk layout of the calibration curve.
type calFile struct {
	R    []float64 `json:"R_TABLE"`
	SpO2 []int     `json:"SPO2_TABLE"`
}

// Calibration maps observed R values to SpO2 percentages through a
// user-editable piecewise-linear curve. Points are kept in the order
// the user entered them; interpolation treats the R column as sorted
// ascending and keeping it that way is the caller's responsibility.
// Sorting here would hide data-entry mistakes the editing surface is
// expected to show instead.
type Calibration struct {
	r    []float64
	spo2 []int
	path string
	log  *zap.Logger
}

// LoadCalibration reads the calibration curve from path. A missing
// file is not an error: the default curve is loaded and written back
// so the next load finds it. A file that exists but cannot be parsed
// or holds out-of-range values is fatal, since it means the persisted
// state is corrupted and guessing a curve would silently skew every
// SpO2 reading.
func LoadCalibration(path string, log *zap.Logger) (*Calibration, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Calibration{path: path, log: log}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Info("no calibration file, loading defaults", zap.String("path", path))
		c.r = append([]float64(nil), DefaultCalR...)
		c.spo2 = append([]int(nil), DefaultCalSpO2...)
		if err := c.Save(); err != nil {
			log.Warn("could not persist default calibration", zap.Error(err))
		}
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("spo2: could not read calibration file: %w", err)
	}

	var f calFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("spo2: %w: %v", ErrCalibrationLoad, err)
	}
	if err := c.SetR(f.R); err != nil {
		return nil, fmt.Errorf("spo2: %w: %v", ErrCalibrationLoad, err)
	}
	spo2 := make([]float64, len(f.SpO2))
	for i, v := range f.SpO2 {
		spo2[i] = float64(v)
	}
	if err := c.SetSpO2(spo2); err != nil {
		return nil, fmt.Errorf("spo2: %w: %v", ErrCalibrationLoad, err)
	}
	return c, nil
}

// R returns a copy of the R column.
func (c *Calibration) R() []float64 {
	return append([]float64(nil), c.r...)
}

// SpO2 returns a copy of the SpO2 column.
func (c *Calibration) SpO2() []int {
	return append([]int(nil), c.spo2...)
}

// SetR replaces the R column. Values must be non-negative; the column
// is index-aligned with the SpO2 column and the caller keeps both the
// same length. The table is unchanged on error.
func (c *Calibration) SetR(values []float64) error {
	for _, v := range values {
		if v < 0 {
			return fmt.Errorf("spo2: %w: R value %v is negative", ErrInvalidCalibration, v)
		}
	}
	c.r = append([]float64(nil), values...)
	return nil
}

// SetSpO2 replaces the SpO2 column. Values are truncated toward zero
// and must land in 0-100. The table is unchanged on error.
func (c *Calibration) SetSpO2(values []float64) error {
	spo2 := make([]int, len(values))
	for i, v := range values {
		t := int(math.Trunc(v))
		if t < 0 || t > 100 {
			return fmt.Errorf("spo2: %w: SpO2 value %v is outside 0-100", ErrInvalidCalibration, v)
		}
		spo2[i] = t
	}
	c.spo2 = spo2
	return nil
}

// Interpolate maps an R value to an SpO2 percentage by piecewise
// linear interpolation over the table. R values off either end of the
// table clamp to the boundary SpO2 value, they are not extended
// linearly. At least two points are required.
func (c *Calibration) Interpolate(r float64) (float64, error) {
	if len(c.r) < 2 || len(c.r) != len(c.spo2) {
		return 0, fmt.Errorf("spo2: %w", ErrInsufficientCalibration)
	}

	if r <= c.r[0] {
		return float64(c.spo2[0]), nil
	}
	last := len(c.r) - 1
	if r >= c.r[last] {
		return float64(c.spo2[last]), nil
	}

	for i := 1; i <= last; i++ {
		if r <= c.r[i] {
			span := c.r[i] - c.r[i-1]
			if span == 0 {
				return float64(c.spo2[i]), nil
			}
			frac := (r - c.r[i-1]) / span
			return float64(c.spo2[i-1]) + frac*float64(c.spo2[i]-c.spo2[i-1]), nil
		}
	}
	return float64(c.spo2[last]), nil
}

// Save writes the table to its backing file atomically (temp file plus
// rename). The in-memory table is untouched on failure.
func (c *Calibration) Save() error {
	c.log.Debug("saving calibration file", zap.String("path", c.path))

	raw, err := json.Marshal(calFile{R: c.r, SpO2: c.spo2})
	if err != nil {
		return fmt.Errorf("spo2: %w: %v", ErrCalibrationSave, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".cal-*")
	if err != nil {
		return fmt.Errorf("spo2: %w: %v", ErrCalibrationSave, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("spo2: %w: %v", ErrCalibrationSave, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("spo2: %w: %v", ErrCalibrationSave, err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("spo2: %w: %v", ErrCalibrationSave, err)
	}
	return nil
}
