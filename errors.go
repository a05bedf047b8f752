package spo2

import "errors"

var (
	// ErrInvalidCalibration is thrown when a calibration edit contains an
	// out-of-range value (a negative R, or an SpO2 percentage outside
	// 0-100). The table is left unchanged.
	ErrInvalidCalibration = errors.New("invalid calibration value")
	// ErrInsufficientCalibration is thrown when an interpolation is
	// attempted against a calibration table with fewer than two usable
	// points. Reloading the default curve recovers from this.
	ErrInsufficientCalibration = errors.New("calibration table needs at least two points")
	// ErrCalibrationLoad is thrown when the calibration file exists but
	// cannot be parsed. A missing file is not an error: the default curve
	// is substituted and written back instead.
	ErrCalibrationLoad = errors.New("calibration file is malformed")
	// ErrCalibrationSave is thrown when the calibration file cannot be
	// written. The in-memory table is kept as-is.
	ErrCalibrationSave = errors.New("could not write calibration file")
	// ErrWindowTooSmall is thrown at construction when the sample window
	// cannot fit the smoothing filter plus its edge margins.
	ErrWindowTooSmall = errors.New("sample window does not fit the smoothing filter")
)
