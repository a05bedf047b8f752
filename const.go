package spo2

// Default engine parameters: 3500-sample capture windows smoothed by a
// 199-point order-5 polynomial filter, with 25 samples trimmed from
// each end before peak detection.
const (
	DefaultWindowSize   = 3500
	DefaultSmoothWindow = 199
	DefaultSmoothOrder  = 5
	DefaultEdgeMargin   = 25
	DefaultProminence   = 1.0
	DefaultHoldoff      = 500

	rHistorySize    = 10
	rateHistorySize = 3
)

// Default calibration curve, substituted and persisted when no
// calibration file exists yet.
var (
	DefaultCalR    = []float64{0.4, 0.85, 0.98, 1.1, 10}
	DefaultCalSpO2 = []int{100, 97, 96, 95, 0}
)
