package spo2

import "go.uber.org/zap"

// An Option configures an Engine. Options follow the set-and-return
// style: applying one returns an Option that restores the previous
// value.
type Option func(e *Engine) Option

// WindowSize sets the number of samples per capture window. The window
// must be large enough to fit the smoothing filter plus both edge
// margins; New rejects combinations that are not.
func WindowSize(n int) Option {
	return func(e *Engine) Option {
		old := e.windowSize
		e.windowSize = n
		return WindowSize(old)
	}
}

// SmoothWindow sets the length of the Savitzky-Golay smoothing window
// used by peak detection. It must be odd.
func SmoothWindow(n int) Option {
	return func(e *Engine) Option {
		old := e.smoothWindow
		e.smoothWindow = n
		return SmoothWindow(old)
	}
}

// SmoothOrder sets the polynomial order of the smoothing filter.
func SmoothOrder(n int) Option {
	return func(e *Engine) Option {
		old := e.smoothOrder
		e.smoothOrder = n
		return SmoothOrder(old)
	}
}

// EdgeMargin sets how many smoothed samples are discarded from each
// end of the window before peak detection, removing filter boundary
// artifacts.
func EdgeMargin(n int) Option {
	return func(e *Engine) Option {
		old := e.margin
		e.margin = n
		return EdgeMargin(old)
	}
}

// Prominence sets the minimum topographic prominence a pulse peak must
// have to be counted.
func Prominence(v float64) Option {
	return func(e *Engine) Option {
		old := e.prominence
		e.prominence = v
		return Prominence(old)
	}
}

// Holdoff sets the minimum sample-index separation between two counted
// pulse peaks.
func Holdoff(n int) Option {
	return func(e *Engine) Option {
		old := e.holdoff
		e.holdoff = n
		return Holdoff(old)
	}
}

// Logger sets the logger used for calibration persistence warnings.
// The default is a no-op logger.
func Logger(log *zap.Logger) Option {
	return func(e *Engine) Option {
		old := e.log
		e.log = log
		return Logger(old)
	}
}
