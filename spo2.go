// Package spo2 derives blood-oxygen saturation and heart rate from
// paired red/infrared light-intensity samples of a pulse-oximetry
// sensor. Samples are buffered into fixed windows; each completed
// window yields the red/IR absorption ratio (the R value), an SpO2
// percentage mapped through a persisted, user-editable calibration
// curve, and a heart rate derived from the periodicity of the
// waveform.
package spo2

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Engine buffers paired red/IR samples and recomputes every derived
// reading at each window boundary. It is call-driven and
// single-writer: the caller feeds one sample per AddSample call and
// must not call concurrently from multiple goroutines.
type Engine struct {
	win   *window
	cal   *Calibration
	rHist *history
	rate  *rateDetector
	log   *zap.Logger

	windowSize   int
	smoothWindow int
	smoothOrder  int
	margin       int
	prominence   float64
	holdoff      int

	rValue float64
	rmsRed float64
	rmsIR  float64
	sps    int
}

// New returns a new Engine backed by the calibration file at calPath.
// If the file does not exist, the default curve is loaded and written
// there. Tuning parameters not overridden by options keep the
// defaults in const.go.
func New(calPath string, opts ...Option) (*Engine, error) {
	e := &Engine{
		windowSize:   DefaultWindowSize,
		smoothWindow: DefaultSmoothWindow,
		smoothOrder:  DefaultSmoothOrder,
		margin:       DefaultEdgeMargin,
		prominence:   DefaultProminence,
		holdoff:      DefaultHoldoff,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.margin < 0 {
		return nil, fmt.Errorf("spo2: edge margin %d is negative", e.margin)
	}
	if e.windowSize <= e.smoothWindow+2*e.margin {
		return nil, fmt.Errorf("spo2: %w: window %d, smoothing %d, margin %d",
			ErrWindowTooSmall, e.windowSize, e.smoothWindow, e.margin)
	}

	filter, err := newSavgol(e.smoothWindow, e.smoothOrder)
	if err != nil {
		return nil, fmt.Errorf("spo2: %w", err)
	}

	cal, err := LoadCalibration(calPath, e.log)
	if err != nil {
		return nil, err
	}

	e.win = newWindow(e.windowSize)
	e.cal = cal
	e.rHist = newHistory(rHistorySize)
	e.rate = newRateDetector(filter, e.margin, e.prominence, e.holdoff)

	return e, nil
}

// AddSample records one (red, ir) pair with its capture timestamp in
// milliseconds. It reports true when the sample completed a window, at
// which point every derived reading has been recomputed. Timestamps
// are expected to be monotonically non-decreasing within a window;
// this is the caller's responsibility.
func (e *Engine) AddSample(red, ir, tsMillis float64) bool {
	if !e.win.add(red, ir, tsMillis) {
		return false
	}

	res := computeR(e.win.red, e.win.ir)
	e.rValue = res.r
	e.rmsRed = res.rmsRed
	e.rmsIR = res.rmsIR
	e.rHist.add(res.r)

	e.rate.run(e.win.red, e.win.ts)

	span := e.win.ts[e.win.size()-1] - e.win.ts[0]
	if span > 0 {
		e.sps = int(math.Floor(float64(e.win.size()) / span * 1000))
	}

	return true
}

// Reset clears the sample window, every derived reading and both
// rolling histories. The calibration table is untouched: its lifecycle
// is tied to the calibration file, not to capture sessions.
func (e *Engine) Reset() {
	e.win.reset()
	e.rHist.reset()
	e.rate.reset()
	e.rValue = 0
	e.rmsRed = 0
	e.rmsIR = 0
	e.sps = 0
}

// RInst returns the R value of the last completed window.
func (e *Engine) RInst() float64 {
	return e.rValue
}

// RAverage returns the mean of the rolling R history.
func (e *Engine) RAverage() float64 {
	return e.rHist.mean()
}

// RMSRed returns the RMS of the DC-removed red channel over the last
// completed window.
func (e *Engine) RMSRed() float64 {
	return e.rmsRed
}

// RMSIR returns the RMS of the DC-removed IR channel over the last
// completed window.
func (e *Engine) RMSIR() float64 {
	return e.rmsIR
}

// SpO2 returns the saturation percentage for the rolling R average,
// looked up on the calibration curve.
func (e *Engine) SpO2() (float64, error) {
	return e.cal.Interpolate(e.rHist.mean())
}

// HeartRate returns the instantaneous rate of the last completed
// window in beats per minute, or 0 when fewer than two pulse peaks
// were found.
func (e *Engine) HeartRate() int {
	return e.rate.inst
}

// HeartRateAvg returns the mean of the rolling rate history, rounded
// to whole beats per minute.
func (e *Engine) HeartRateAvg() int {
	return e.rate.avg
}

// SamplesPerSecond returns the capture rate measured over the last
// completed window.
func (e *Engine) SamplesPerSecond() int {
	return e.sps
}

// WindowSize returns the number of samples per capture window.
func (e *Engine) WindowSize() int {
	return e.windowSize
}

// HistoryRed returns a copy of the red channel buffer for plotting.
// It is chronologically contiguous right after AddSample reported a
// completed window.
func (e *Engine) HistoryRed() []float64 {
	return snapshot(e.win.red)
}

// HistoryIR returns a copy of the IR channel buffer for plotting.
func (e *Engine) HistoryIR() []float64 {
	return snapshot(e.win.ir)
}

// Calibration returns the engine's calibration table for display and
// editing.
func (e *Engine) Calibration() *Calibration {
	return e.cal
}

// SaveCalibration persists the calibration table. Persistence is best
// effort: a failed write is logged and the in-memory table is kept.
func (e *Engine) SaveCalibration() {
	if err := e.cal.Save(); err != nil {
		e.log.Warn("could not save calibration file", zap.Error(err))
	}
}

// Reading is a snapshot of every derived quantity after a completed
// window, in the shape the display collaborators serialize.
type Reading struct {
	R                float64 `json:"r"`
	RAverage         float64 `json:"r_avg"`
	RMSRed           float64 `json:"rms_red"`
	RMSIR            float64 `json:"rms_ir"`
	SpO2             float64 `json:"spo2"`
	HeartRate        int     `json:"heart_rate"`
	HeartRateAvg     int     `json:"heart_rate_avg"`
	SamplesPerSecond int     `json:"samples_per_second"`
}

// Reading bundles the current derived values into one snapshot.
func (e *Engine) Reading() (Reading, error) {
	spo2, err := e.SpO2()
	if err != nil {
		return Reading{}, err
	}
	return Reading{
		R:                e.rValue,
		RAverage:         e.rHist.mean(),
		RMSRed:           e.rmsRed,
		RMSIR:            e.rmsIR,
		SpO2:             spo2,
		HeartRate:        e.rate.inst,
		HeartRateAvg:     e.rate.avg,
		SamplesPerSecond: e.sps,
	}, nil
}
