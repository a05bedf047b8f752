// Package sim generates a synthetic photoplethysmogram so the engine
// and its consumers can run without sensor hardware. The waveform is
// deliberately simple: a systolic peak and a dicrotic bump per cardiac
// cycle, a slow respiratory baseline, and optional deterministic
// noise.
package sim

import "math"

// PPG produces paired red/IR samples at a fixed sample rate.
type PPG struct {
	fs    float64
	bpm   float64
	noise float64
	phase float64
	tick  int
}

// New returns a generator producing fs samples per second of a pulse
// at bpm beats per minute. noise sets the amplitude of a deterministic
// pseudo-noise term, 0 disables it.
func New(fs, bpm, noise float64) *PPG {
	return &PPG{fs: fs, bpm: bpm, noise: noise}
}

// Next returns the next (red, ir) pair and the sample timestamp in
// milliseconds. The red channel carries a smaller AC swing than IR, so
// the derived R value lands near the healthy end of the default
// calibration curve.
func (p *PPG) Next() (red, ir, millis float64) {
	cycleHz := p.bpm / 60.0
	t := p.phase

	// systolic peak, dicrotic bump and respiratory baseline
	pulse := gauss(t, 0.30, 0.05) + 0.35*gauss(t, 0.62, 0.09)
	baseline := 0.04 * math.Sin(2*math.Pi*0.25*t)

	n := p.noise * (2*fract(math.Sin(12345.678*t)*9876.543) - 1)

	shape := pulse + baseline + n

	// DC of 100 with channel-specific AC amplitudes: red/IR RMS ratio
	// of 0.7 maps to roughly 98% SpO2 on the default curve.
	red = 100 + 7.0*shape
	ir = 100 + 10.0*shape

	millis = float64(p.tick) / p.fs * 1000

	p.tick++
	p.phase += cycleHz / p.fs
	if p.phase >= 1.0 {
		p.phase -= 1.0
	}

	return red, ir, millis
}

// SampleRate returns the generator's samples per second.
func (p *PPG) SampleRate() float64 {
	return p.fs
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func fract(x float64) float64 { return x - math.Floor(x) }
