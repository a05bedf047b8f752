// Package max30102 drives the MAX30102 pulse-oximetry sensor over I²C
// and turns its FIFO stream into timestamped red/IR sample pairs
// suitable for the derivation engine.
package max30102

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

var (
	// ErrNotDevice is thrown when the device part ID does not match a
	// MAX30102 signature (0x15).
	ErrNotDevice = errors.New("max30102: part ID does not match (0x15)")
)

// Sample is one paired LED reading. Red and IR are normalized to
// 0.0-1.0 of the ADC full scale; Millis is the capture time in
// milliseconds since the device was opened.
type Sample struct {
	Red    float64
	IR     float64
	Millis float64
}

// Device defines a MAX30102 device.
type Device struct {
	dev   *i2c.Dev
	bus   i2c.BusCloser
	log   *zap.Logger
	epoch time.Time
	rate  float64
}

// New returns a new MAX30102 device in SpO2 mode with a 2.8mA pulse
// amplitude on both LEDs, a 411us pulse width and 100 samples/s.
//
// Argument "busName" selects the I²C bus ("/dev/i2c-2", "I2C2", "2");
// an empty string picks the first available bus. Argument "addr"
// overrides the default device address (0x57) when non-zero.
func New(busName string, addr uint16, log *zap.Logger) (*Device, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("max30102: could not initialize host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("max30102: could not open I2C bus: %w", err)
	}

	if addr == 0 {
		addr = Addr
	}

	d := &Device{
		dev:   &i2c.Dev{Addr: addr, Bus: bus},
		bus:   bus,
		log:   log,
		epoch: time.Now(),
		rate:  srHz[SR100],
	}

	part, err := d.Read(RegPartID)
	if err != nil {
		return nil, fmt.Errorf("max30102: could not get part ID: %w", err)
	}
	if part != PartID {
		return nil, ErrNotDevice
	}

	if err := d.Reset(); err != nil {
		return nil, fmt.Errorf("max30102: could not reset device: %w", err)
	}
	if _, err := d.Options(
		RedPulseAmp(2.8),
		IRPulseAmp(2.8),
		PulseWidth(PW411),
		SampleRate(SR100),
		InterruptEnable(NewFIFOData|AlmostFull),
		AlmostFullValue(0),
		Mode(ModeSpO2),
	); err != nil {
		return nil, fmt.Errorf("max30102: could not initialize device: %w", err)
	}
	if err := d.drain(); err != nil {
		return nil, fmt.Errorf("max30102: could not empty FIFO: %w", err)
	}

	return d, nil
}

// Close shuts the device down and closes the bus.
func (d *Device) Close() {
	d.Shutdown()
	d.bus.Close()
}

// RevID returns the revision ID of the device.
func (d *Device) RevID() (byte, error) {
	rev, err := d.Read(RegRevID)
	if err != nil {
		return 0, fmt.Errorf("max30102: could not get revision ID: %w", err)
	}
	return rev, nil
}

// Next blocks until the sensor reports new FIFO data and returns one
// timestamped sample.
func (d *Device) Next() (Sample, error) {
	if err := d.waitUntil(IntStat1, NewFIFOData, 1); err != nil {
		return Sample{}, err
	}

	red, ir, err := d.readPair()
	if err != nil {
		return Sample{}, err
	}

	return Sample{
		Red:    red,
		IR:     ir,
		Millis: d.millis(),
	}, nil
}

// Batch drains the FIFO after waiting for the almost-full interrupt
// and returns its contents. Individual sample timestamps are spaced
// backwards from read time by the configured sample rate, since the
// FIFO does not record them.
func (d *Device) Batch() ([]Sample, error) {
	if err := d.waitUntil(IntStat1, AlmostFull, 1); err != nil {
		return nil, fmt.Errorf("max30102: error waiting for almost full interrupt: %w", err)
	}

	n, err := d.available()
	if err != nil {
		return nil, fmt.Errorf("max30102: error reading available data: %w", err)
	}

	now := d.millis()
	step := 1000 / d.rate
	samples := make([]Sample, n)
	for i := 0; i < n; i++ {
		red, ir, err := d.readPair()
		if err != nil {
			return nil, err
		}
		samples[i] = Sample{
			Red:    red,
			IR:     ir,
			Millis: now - float64(n-1-i)*step,
		}
	}

	return samples, nil
}

// AutoTune steps up the LED currents until both channels read above
// the given mean level (0.0-1.0), so a finger on the sensor lands in
// the usable range of the ADC.
func (d *Device) AutoTune(level float64) error {
	irAmp := 0.0
	redAmp := 0.0

	if _, err := d.Options(IRPulseAmp(irAmp), RedPulseAmp(redAmp)); err != nil {
		return fmt.Errorf("max30102: could not tune LED current: %w", err)
	}

	var batch []Sample
	for channelMean(batch, func(s Sample) float64 { return s.IR }) < level {
		if irAmp >= 5 {
			break
		}
		irAmp += 0.5

		if _, err := d.Options(IRPulseAmp(irAmp)); err != nil {
			return fmt.Errorf("max30102: could not tune LED current: %w", err)
		}
		time.Sleep(40 * time.Millisecond)

		var err error
		if batch, err = d.Batch(); err != nil {
			return fmt.Errorf("max30102: could not tune LED current: %w", err)
		}
	}

	batch = nil
	for channelMean(batch, func(s Sample) float64 { return s.Red }) < level {
		if redAmp >= 5 {
			break
		}
		redAmp += 0.5

		if _, err := d.Options(RedPulseAmp(redAmp)); err != nil {
			return fmt.Errorf("max30102: could not tune LED current: %w", err)
		}
		time.Sleep(40 * time.Millisecond)

		var err error
		if batch, err = d.Batch(); err != nil {
			return fmt.Errorf("max30102: could not tune LED current: %w", err)
		}
	}

	d.log.Info("LED currents tuned",
		zap.Float64("ir_ma", irAmp),
		zap.Float64("red_ma", redAmp))

	return nil
}

// Temperature returns the current die temperature of the device.
func (d *Device) Temperature() (float64, error) {
	if err := d.Write(TempCfg, TempEna); err != nil {
		return 0, fmt.Errorf("max30102: could not enable temperature: %w", err)
	}
	if err := d.waitUntil(TempCfg, TempEna, 0); err != nil {
		return 0, err
	}

	i, err := d.Read(TempInt)
	if err != nil {
		return 0, fmt.Errorf("max30102: could not read integer part of temperature: %w", err)
	}
	f, err := d.Read(TempFrac)
	if err != nil {
		return 0, fmt.Errorf("max30102: could not read fractional part of temperature: %w", err)
	}

	return float64(int8(i)) + (float64(f) * 0.0625), nil
}

// Reset resets the device. All configurations, thresholds, and data
// registers are reset to their power-on state.
func (d *Device) Reset() error {
	if err := d.Write(ModeCfg, ResetControl); err != nil {
		return fmt.Errorf("max30102: could not reset: %w", err)
	}
	if err := d.waitUntil(ModeCfg, ResetControl, 0); err != nil {
		return fmt.Errorf("max30102: could not reset: %w", err)
	}
	return nil
}

// Shutdown sets the device into power-save mode.
func (d *Device) Shutdown() error {
	_, err := d.config(ModeCfg, ^modeSHDN, modeSHDN)
	return err
}

// Startup wakes the device from power-save mode.
func (d *Device) Startup() error {
	_, err := d.config(ModeCfg, ^modeSHDN, ^modeSHDN)
	return err
}

// Read reads a single byte from a register.
func (d *Device) Read(reg byte) (byte, error) {
	b := make([]byte, 1)
	if err := d.dev.Tx([]byte{reg}, b); err != nil {
		return 0, fmt.Errorf("max30102: could not read byte: %w", err)
	}
	return b[0], nil
}

// ReadBytes reads n bytes from a register.
func (d *Device) ReadBytes(reg byte, n int) ([]byte, error) {
	b := make([]byte, n)
	if err := d.dev.Tx([]byte{reg}, b); err != nil {
		return nil, fmt.Errorf("max30102: could not read %d bytes: %w", n, err)
	}
	return b, nil
}

// Write writes a byte to a register.
func (d *Device) Write(reg, data byte) error {
	n, err := d.dev.Write([]byte{reg, data})
	if err != nil {
		return err
	}
	n-- // remove register write
	if n != 1 {
		return fmt.Errorf("write: wrong number of bytes written: want %d, got %d", 1, n)
	}
	return nil
}

// readPair reads one FIFO entry. The FIFO stores the red channel
// first, then IR, three bytes each with the two top bits masked off.
func (d *Device) readPair() (red, ir float64, err error) {
	const msbMask byte = 0b0000_0011

	bytes, err := d.ReadBytes(FIFOData, 6)
	if err != nil {
		return 0, 0, err
	}

	red = float64(
		int(bytes[0]&msbMask)<<16|
			int(bytes[1])<<8|
			int(bytes[2])) / maxADC
	ir = float64(
		int(bytes[3]&msbMask)<<16|
			int(bytes[4])<<8|
			int(bytes[5])) / maxADC

	return red, ir, nil
}

func (d *Device) waitUntil(reg, flag byte, bit byte) error {
	switch bit {
	case 1:
		for {
			state, err := d.Read(reg)
			if err != nil {
				return fmt.Errorf("could not wait for %v in %v to be %v", flag, reg, bit)
			} else if state&flag != 0 {
				return nil
			}
		}
	case 0:
		for {
			if state, err := d.Read(reg); err != nil {
				return fmt.Errorf("could not wait for %v in %v to be %v", flag, reg, bit)
			} else if state&flag == 0 {
				return nil
			}
		}
	}
	return fmt.Errorf("invalid bit %v, it should be 1 or 0", bit)
}

func (d *Device) drain() error {
	n, err := d.available()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if _, err := d.ReadBytes(FIFOData, 6); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) available() (int, error) {
	wr, err := d.Read(FIFOWrPtr)
	if err != nil {
		return 0, err
	}
	rd, err := d.Read(FIFORdPtr)
	if err != nil {
		return 0, err
	}

	if wr == rd {
		return fifoDepth, nil
	}
	return (int(wr) + fifoDepth - int(rd)) % fifoDepth, nil
}

func (d *Device) millis() float64 {
	return float64(time.Since(d.epoch).Nanoseconds()) / 1e6
}

func channelMean(samples []Sample, get func(Sample) float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += get(s)
	}
	return sum / float64(len(samples))
}
