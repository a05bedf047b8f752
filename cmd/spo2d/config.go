package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration. Every field has a default; a
// config file overrides them.
type Config struct {
	Source      string        `yaml:"source"` // sim, serial or max30102
	Calibration string        `yaml:"calibration"`
	Engine      EngineConfig  `yaml:"engine"`
	Serial      SerialConfig  `yaml:"serial"`
	Sensor      SensorConfig  `yaml:"sensor"`
	Sim         SimConfig     `yaml:"sim"`
	Monitor     MonitorConfig `yaml:"monitor"`
	Stream      StreamConfig  `yaml:"stream"`
}

// EngineConfig tunes the derivation engine. Zero values keep the
// engine defaults.
type EngineConfig struct {
	Window       int     `yaml:"window"`
	SmoothWindow int     `yaml:"smoothWindow"`
	SmoothOrder  int     `yaml:"smoothOrder"`
	EdgeMargin   int     `yaml:"edgeMargin"`
	Prominence   float64 `yaml:"prominence"`
	Holdoff      int     `yaml:"holdoff"`
}

// SerialConfig selects the serial frontend.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// SensorConfig selects the I2C sensor.
type SensorConfig struct {
	Bus      string  `yaml:"bus"`
	Addr     uint16  `yaml:"addr"`
	AutoTune bool    `yaml:"autoTune"`
	Level    float64 `yaml:"level"`
}

// SimConfig tunes the synthetic signal source.
type SimConfig struct {
	SampleRate float64 `yaml:"sampleRate"`
	BPM        float64 `yaml:"bpm"`
	Noise      float64 `yaml:"noise"`
}

// MonitorConfig exposes the websocket display endpoint.
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// StreamConfig exposes the NATS publisher.
type StreamConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

func defaultConfig() Config {
	return Config{
		Source:      "sim",
		Calibration: "cal.json",
		Serial: SerialConfig{
			Baud: 115200,
		},
		Sensor: SensorConfig{
			AutoTune: true,
			Level:    0.4,
		},
		Sim: SimConfig{
			SampleRate: 100,
			BPM:        72,
			Noise:      0.02,
		},
		Monitor: MonitorConfig{
			Addr: ":8080",
		},
		Stream: StreamConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "spo2.readings",
		},
	}
}

// loadConfig reads the config file when it exists and overlays it on
// the defaults. A missing file is fine; a malformed one is not.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config file: %w", err)
	}
	return cfg, nil
}
