// Command spo2d captures paired red/IR samples from a configurable
// source, feeds them through the derivation engine and reports SpO2
// and heart rate on the log, over websocket and over NATS.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/oxiview/spo2"
	"github.com/oxiview/spo2/max30102"
	"github.com/oxiview/spo2/monitor"
	"github.com/oxiview/spo2/serialfeed"
	"github.com/oxiview/spo2/sim"
	"github.com/oxiview/spo2/stream"
)

func main() {
	configPath := flag.String("config", "spo2d.yaml", "path to config file")
	source := flag.String("source", "", "override sample source (sim, serial, max30102)")
	listPorts := flag.Bool("ports", false, "list serial ports and exit")
	flag.Parse()

	if *listPorts {
		ports, err := serialfeed.Ports()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal("configuration error", zap.Error(err))
	}
	if *source != "" {
		cfg.Source = *source
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("spo2d failed", zap.Error(err))
	}
}

func run(cfg Config, log *zap.Logger) error {
	engine, err := spo2.New(cfg.Calibration, engineOptions(cfg.Engine, log)...)
	if err != nil {
		return err
	}

	next, closeSource, err := openSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	var hub *monitor.Hub
	if cfg.Monitor.Enabled {
		hub = monitor.NewHub(log)
		go hub.Run()
		defer hub.Stop()

		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		srv := &http.Server{Addr: cfg.Monitor.Addr, Handler: mux}
		go func() {
			log.Info("monitor listening", zap.String("addr", cfg.Monitor.Addr))
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				log.Error("monitor server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	var pub *stream.Publisher
	if cfg.Stream.Enabled {
		nc, err := stream.Connect(cfg.Stream.URL)
		if err != nil {
			return err
		}
		pub = stream.NewPublisher(nc, cfg.Stream.Subject)
		defer pub.Close()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	log.Info("capture started",
		zap.String("source", cfg.Source),
		zap.Int("window", engine.WindowSize()))

	for {
		select {
		case <-stop:
			log.Info("capture stopped")
			return nil
		default:
		}

		red, ir, millis, ok, err := next()
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !engine.AddSample(red, ir, millis) {
			continue
		}

		reading, err := engine.Reading()
		if err != nil {
			log.Warn("no usable calibration", zap.Error(err))
			continue
		}

		log.Info("window complete",
			zap.Float64("r", reading.R),
			zap.Float64("spo2", reading.SpO2),
			zap.Int("heart_rate", reading.HeartRate),
			zap.Int("sps", reading.SamplesPerSecond))

		if hub != nil {
			hub.Broadcast(monitor.Message{
				Type:      "reading",
				Timestamp: time.Now(),
				Reading:   reading,
				Red:       engine.HistoryRed(),
				IR:        engine.HistoryIR(),
			})
		}
		if pub != nil {
			if err := pub.Publish(reading); err != nil {
				log.Warn("could not publish reading", zap.Error(err))
			}
		}
	}
}

// nextFunc returns one sample per call, pacing itself to the source's
// native rate. ok=false means a skippable bad frame.
type nextFunc func() (red, ir, millis float64, ok bool, err error)

func openSource(cfg Config, log *zap.Logger) (nextFunc, func(), error) {
	switch cfg.Source {
	case "sim":
		gen := sim.New(cfg.Sim.SampleRate, cfg.Sim.BPM, cfg.Sim.Noise)
		interval := time.Duration(float64(time.Second) / gen.SampleRate())
		ticker := time.NewTicker(interval)
		next := func() (float64, float64, float64, bool, error) {
			<-ticker.C
			red, ir, millis := gen.Next()
			return red, ir, millis, true, nil
		}
		return next, ticker.Stop, nil

	case "serial":
		src, err := serialfeed.Open(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return nil, nil, err
		}
		return src.Next, func() { src.Close() }, nil

	case "max30102":
		dev, err := max30102.New(cfg.Sensor.Bus, cfg.Sensor.Addr, log)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Sensor.AutoTune {
			if err := dev.AutoTune(cfg.Sensor.Level); err != nil {
				dev.Close()
				return nil, nil, err
			}
		}
		next := func() (float64, float64, float64, bool, error) {
			s, err := dev.Next()
			if err != nil {
				return 0, 0, 0, false, err
			}
			return s.Red, s.IR, s.Millis, true, nil
		}
		return next, dev.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown sample source %q", cfg.Source)
}

func engineOptions(cfg EngineConfig, log *zap.Logger) []spo2.Option {
	opts := []spo2.Option{spo2.Logger(log)}
	if cfg.Window > 0 {
		opts = append(opts, spo2.WindowSize(cfg.Window))
	}
	if cfg.SmoothWindow > 0 {
		opts = append(opts, spo2.SmoothWindow(cfg.SmoothWindow))
	}
	if cfg.SmoothOrder > 0 {
		opts = append(opts, spo2.SmoothOrder(cfg.SmoothOrder))
	}
	if cfg.EdgeMargin > 0 {
		opts = append(opts, spo2.EdgeMargin(cfg.EdgeMargin))
	}
	if cfg.Prominence > 0 {
		opts = append(opts, spo2.Prominence(cfg.Prominence))
	}
	if cfg.Holdoff > 0 {
		opts = append(opts, spo2.Holdoff(cfg.Holdoff))
	}
	return opts
}
