// Package serialfeed reads paired IR/red samples from a serial
// pulse-oximetry frontend: a microcontroller that answers every
// newline trigger with one "$III,RRR\n" frame, IR channel first, three
// ASCII digits per channel.
package serialfeed

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
)

const (
	startByte = '$'
	frameLen  = 7 // "III,RRR"

	// DefaultBaud is the frontend's fixed line rate.
	DefaultBaud = 115200
)

// Source polls a serial frontend for samples. It is not safe for
// concurrent use; the capture loop is the single caller.
type Source struct {
	rw    io.ReadWriter
	port  serial.Port
	epoch time.Time
}

// Open connects to the named serial port.
func Open(name string, baud int) (*Source, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("serialfeed: could not open port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(time.Second); err != nil {
		port.Close()
		return nil, fmt.Errorf("serialfeed: could not set read timeout: %w", err)
	}

	return &Source{
		rw:    port,
		port:  port,
		epoch: time.Now(),
	}, nil
}

// Ports lists the serial ports available on this machine.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("serialfeed: could not list ports: %w", err)
	}
	return ports, nil
}

// Next triggers one capture and returns the (red, ir) pair with a
// timestamp in milliseconds since the source was opened. A garbled or
// short frame is reported with ok=false and no error; the caller skips
// it and triggers again. Errors mean the port itself failed.
func (s *Source) Next() (red, ir, millis float64, ok bool, err error) {
	if _, err := s.rw.Write([]byte{'\n'}); err != nil {
		return 0, 0, 0, false, fmt.Errorf("serialfeed: trigger failed: %w", err)
	}

	frame, err := s.readFrame()
	if err != nil {
		return 0, 0, 0, false, err
	}

	ir, red, ok = parseFrame(frame)
	return red, ir, s.millis(), ok, nil
}

// Close closes the underlying port.
func (s *Source) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

// readFrame discards bytes until the start marker, then collects up to
// a newline.
func (s *Source) readFrame() (string, error) {
	if err := s.skipToStart(); err != nil {
		return "", err
	}

	var sb strings.Builder
	b := make([]byte, 1)
	for {
		n, err := s.rw.Read(b)
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("serialfeed: read failed: %w", err)
		}
		if n == 0 || b[0] == '\n' {
			return sb.String(), nil
		}
		sb.WriteByte(b[0])

		// Runaway guard for a frontend that stops framing.
		if sb.Len() > 4*frameLen {
			return sb.String(), nil
		}
	}
}

func (s *Source) skipToStart() error {
	b := make([]byte, 1)
	for i := 0; i < 64; i++ {
		n, err := s.rw.Read(b)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("serialfeed: read failed: %w", err)
		}
		if n == 0 || b[0] == startByte {
			return nil
		}
	}
	return nil
}

// parseFrame splits an "III,RRR" frame into its two channels. Frames
// of the wrong length or with non-numeric fields are rejected.
func parseFrame(frame string) (ir, red float64, ok bool) {
	if len(frame) != frameLen {
		return 0, 0, false
	}
	parts := strings.Split(frame, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	irVal, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	redVal, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return float64(irVal), float64(redVal), true
}

func (s *Source) millis() float64 {
	return float64(time.Since(s.epoch).Nanoseconds()) / 1e6
}
