// Package stream publishes derived oximetry readings to NATS for
// downstream processors.
package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/oxiview/spo2"
)

// DefaultSubject is the subject readings are published to when the
// configuration does not name one.
const DefaultSubject = "spo2.readings"

// Connect dials a NATS server with retry behavior suited to a capture
// daemon: it keeps reconnecting for as long as the process runs.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("spo2d"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// Publisher serializes readings onto one subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher wraps an established connection.
func NewPublisher(nc *nats.Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{nc: nc, subject: subject}
}

type payload struct {
	Timestamp time.Time    `json:"timestamp"`
	Reading   spo2.Reading `json:"reading"`
}

// Publish sends one reading. Publishing is fire-and-forget; NATS
// buffers during reconnects.
func (p *Publisher) Publish(r spo2.Reading) error {
	raw, err := json.Marshal(payload{Timestamp: time.Now(), Reading: r})
	if err != nil {
		return fmt.Errorf("stream: could not serialize reading: %w", err)
	}
	if err := p.nc.Publish(p.subject, raw); err != nil {
		return fmt.Errorf("stream: could not publish reading: %w", err)
	}
	return nil
}

// Close flushes and closes the connection.
func (p *Publisher) Close() {
	p.nc.Flush()
	p.nc.Close()
}
