// Package events publishes availability transitions to a NATS JetStream subject.
//
// Publishing is a side channel: a failed publish is reported to the caller
// but never changes what was persisted or what was sent to the operator.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/restockwatch/internal/config"
	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
)

// Kind names the type of a published event.
type Kind string

const (
	KindTransition Kind = "transition"
	KindHeartbeat  Kind = "heartbeat"
)

// TransitionEvent is the JSON payload published for every state change.
type TransitionEvent struct {
	Kind      Kind      `json:"kind"`
	RunID     string    `json:"run_id"`
	Target    string    `json:"target"`
	Name      string    `json:"name,omitempty"`
	Previous  string    `json:"previous"`
	Current   string    `json:"current"`
	RuleSet   string    `json:"rule_set,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher receives transition events.
type Publisher interface {
	Publish(ctx context.Context, event TransitionEvent) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, TransitionEvent) error { return nil }
func (Noop) Close() error                                   { return nil }

// jsPublisher is the subset of jetstream.JetStream used here.
type jsPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes events to a JetStream subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jsPublisher
	subject string
	timeout time.Duration
}

// Connect dials NATS and prepares a JetStream context. The stream covering
// the subject is expected to exist already.
func Connect(cfg config.NATSConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("restockwatch"), nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryEvents, "connect to NATS").
			WithContext("url", cfg.URL).Build()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryEvents, "create JetStream context").Build()
	}
	slog.Info("NATS publisher initialized", "url", cfg.URL, "subject", cfg.Subject)
	return &NATSPublisher{conn: conn, js: js, subject: cfg.Subject, timeout: cfg.Timeout}, nil
}

func newPublisher(js jsPublisher, subject string, timeout time.Duration) *NATSPublisher {
	return &NATSPublisher{js: js, subject: subject, timeout: timeout}
}

// Publish marshals event and waits for the JetStream ack.
func (p *NATSPublisher) Publish(ctx context.Context, event TransitionEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Kind == "" {
		event.Kind = KindTransition
	}
	data, err := json.Marshal(event)
	if err != nil {
		return errors.WrapError(err, errors.CategoryEvents, "marshal event").Build()
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryEvents, fmt.Sprintf("publish to %s", p.subject)).
			Warning().WithContext("target", event.Target).Build()
	}
	slog.Debug("Published transition event", "target", event.Target, "current", event.Current)
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

// FromConfig returns a NATS publisher when enabled and Noop otherwise.
func FromConfig(cfg config.NATSConfig) (Publisher, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	return Connect(cfg)
}
