// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Event types double as queue names.
const (
	TypeBallotCast     = "ballot.cast"
	TypeCodeUsed       = "code.used"
	TypeElectionClosed = "election.closed"
)

var queues = []string{TypeBallotCast, TypeCodeUsed, TypeElectionClosed}

// Event is a notification emitted after a state change has committed.
// Ballot events never name the voter code that cast them.
type Event struct {
	Type       string    `json:"type"`
	ElectionID string    `json:"election_id,omitempty"`
	ReceiptID  string    `json:"receipt_id,omitempty"`
	CodeID     string    `json:"code_id,omitempty"`
	Abstain    bool      `json:"abstain,omitempty"`
	Selections int       `json:"selections,omitempty"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Winners    []string  `json:"winners,omitempty"`
	HasTie     bool      `json:"has_tie,omitempty"`
	Threshold  bool      `json:"meets_threshold,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher delivers events. Delivery failures are reported to the caller
// but never undo the state change that produced the event.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// AMQPPublisher sends events to durable RabbitMQ queues, one queue per
// event type, through the default exchange.
type AMQPPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the event queues.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", q, err)
		}
	}

	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, "", ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// Connect returns an AMQP publisher for url, or Nop when url is empty or
// the broker cannot be reached. The returned close func is always safe to
// call.
func Connect(url string) (Publisher, func()) {
	if url == "" {
		return Nop{}, func() {}
	}

	p, err := NewAMQPPublisher(url)
	if err != nil {
		slog.Warn("event broker unavailable, events disabled", "error", err)
		return Nop{}, func() {}
	}
	return p, func() {
		if err := p.Close(); err != nil {
			slog.Warn("failed to close event publisher", "error", err)
		}
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events with the given type.
func (r *Recorder) OfType(typ string) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
