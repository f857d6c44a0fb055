// Package notify announces published and reaped drafts on a message bus.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/logfields"
)

// Kinds of events.
const (
	KindPublished = "published"
	KindReaped    = "reaped"
)

// Event is the JSON document published for a draft.
type Event struct {
	Kind           string    `json:"kind"`
	Draft          string    `json:"draft"`
	URL            string    `json:"url,omitempty"`
	RunID          string    `json:"run_id,omitempty"`
	Repository     string    `json:"repository,omitempty"`
	Mode           string    `json:"mode,omitempty"`
	Uploaded       int       `json:"uploaded"`
	Deleted        int       `json:"deleted"`
	InvalidationID string    `json:"invalidation_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// NATSPublisher publishes events on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to url. The subject is suffixed with the event
// kind, e.g. docdraft.published.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("docdraft"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(0),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "connect to NATS").
			Warning().WithContext("url", url).Build()
	}
	slog.Info("NATS publisher connected", logfields.URL(url), "subject", subject)
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Subject returns the subject ev is published on.
func Subject(base string, ev Event) string {
	if ev.Kind == "" {
		return base
	}
	return base + "." + ev.Kind
}

func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := encode(ev)
	if err != nil {
		return err
	}
	subject := Subject(p.subject, ev)
	if err := p.conn.Publish(subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "publish event").
			Warning().WithContext("subject", subject).Build()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "flush NATS connection").Warning().Build()
	}
	slog.Debug("Published draft event", logfields.Draft(ev.Draft), "subject", subject)
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

func encode(ev Event) ([]byte, error) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "encode event").Build()
	}
	return data, nil
}

// NoopPublisher drops events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close()                               {}

// MemoryPublisher keeps events in memory, in the encoded form a subscriber
// would receive.
type MemoryPublisher struct {
	mu       sync.Mutex
	Subject  string
	Messages []Message
}

// Message is a recorded publication.
type Message struct {
	Subject string
	Data    []byte
}

func (m *MemoryPublisher) Publish(_ context.Context, ev Event) error {
	data, err := encode(ev)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, Message{Subject: Subject(m.Subject, ev), Data: data})
	return nil
}

func (m *MemoryPublisher) Close() {}

// Events decodes the recorded messages.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, 0, len(m.Messages))
	for _, msg := range m.Messages {
		var ev Event
		if json.Unmarshal(msg.Data, &ev) == nil {
			out = append(out, ev)
		}
	}
	return out
}
