package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const defaultSubject = "storysite.refresh"

// Event is the wire payload published after each refresh run.
type Event struct {
	ID        string    `json:"id"`
	Outcome   string    `json:"outcome"`
	Version   string    `json:"version"`
	Failed    []string  `json:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NATSPublisher publishes refresh events to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSPublisher connects to NATS and returns a publisher. subject may be
// empty, in which case the default subject is used.
func NewNATSPublisher(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if subject == "" {
		subject = defaultSubject
	}

	conn, err := nats.Connect(url,
		nats.Name("storysite"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	logger.Info("NATS refresh publisher connected",
		slog.String("url", url), slog.String("subject", subject))
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}, nil
}

// PublishRefresh publishes the refresh result as a JSON event.
func (p *NATSPublisher) PublishRefresh(ctx context.Context, res Result) error {
	evt := Event{
		ID:        uuid.NewString(),
		Outcome:   res.Outcome,
		Version:   res.Version,
		Failed:    res.Failed,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode refresh event: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish refresh event: %w", err)
	}
	return nil
}

// Close drains the connection so queued events are flushed.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("NATS drain failed", slog.String("error", err.Error()))
	}
}

var _ Publisher = (*NATSPublisher)(nil)
