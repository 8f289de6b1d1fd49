package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	// Subject is the NATS subject outbound messages are published on.
	Subject = "mail.outbound"
	// QueueGroup load-balances delivery across workers.
	QueueGroup = "mailers"
)

// QueueMailer publishes messages to NATS for a Worker to deliver.
type QueueMailer struct {
	nc *nats.Conn
}

// NewQueueMailer returns a mailer publishing on nc.
func NewQueueMailer(nc *nats.Conn) *QueueMailer {
	return &QueueMailer{nc: nc}
}

// Send publishes the message and waits for the server to acknowledge the
// flush.
func (q *QueueMailer) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding mail message: %w", err)
	}
	if err := q.nc.Publish(Subject, data); err != nil {
		return fmt.Errorf("publishing mail message: %w", err)
	}
	return q.nc.FlushWithContext(ctx)
}

// Worker consumes queued messages and delivers them with a Mailer.
type Worker struct {
	nc       *nats.Conn
	delivery Mailer
	sub      *nats.Subscription
}

// NewWorker creates a worker delivering through delivery.
func NewWorker(nc *nats.Conn, delivery Mailer) *Worker {
	return &Worker{nc: nc, delivery: delivery}
}

// Start subscribes to the outbound subject.
func (w *Worker) Start() error {
	sub, err := w.nc.QueueSubscribe(Subject, QueueGroup, w.handle)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", Subject, err)
	}
	w.sub = sub
	log.Info().Str("subject", Subject).Msg("Mail worker started")
	return nil
}

// Stop drains the subscription so in-flight messages finish.
func (w *Worker) Stop() {
	if w.sub == nil {
		return
	}
	if err := w.sub.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain mail subscription")
	}
	log.Info().Msg("Mail worker stopped")
}

func (w *Worker) handle(m *nats.Msg) {
	var msg Message
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		log.Error().Err(err).Msg("Discarding malformed mail message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.delivery.Send(ctx, msg); err != nil {
		log.Error().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("Failed to deliver email")
	}
}
