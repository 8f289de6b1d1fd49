package mail

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Message is an outbound HTML email.
type Message struct {
	To      string `json:"to"`
	ToName  string `json:"toName"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Mailer delivers email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them. It is
// used when no SMTP server is configured.
type LogMailer struct{}

// Send logs the message.
func (LogMailer) Send(_ context.Context, msg Message) error {
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("Email not delivered (no SMTP host configured)")
	log.Debug().Str("to", msg.To).Str("html", msg.HTML).Msg("Email body")
	return nil
}
