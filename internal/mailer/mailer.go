package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/bazzarnet/support-service/internal/config"
)

// Sender delivers a single email with plaintext and HTML bodies. It may
// fail independently of any persistence the caller performed.
type Sender interface {
	Send(ctx context.Context, to, subject, plainText, htmlBody string) error
}

// SendGridSender sends email through the SendGrid API.
type SendGridSender struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendGrid builds a SendGrid-backed sender.
func NewSendGrid(cfg config.MailConfig) (*SendGridSender, error) {
	if cfg.SendGridAPIKey == "" || cfg.FromEmail == "" {
		return nil, fmt.Errorf("incomplete mail config: api key and from email required")
	}
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
	}, nil
}

// Send delivers the message, treating any non-2xx API response as failure.
func (s *SendGridSender) Send(ctx context.Context, to, subject, plainText, htmlBody string) error {
	msg := sgmail.NewSingleEmail(s.from, subject, sgmail.NewEmail("", to), plainText, htmlBody)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogSender logs outbound mail instead of delivering it. Used when no
// SendGrid key is configured, typically in development.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds the logging fallback sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to, subject, plainText, _ string) error {
	s.logger.Info("mail (log only)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", plainText))
	return nil
}
