// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Email is one outgoing message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers an Email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Config configures the Resend sender.
type Config struct {
	APIKey   string
	From     string
	FromName string
}

// New returns a Resend sender, or a LogSender when no API key is set.
func New(cfg Config, logger *zap.Logger) Sender {
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Info("mailer: no resend_api_key, emails will only be logged")
		return &LogSender{Log: logger}
	}
	return &Resend{
		client: resend.NewClient(cfg.APIKey),
		from:   formatFrom(cfg.From, cfg.FromName),
		log:    logger,
	}
}

func formatFrom(addr, name string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}

// Resend sends through the Resend HTTP API.
type Resend struct {
	client *resend.Client
	from   string
	log    *zap.Logger
}

func (s *Resend) Send(ctx context.Context, e Email) error {
	if err := validate(e); err != nil {
		return err
	}
	resp, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{e.To},
		Subject: e.Subject,
		Html:    e.HTMLBody,
		Text:    e.TextBody,
	})
	if err != nil {
		return fmt.Errorf("mailer: resend: %w", err)
	}
	s.log.Debug("email sent", zap.String("to", e.To), zap.String("id", resp.Id))
	return nil
}

// LogSender writes emails to the log instead of sending them.
type LogSender struct {
	Log *zap.Logger
}

func (s *LogSender) Send(_ context.Context, e Email) error {
	if err := validate(e); err != nil {
		return err
	}
	s.Log.Info("email (not sent)",
		zap.String("to", e.To),
		zap.String("subject", e.Subject))
	return nil
}

var errNoRecipient = errors.New("mailer: recipient is empty")

func validate(e Email) error {
	if strings.TrimSpace(e.To) == "" {
		return errNoRecipient
	}
	if e.Subject == "" {
		return errors.New("mailer: subject is empty")
	}
	return nil
}
