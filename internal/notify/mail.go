package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/campuskit/facemark/internal/config"
	"github.com/campuskit/facemark/internal/logger"
)

// Mailer sends one plain-text summary mail.
type Mailer interface {
	SendSummary(ctx context.Context, to, subject, body string) error
}

// ConsoleMailer logs mails instead of sending them.
type ConsoleMailer struct {
	Log *logger.Logger
}

func (c *ConsoleMailer) SendSummary(ctx context.Context, to, subject, body string) error {
	c.Log.Info("summary mail (console mode) to %s: %s", to, subject)
	return nil
}

// SendgridMailer sends summary mails through the SendGrid v3 API.
type SendgridMailer struct {
	key  string
	from *sgmail.Email
}

// NewSendgridMailer validates the key and builds a mailer.
func NewSendgridMailer(cfg *config.MailConfig) (*SendgridMailer, error) {
	if cfg.SendgridKey == "" || cfg.From == "" {
		return nil, fmt.Errorf("sendgrid mailer requires an API key and a from address")
	}
	return &SendgridMailer{
		key:  cfg.SendgridKey,
		from: sgmail.NewEmail(cfg.FromName, cfg.From),
	}, nil
}

func (s *SendgridMailer) SendSummary(ctx context.Context, to, subject, body string) error {
	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)

	p := sgmail.NewPersonalization()
	p.Subject = subject
	p.AddTos(sgmail.NewEmail("", to))
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", body))

	req := sendgrid.GetRequest(s.key, "/v3/mail/send", "https://api.sendgrid.com")
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("send summary mail: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("summary mail rejected (%d): %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// MailerFromConfig returns the SendGrid mailer when configured, otherwise the
// console fallback.
func MailerFromConfig(cfg *config.MailConfig, log *logger.Logger) Mailer {
	if m, err := NewSendgridMailer(cfg); err == nil {
		return m
	}
	return &ConsoleMailer{Log: log}
}
