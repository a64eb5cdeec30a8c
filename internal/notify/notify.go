// Package notify delivers absence alerts to guardians and summary mails to
// staff. The WhatsApp path talks to the Twilio messaging API; console
// implementations exist for demo mode and tests.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/campuskit/facemark/internal/config"
	"github.com/campuskit/facemark/internal/logger"
	"github.com/campuskit/facemark/internal/store"
)

// Notifier sends one absence alert for a subject.
type Notifier interface {
	NotifyAbsence(ctx context.Context, sub store.Student, date string) error
}

// AbsenceMessage renders the alert body sent to a guardian.
func AbsenceMessage(sub store.Student, date string) string {
	return fmt.Sprintf(
		"Attendance Alert\nDear Parent,\n\nYour ward *%s*\nID: %s | Class: %s\n\nwas marked *ABSENT* on %s.\n\nPlease contact the college if needed.",
		sub.FullName, sub.SubjectID, sub.GroupLabel, date)
}

// ConsoleNotifier logs alerts instead of sending them. Used when no
// messaging credentials are configured.
type ConsoleNotifier struct {
	Log *logger.Logger
}

func (c *ConsoleNotifier) NotifyAbsence(ctx context.Context, sub store.Student, date string) error {
	c.Log.Info("absence alert (console mode) for %s <%s> on %s", sub.FullName, sub.Phone, date)
	return nil
}

// WhatsAppNotifier sends alerts through the Twilio messaging REST API.
type WhatsAppNotifier struct {
	accountSID  string
	authToken   string
	from        string
	countryCode string
	client      *http.Client
	baseURL     string
}

// NewWhatsAppNotifier validates the credential set and builds a notifier.
func NewWhatsAppNotifier(cfg *config.NotifyConfig) (*WhatsAppNotifier, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return nil, fmt.Errorf("whatsapp notifier requires account SID, auth token and from number")
	}
	return &WhatsAppNotifier{
		accountSID:  cfg.AccountSID,
		authToken:   cfg.AuthToken,
		from:        cfg.FromNumber,
		countryCode: cfg.CountryCode,
		client:      &http.Client{Timeout: 15 * time.Second},
		baseURL:     "https://api.twilio.com",
	}, nil
}

func (w *WhatsAppNotifier) NotifyAbsence(ctx context.Context, sub store.Student, date string) error {
	phone, ok := CleanPhone(sub.Phone, w.countryCode)
	if !ok {
		return fmt.Errorf("invalid phone number %q for %s", sub.Phone, sub.SubjectID)
	}
	to := "whatsapp:" + phone
	if to == w.from {
		return fmt.Errorf("refusing to send to the sender number itself")
	}

	form := url.Values{}
	form.Set("From", w.from)
	form.Set("To", to)
	form.Set("Body", AbsenceMessage(sub, date))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", w.baseURL, w.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build whatsapp request: %w", err)
	}
	req.SetBasicAuth(w.accountSID, w.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp alert rejected (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// FromConfig picks the notifier implementation for the configured mode.
func FromConfig(cfg *config.NotifyConfig, log *logger.Logger) (Notifier, error) {
	switch cfg.Mode {
	case "whatsapp":
		return NewWhatsAppNotifier(cfg)
	case "console", "":
		return &ConsoleNotifier{Log: log}, nil
	default:
		return nil, fmt.Errorf("unknown notify mode %q", cfg.Mode)
	}
}
