package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

// EmailSender delivers a single email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one outbound mail. Urgent mail carries priority headers;
// Category is reported to the provider for delivery analytics.
type EmailMessage struct {
	To       string
	ToName   string
	Subject  string
	Body     string
	HTML     string
	Urgent   bool
	Category string
}

// ErrEmailDisabled is returned by StubEmailSender.
var ErrEmailDisabled = errors.New("notify: email delivery disabled")

// DefaultFromName is the sender name on SOS mail.
const DefaultFromName = "PsyCare SOS"

// urgentHeaders mark mail as highest priority in common clients.
var urgentHeaders = []struct{ name, value string }{
	{"X-Priority", "1 (Highest)"},
	{"Importance", "high"},
	{"Priority", "urgent"},
}

func (m EmailMessage) htmlOrBody() string {
	if m.HTML != "" {
		return m.HTML
	}
	return m.Body
}

// SendGridSender delivers SOS mail through the SendGrid v3 API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = DefaultFromName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return errors.New("notify: sendgrid client not configured")
	}

	resp, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To, "urgent", msg.Urgent)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected mail", "status", resp.StatusCode, "body", resp.Body, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}

	s.logger.Info("mail sent via sendgrid", "to", msg.To, "status", resp.StatusCode, "category", msg.Category)
	return nil
}

func (s *SendGridSender) build(msg EmailMessage) *mail.SGMailV3 {
	out := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromEmail),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.To),
		msg.Body,
		msg.htmlOrBody(),
	)
	if msg.Urgent {
		for _, h := range urgentHeaders {
			out.SetHeader(h.name, h.value)
		}
	}
	if msg.Category != "" {
		out.AddCategories(msg.Category)
	}
	return out
}

// StubEmailSender logs instead of sending. Used when no provider is configured.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Warn("email provider not configured, mail not sent", "to", msg.To, "subject", msg.Subject, "urgent", msg.Urgent)
	return ErrEmailDisabled
}
