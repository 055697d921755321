package notify

import (
	"context"
	"fmt"

	"medbook/internal/config"
	"medbook/internal/logging"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender sends through the SendGrid v3 API. Any status >= 400 counts as failure.
type SendGridSender struct {
	apiKey    string
	baseURL   string
	fromEmail string
	fromName  string
	logger    zerolog.Logger
}

func NewSendGridSender(cfg config.NotificationConfig, logger *zerolog.Logger) *SendGridSender {
	fromName := cfg.FromName
	if fromName == "" {
		fromName = "Clinic Appointments"
	}
	return &SendGridSender{
		apiKey:    cfg.SendGrid.APIKey,
		fromEmail: cfg.FromEmail,
		fromName:  fromName,
		logger:    logging.Component(logger, "notify_sendgrid"),
	}
}

func (s *SendGridSender) Send(ctx context.Context, to, subject, body string) bool {
	if err := s.send(ctx, to, subject, body); err != nil {
		s.logger.Error().Err(err).Str("to", logging.MaskEmail(to)).Msg("sendgrid send failed")
		return false
	}
	s.logger.Info().Str("to", logging.MaskEmail(to)).Str("subject", subject).Msg("email sent via sendgrid")
	return true
}

func (s *SendGridSender) send(ctx context.Context, to, subject, body string) error {
	if s.apiKey == "" {
		return fmt.Errorf("sendgrid api key not configured")
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	message := mail.NewV3MailInit(from, subject, mail.NewEmail("", to), mail.NewContent("text/plain", body))

	// The client keeps the request body on itself, so each send gets its own.
	client := sendgrid.NewSendClient(s.apiKey)
	if s.baseURL != "" {
		client.Request.BaseURL = s.baseURL
	}

	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}
