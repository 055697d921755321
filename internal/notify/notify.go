// Package notify delivers booking confirmations by email. Every sender reports
// success as a bool and never returns delivery errors to the caller.
package notify

import (
	"context"
	"fmt"

	"medbook/internal/config"
	"medbook/internal/domain"
	"medbook/internal/logging"

	"github.com/rs/zerolog"
)

// New builds the sender selected by notification.provider.
func New(cfg config.NotificationConfig, logger *zerolog.Logger) (domain.Notifier, error) {
	switch cfg.Provider {
	case config.NotifySMTP:
		return NewSMTPSender(cfg, logger), nil
	case config.NotifySendGrid:
		return NewSendGridSender(cfg, logger), nil
	case config.NotifyNone, "":
		return NewStubSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown notification provider %q", cfg.Provider)
	}
}

// StubSender logs the message and reports it as not sent. Used when email is disabled.
type StubSender struct {
	logger zerolog.Logger
}

func NewStubSender(logger *zerolog.Logger) *StubSender {
	return &StubSender{logger: logging.Component(logger, "notify")}
}

func (s *StubSender) Send(_ context.Context, to, subject, _ string) bool {
	s.logger.Info().Str("to", logging.MaskEmail(to)).Str("subject", subject).Msg("stub sender: email not delivered")
	return false
}
