package sendgrid

import (
	"context"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"go.uber.org/zap"
)

// LogSender only logs outgoing email. Used when no API key is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements port.EmailSender
func (s *LogSender) Send(ctx context.Context, email port.Email) error {
	s.logger.Info("Email delivery disabled, logging instead",
		zap.String("from", email.From),
		zap.Strings("to", email.To),
		zap.Strings("bcc", email.BCC),
		zap.String("subject", email.Subject),
		zap.String("text", email.Text))
	return nil
}

var _ port.EmailSender = (*LogSender)(nil)
