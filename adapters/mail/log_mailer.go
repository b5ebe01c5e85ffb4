package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/khoahotran/user-service/internal/application/service"
	"github.com/khoahotran/user-service/pkg/logger"
)

type logMailer struct {
	logger logger.Logger
}

// NewLogMailer writes outgoing mail to the log. Used when SMTP is not configured.
func NewLogMailer(log logger.Logger) service.Mailer {
	return &logMailer{logger: log}
}

func (m *logMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("Mail not sent, SMTP disabled",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_length", len(body)),
	)
	return nil
}
