package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/khoahotran/user-service/internal/application/service"
	"github.com/khoahotran/user-service/internal/config"
	"github.com/khoahotran/user-service/pkg/logger"
)

type smtpMailer struct {
	client *gomail.Client
	from   string
	logger logger.Logger
}

func NewSMTPMailer(cfg config.Config, log logger.Logger) (service.Mailer, error) {
	if cfg.SMTP.Host == "" {
		return nil, fmt.Errorf("smtp host has not config")
	}
	if cfg.SMTP.From == "" {
		return nil, fmt.Errorf("smtp from address has not config")
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.SMTP.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.SMTP.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.SMTP.Username),
			gomail.WithPassword(cfg.SMTP.Password),
		)
	}

	client, err := gomail.NewClient(cfg.SMTP.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot init smtp client: %w", err)
	}

	log.Info("SMTP mailer initialized")
	return &smtpMailer{client: client, from: cfg.SMTP.From, logger: log}, nil
}

func buildMessage(from, to, subject, body string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	return msg, nil
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	msg, err := buildMessage(m.from, to, subject, body)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
