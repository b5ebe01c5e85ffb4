package mail

import (
	"context"

	"github.com/khoahotran/user-service/internal/application/service"
)

// MailNotifier sends account notifications straight through a Mailer. The
// server uses it when no Kafka brokers are configured, the worker uses it for
// every consumed event.
type MailNotifier struct {
	mailer service.Mailer
}

var _ service.Notifier = (*MailNotifier)(nil)

func NewMailNotifier(mailer service.Mailer) *MailNotifier {
	return &MailNotifier{mailer: mailer}
}

func (n *MailNotifier) NotifyRegistered(ctx context.Context, email, name string) error {
	subject, body := WelcomeEmail(name)
	return n.mailer.Send(ctx, email, subject, body)
}

func (n *MailNotifier) NotifyDeleted(ctx context.Context, email, name string) error {
	subject, body := ExitEmail(name)
	return n.mailer.Send(ctx, email, subject, body)
}
