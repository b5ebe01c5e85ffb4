package service

import "context"

// Notifier delivers account lifecycle notifications. Callers treat it as
// best-effort and never fail a request because of it.
type Notifier interface {
	NotifyRegistered(ctx context.Context, email, name string) error
	NotifyDeleted(ctx context.Context, email, name string) error
}

// Mailer sends a single plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
