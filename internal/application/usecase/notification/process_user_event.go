package notification

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/user-service/adapters/event"
	"github.com/khoahotran/user-service/internal/application/service"
	"github.com/khoahotran/user-service/pkg/logger"
)

var tracer = otel.Tracer("notification_usecase")

// RetryPolicy bounds how often a failed send is attempted. Backoff doubles
// after every failure.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// ProcessUserEventUseCase turns a consumed user event into an email.
type ProcessUserEventUseCase struct {
	notifier service.Notifier
	retry    RetryPolicy
	logger   logger.Logger
}

func NewProcessUserEventUseCase(notifier service.Notifier, retry RetryPolicy, log logger.Logger) *ProcessUserEventUseCase {
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &ProcessUserEventUseCase{notifier: notifier, retry: retry, logger: log}
}

func (uc *ProcessUserEventUseCase) Execute(ctx context.Context, payload event.UserEventPayload) error {
	ctx, span := tracer.Start(ctx, "ProcessUserEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event_type", string(payload.EventType)))

	var send func(ctx context.Context) error
	switch payload.EventType {
	case event.UserEventTypeRegistered:
		send = func(ctx context.Context) error { return uc.notifier.NotifyRegistered(ctx, payload.Email, payload.Name) }
	case event.UserEventTypeDeleted:
		send = func(ctx context.Context) error { return uc.notifier.NotifyDeleted(ctx, payload.Email, payload.Name) }
	default:
		uc.logger.Warn("Unknown user event type, skipping", zap.String("event_type", string(payload.EventType)))
		return nil
	}

	backoff := uc.retry.Backoff
	var err error
	for attempt := 1; attempt <= uc.retry.Attempts; attempt++ {
		if err = send(ctx); err == nil {
			return nil
		}
		span.RecordError(err)
		if attempt == uc.retry.Attempts {
			break
		}
		uc.logger.Warn("Notification failed, retrying",
			zap.String("event_type", string(payload.EventType)),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("notify %s: %w", payload.EventType, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("notify %s after %d attempts: %w", payload.EventType, uc.retry.Attempts, err)
}
