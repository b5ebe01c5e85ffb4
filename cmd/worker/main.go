package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/user-service/adapters/event"
	"github.com/khoahotran/user-service/adapters/mail"
	"github.com/khoahotran/user-service/internal/application/service"
	"github.com/khoahotran/user-service/internal/application/usecase/notification"
	"github.com/khoahotran/user-service/internal/config"
	"github.com/khoahotran/user-service/pkg/logger"
	"github.com/khoahotran/user-service/pkg/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	appLogger := logger.NewZapLogger(cfg.App.Env).With(zap.String("component", "worker"))
	defer appLogger.Sync()

	if len(cfg.Kafka.Brokers) == 0 {
		appLogger.Fatal("Kafka brokers are not configured", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewTracerProvider(cfg, appLogger, "user-service-worker")
	if err != nil {
		appLogger.Fatal("Cannot init tracer provider", err)
	}
	if tp != nil {
		defer tp.Shutdown(context.Background())
	}

	// Mailer
	var mailer service.Mailer
	if cfg.SMTP.Host == "" {
		mailer = mail.NewLogMailer(appLogger)
	} else {
		mailer, err = mail.NewSMTPMailer(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Cannot init SMTP mailer", err)
		}
	}

	// Worker Use Case
	processUserEventUC := notification.NewProcessUserEventUseCase(
		mail.NewMailNotifier(mailer),
		notification.RetryPolicy{Attempts: 3, Backoff: 2 * time.Second},
		appLogger,
	)

	// Kafka Consumer
	userConsumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    event.TopicUserEvents,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer userConsumer.Close()

	appLogger.Info("Worker listening", zap.String("topic", event.TopicUserEvents), zap.String("group_id", cfg.Kafka.GroupID))

	for {
		msg, err := userConsumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			appLogger.Error("Failed to read message from Kafka", err)
			continue
		}

		msgLogger := appLogger.With(zap.String("topic", msg.Topic), zap.Int64("offset", msg.Offset))

		var payload event.UserEventPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			msgLogger.Error("Failed to unmarshal event, skipping", err)
			commitMessage(ctx, userConsumer, msg, msgLogger)
			continue
		}

		msgLogger.Info("Processing event", zap.String("event_type", string(payload.EventType)))

		if err := processUserEventUC.Execute(ctx, payload); err != nil {
			if ctx.Err() != nil {
				break
			}
			// Retries are exhausted; the event is logged and committed.
			msgLogger.Error("Dropping event after failed notification", err,
				zap.String("event_type", string(payload.EventType)),
				zap.String("email", payload.Email),
				zap.Int("partition", msg.Partition),
			)
		}

		commitMessage(ctx, userConsumer, msg, msgLogger)
	}

	appLogger.Info("Worker stopped")
}

func commitMessage(ctx context.Context, consumer *kafka.Reader, msg kafka.Message, log logger.Logger) {
	if err := consumer.CommitMessages(ctx, msg); err != nil {
		log.Error("Failed to commit message", err)
	}
}
