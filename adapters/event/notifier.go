package event

import (
	"context"
	"time"

	"github.com/khoahotran/user-service/internal/application/service"
)

// KafkaNotifier hands notifications to the worker through the user events
// topic instead of mailing from the request path.
type KafkaNotifier struct {
	producer *KafkaProducerClient
}

var _ service.Notifier = (*KafkaNotifier)(nil)

func NewKafkaNotifier(producer *KafkaProducerClient) *KafkaNotifier {
	return &KafkaNotifier{producer: producer}
}

func (n *KafkaNotifier) NotifyRegistered(ctx context.Context, email, name string) error {
	return n.publish(ctx, UserEventTypeRegistered, email, name)
}

func (n *KafkaNotifier) NotifyDeleted(ctx context.Context, email, name string) error {
	return n.publish(ctx, UserEventTypeDeleted, email, name)
}

func (n *KafkaNotifier) publish(ctx context.Context, eventType UserEventType, email, name string) error {
	return n.producer.PublishUserEvent(ctx, UserEventPayload{
		EventType:  eventType,
		Email:      email,
		Name:       name,
		OccurredAt: time.Now().UTC(),
	})
}
