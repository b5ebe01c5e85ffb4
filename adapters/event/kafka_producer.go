package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/khoahotran/user-service/internal/config"
	"github.com/khoahotran/user-service/pkg/logger"
)

const (
	TopicUserEvents = "user.events"
)

// messageWriter is the part of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducerClient struct {
	UserEventsWriter messageWriter
	logger           logger.Logger
}

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	userWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicUserEvents,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}

	log.Info("Initialize Kafka Producers successfully.")

	return &KafkaProducerClient{
		UserEventsWriter: userWriter,
		logger:           log,
	}, nil
}

// PublishUserEvent writes the payload keyed by email so events for one
// account stay ordered within a partition.
func (c *KafkaProducerClient) PublishUserEvent(ctx context.Context, payload UserEventPayload) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal user event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(payload.Email),
		Value: value,
	}
	if err := c.UserEventsWriter.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish user event: %w", err)
	}
	return nil
}

func (c *KafkaProducerClient) Close() {
	if c.UserEventsWriter != nil {
		if err := c.UserEventsWriter.Close(); err != nil {
			c.logger.Error("Failed to close Kafka user events writer", err)
		}
	}
	c.logger.Info("Closed Kafka Producers")
}
