package event

import "time"

type UserEventType string

const (
	UserEventTypeRegistered UserEventType = "user.registered"
	UserEventTypeDeleted    UserEventType = "user.deleted"
)

type UserEventPayload struct {
	EventType  UserEventType `json:"event_type"`
	Email      string        `json:"email"`
	Name       string        `json:"name"`
	OccurredAt time.Time     `json:"occurred_at"`
}
