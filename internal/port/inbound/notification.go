package inbound

import (
	"context"
	"time"
)

// Event names published by the newsletter flow.
const (
	EventNewSubscriber       = "new_subscriber"
	EventSubscriberConfirmed = "subscriber_confirmed"
)

// NewSubscriber is emitted when someone subscribes to the newsletter.
type NewSubscriber struct {
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubscriberConfirmed is emitted when a subscriber confirms their address.
type SubscriberConfirmed struct {
	Email       string    `json:"email"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// NotificationUseCase is how the rest of the application pushes events to
// connected stream clients.
type NotificationUseCase interface {
	NotifyNewSubscriber(ctx context.Context, event NewSubscriber) error
	NotifySubscriberConfirmed(ctx context.Context, event SubscriberConfirmed) error
	Publish(ctx context.Context, eventName string, payload any, eventID string) error
}
