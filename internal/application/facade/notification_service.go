package facade

import (
	"context"
	"strings"

	"go-newsletter-sse/internal/infrastructure/hub"
	"go-newsletter-sse/internal/port/inbound"
)

// EventPublisher puts an event on the bus feeding the hub.
type EventPublisher interface {
	Publish(ctx context.Context, event hub.Event) error
}

type NotificationService struct {
	publisher EventPublisher
}

var _ inbound.NotificationUseCase = (*NotificationService)(nil)

func NewNotificationService(publisher EventPublisher) *NotificationService {
	return &NotificationService{publisher: publisher}
}

func (s *NotificationService) NotifyNewSubscriber(ctx context.Context, event inbound.NewSubscriber) error {
	event.Email = strings.ToLower(strings.TrimSpace(event.Email))
	event.Name = strings.TrimSpace(event.Name)
	if event.Source == "" {
		event.Source = "website"
	}
	return s.Publish(ctx, inbound.EventNewSubscriber, event, "")
}

func (s *NotificationService) NotifySubscriberConfirmed(ctx context.Context, event inbound.SubscriberConfirmed) error {
	event.Email = strings.ToLower(strings.TrimSpace(event.Email))
	return s.Publish(ctx, inbound.EventSubscriberConfirmed, event, "")
}

func (s *NotificationService) Publish(ctx context.Context, eventName string, payload any, eventID string) error {
	return s.publisher.Publish(ctx, hub.Event{ID: eventID, Name: eventName, Payload: payload})
}
