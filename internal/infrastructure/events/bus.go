// Package events carries domain events from the rest of the application to
// the streaming hub over an in-process watermill bus.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"go-newsletter-sse/internal/infrastructure/hub"
	"go-newsletter-sse/internal/infrastructure/ids"
	"go-newsletter-sse/internal/infrastructure/logger"
)

const (
	TopicNotifications = "notifications"

	MetadataEvent   = "event"
	MetadataEventID = "event_id"
)

var ErrMissingEventName = errors.New("event name is required")

// NewPubSub returns the in-process bus used between publishers and the Bridge.
func NewPubSub(log logger.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		logger.NewWatermillAdapter(log),
	)
}

// Publisher serializes domain events onto the notifications topic.
type Publisher struct {
	publisher message.Publisher
}

func NewPublisher(publisher message.Publisher) *Publisher {
	return &Publisher{publisher: publisher}
}

// Publish sends event to every bridge subscribed to the bus.
func (p *Publisher) Publish(ctx context.Context, event hub.Event) error {
	if event.Name == "" {
		return ErrMissingEventName
	}

	body, err := json.Marshal(event.Payload)
	if err != nil {
		return &hub.EncodingError{Event: event.Name, Err: err}
	}

	msg := message.NewMessage(ids.NewULID(), body)
	msg.Metadata.Set(MetadataEvent, event.Name)
	if event.ID != "" {
		msg.Metadata.Set(MetadataEventID, event.ID)
	}
	msg.SetContext(ctx)

	if err := p.publisher.Publish(TopicNotifications, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Name, err)
	}
	return nil
}
