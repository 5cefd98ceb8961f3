package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"go-newsletter-sse/internal/infrastructure/hub"
	"go-newsletter-sse/internal/infrastructure/logger"
)

// Bridge forwards bus messages to the hub as broadcasts. Delivery is
// at-most-once: every message is acked whatever the outcome.
type Bridge struct {
	subscriber message.Subscriber
	target     hub.Broadcaster
	logger     logger.Logger
}

func NewBridge(subscriber message.Subscriber, target hub.Broadcaster, log logger.Logger) *Bridge {
	return &Bridge{
		subscriber: subscriber,
		target:     target,
		logger:     log.WithField("component", "event-bridge"),
	}
}

// Run consumes the notifications topic until ctx is cancelled or the bus closes.
func (b *Bridge) Run(ctx context.Context) error {
	messages, err := b.subscriber.Subscribe(ctx, TopicNotifications)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicNotifications, err)
	}

	b.logger.Infof("Forwarding %s events to the hub", TopicNotifications)
	for msg := range messages {
		b.handle(msg)
	}

	b.logger.Info("Event bridge stopped")
	return nil
}

func (b *Bridge) handle(msg *message.Message) {
	defer msg.Ack()

	name := msg.Metadata.Get(MetadataEvent)
	if name == "" {
		b.logger.Warnf("Dropping message %s without event name", msg.UUID)
		return
	}
	if !json.Valid(msg.Payload) {
		b.logger.Warnf("Dropping %s message %s with invalid JSON payload", name, msg.UUID)
		return
	}

	delivered := b.target.BroadcastEvent(hub.Event{
		ID:      msg.Metadata.Get(MetadataEventID),
		Name:    name,
		Payload: json.RawMessage(msg.Payload),
	})
	b.logger.Debugf("Event %s (%s) delivered to %d connections", name, msg.UUID, delivered)
}
