package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"iap-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishPurchaseVerified publishes a PurchaseVerified event keyed by user
// so events for one user stay ordered within a partition.
func (ep *EventPublisher) PublishPurchaseVerified(ctx context.Context, event *models.PurchaseVerifiedEvent) error {
	key := fmt.Sprintf("user-%s", event.UserID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming purchase events
type EventHandler struct {
	onPurchaseVerified func(context.Context, *models.PurchaseVerifiedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnPurchaseVerified registers a handler for PurchaseVerified events
func (eh *EventHandler) OnPurchaseVerified(handler func(context.Context, *models.PurchaseVerifiedEvent) error) {
	eh.onPurchaseVerified = handler
}

// HandleMessage routes messages to the appropriate handler
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypePurchaseVerified:
		if eh.onPurchaseVerified != nil {
			var event models.PurchaseVerifiedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PurchaseVerified event: %w", err)
			}
			return eh.onPurchaseVerified(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
