package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"tailorworks/internal/models"

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

// eventKey partitions by tenant and order so one order's events stay ordered
func eventKey(tenantID, orderID int64) string {
	return fmt.Sprintf("tenant-%d-order-%d", tenantID, orderID)
}

// PublishOrderCreated publishes an OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, eventKey(event.TenantID, event.OrderID), event)
}

// PublishOrderUpdated publishes an OrderUpdated event
func (ep *EventPublisher) PublishOrderUpdated(ctx context.Context, event *models.OrderUpdatedEvent) error {
	return ep.producer.PublishEvent(ctx, eventKey(event.TenantID, event.OrderID), event)
}

// EventHandler routes incoming order events to registered handlers
type EventHandler struct {
	onOrderCreated func(context.Context, *models.OrderCreatedEvent) error
	onOrderUpdated func(context.Context, *models.OrderUpdatedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderCreated registers a handler for OrderCreated events
func (eh *EventHandler) OnOrderCreated(handler func(context.Context, *models.OrderCreatedEvent) error) {
	eh.onOrderCreated = handler
}

// OnOrderUpdated registers a handler for OrderUpdated events
func (eh *EventHandler) OnOrderUpdated(handler func(context.Context, *models.OrderUpdatedEvent) error) {
	eh.onOrderUpdated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeOrderCreated:
		if eh.onOrderCreated != nil {
			var event models.OrderCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderCreated event: %w", err)
			}
			return eh.onOrderCreated(ctx, &event)
		}

	case models.EventTypeOrderUpdated:
		if eh.onOrderUpdated != nil {
			var event models.OrderUpdatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderUpdated event: %w", err)
			}
			return eh.onOrderUpdated(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
