package models

import "time"

// Event types
const (
	EventTypeOrderCreated = "ORDER_CREATED"
	EventTypeOrderUpdated = "ORDER_UPDATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	TenantID  int64     `json:"tenant_id"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published after an order create transaction commits
type OrderCreatedEvent struct {
	BaseEvent
	OrderID      int64  `json:"order_id"`
	CustomerID   int64  `json:"customer_id"`
	Status       string `json:"status"`
	DeliveryDate string `json:"delivery_date"`
	ItemCount    int    `json:"item_count"`
}

// OrderUpdatedEvent published after an order update transaction commits
type OrderUpdatedEvent struct {
	BaseEvent
	OrderID      int64  `json:"order_id"`
	CustomerID   int64  `json:"customer_id"`
	Status       string `json:"status"`
	DeliveryDate string `json:"delivery_date"`
	ItemCount    int    `json:"item_count"`
}
