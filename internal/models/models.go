package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Tenant represents a shop registered in the global tenant directory
type Tenant struct {
	TenantID  int64     `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Order is the order header, stored in the tenant's orders table
type Order struct {
	OrderID       int64           `db:"order_id" json:"order_id"`
	BranchID      int64           `db:"branch_id" json:"branch_id"`
	CustomerID    int64           `db:"customer_id" json:"customer_id"`
	Owner         string          `db:"owner" json:"owner"`
	StitchingType string          `db:"stitching_type" json:"stitching_type"`
	Status        string          `db:"status" json:"status"`
	Estimation    decimal.Decimal `db:"estimation" json:"estimation"`
	Advance       decimal.Decimal `db:"advance" json:"advance"`
	Discount      decimal.Decimal `db:"discount" json:"discount"`
	GST           decimal.Decimal `db:"gst" json:"gst"`
	DeliveryDate  string          `db:"delivery_date" json:"delivery_date"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem represents one garment line in an order
type OrderItem struct {
	OrderItemID   int64  `db:"order_item_id" json:"order_item_id"`
	OrderID       int64  `db:"order_id" json:"order_id"`
	DressTypeID   int64  `db:"dress_type_id" json:"dress_type_id"`
	DressName     string `db:"dress_name" json:"dress_name"`
	Quantity      int    `db:"quantity" json:"quantity"`
	DeliveryDate  string `db:"delivery_date" json:"delivery_date"`
	Notes         string `db:"notes" json:"notes"`
	MeasurementID int64  `db:"measurement_id" json:"measurement_id"`
	PatternID     int64  `db:"pattern_id" json:"pattern_id"`
}

// Measurements is a flat bag of numeric body measurements, stored as JSONB
type Measurements map[string]float64

// Value implements driver.Valuer
func (m Measurements) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *Measurements) Scan(src interface{}) error {
	return scanJSON(src, m)
}

// PatternSelections maps a pattern category to the selected pattern names,
// stored as JSONB
type PatternSelections map[string][]string

// Value implements driver.Valuer
func (p PatternSelections) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner
func (p *PatternSelections) Scan(src interface{}) error {
	return scanJSON(src, p)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}

// OrderItemMeasurement holds the measurement bag for one order item.
// Rows are addressed by the (order_id, order_item_id) composite key.
type OrderItemMeasurement struct {
	MeasurementID int64        `db:"measurement_id" json:"measurement_id"`
	OrderID       int64        `db:"order_id" json:"order_id"`
	OrderItemID   int64        `db:"order_item_id" json:"order_item_id"`
	Values        Measurements `db:"measurements" json:"values"`
}

// OrderItemPattern holds the pattern selections for one order item,
// addressed by the same (order_id, order_item_id) composite key.
type OrderItemPattern struct {
	PatternID   int64             `db:"pattern_id" json:"pattern_id"`
	OrderID     int64             `db:"order_id" json:"order_id"`
	OrderItemID int64             `db:"order_item_id" json:"order_item_id"`
	Selections  PatternSelections `db:"selections" json:"selections"`
}

// OrderAdditionalCost is a named extra charge on an order, anchored to a
// representative order item
type OrderAdditionalCost struct {
	AdditionalCostID int64           `db:"additional_cost_id" json:"additional_cost_id"`
	OrderID          int64           `db:"order_id" json:"order_id"`
	OrderItemID      int64           `db:"order_item_id" json:"order_item_id"`
	Name             string          `db:"name" json:"name"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
}

// Customer is read-only here; owned by the customer subsystem
type Customer struct {
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	Name       string    `db:"name" json:"name"`
	Mobile     string    `db:"mobile" json:"mobile"`
	Email      string    `db:"email" json:"email"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Role is a per-tenant role definition, seeded on first use
type Role struct {
	RoleID int64  `db:"role_id" json:"role_id"`
	Name   string `db:"name" json:"name"`
}

// OrderAudit is one audit-trail record for an order mutation
type OrderAudit struct {
	AuditID    int64     `db:"audit_id" json:"audit_id"`
	OrderID    int64     `db:"order_id" json:"order_id"`
	Action     string    `db:"action" json:"action"`
	Status     string    `db:"status" json:"status"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

// Order statuses
const (
	OrderStatusReceived   = "received"
	OrderStatusInProgress = "in-progress"
	OrderStatusCompleted  = "completed"
	OrderStatusDelivered  = "delivered"
)

// Tenant statuses
const (
	TenantStatusActive   = "active"
	TenantStatusInactive = "inactive"
)
