package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tailorworks/internal/models"

	"github.com/jmoiron/sqlx"
)

// OrderTables holds the resolved physical names of every collection touched
// by an order transaction.
type OrderTables struct {
	Orders          string
	Items           string
	Measurements    string
	Patterns        string
	AdditionalCosts string
	Customers       string
}

// ResolveOrderTables resolves all collections an order write or read touches
// for the given tenant.
func (s *Store) ResolveOrderTables(ctx context.Context, tenantID int64) (*OrderTables, error) {
	var t OrderTables
	for _, binding := range []struct {
		kind Kind
		dst  *string
	}{
		{KindOrders, &t.Orders},
		{KindOrderItems, &t.Items},
		{KindMeasurements, &t.Measurements},
		{KindPatterns, &t.Patterns},
		{KindAdditionalCosts, &t.AdditionalCosts},
		{KindCustomers, &t.Customers},
	} {
		col, err := s.registry.Resolve(ctx, binding.kind, tenantID)
		if err != nil {
			return nil, err
		}
		*binding.dst = col.Name
	}
	return &t, nil
}

// InsertOrder writes the order header within the transaction scope
func (s *Store) InsertOrder(ctx context.Context, tx *sqlx.Tx, table string, order *models.Order) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (order_id, branch_id, customer_id, owner, stitching_type, status,
			estimation, advance, discount, gst, delivery_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`, table)

	return tx.GetContext(ctx, order, query,
		order.OrderID, order.BranchID, order.CustomerID, order.Owner,
		order.StitchingType, order.Status, order.Estimation, order.Advance,
		order.Discount, order.GST, order.DeliveryDate)
}

// UpdateOrder overwrites the order header fields in place
func (s *Store) UpdateOrder(ctx context.Context, tx *sqlx.Tx, table string, order *models.Order) error {
	query := fmt.Sprintf(`
		UPDATE %s SET branch_id = $2, customer_id = $3, owner = $4, stitching_type = $5,
			status = $6, estimation = $7, advance = $8, discount = $9, gst = $10,
			delivery_date = $11, updated_at = NOW()
		WHERE order_id = $1
		RETURNING created_at, updated_at`, table)

	err := tx.GetContext(ctx, order, query,
		order.OrderID, order.BranchID, order.CustomerID, order.Owner,
		order.StitchingType, order.Status, order.Estimation, order.Advance,
		order.Discount, order.GST, order.DeliveryDate)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", models.ErrOrderNotFound, order.OrderID)
	}
	return err
}

// OrderExists checks for the order header outside any transaction
func (s *Store) OrderExists(ctx context.Context, table string, orderID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE order_id = $1)", table), orderID)
	return exists, err
}

// GetOrder retrieves an order header by id
func (s *Store) GetOrder(ctx context.Context, table string, orderID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		fmt.Sprintf("SELECT * FROM %s WHERE order_id = $1", table), orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", models.ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// InsertOrderItem writes one garment line within the transaction scope
func (s *Store) InsertOrderItem(ctx context.Context, tx *sqlx.Tx, table string, item *models.OrderItem) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (order_item_id, order_id, dress_type_id, dress_name, quantity,
			delivery_date, notes, measurement_id, pattern_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, table)

	_, err := tx.ExecContext(ctx, query,
		item.OrderItemID, item.OrderID, item.DressTypeID, item.DressName,
		item.Quantity, item.DeliveryDate, item.Notes, item.MeasurementID, item.PatternID)
	return err
}

// UpdateOrderItem updates one garment line matched by its composite key.
// An update, never an upsert: the row must already exist.
func (s *Store) UpdateOrderItem(ctx context.Context, tx *sqlx.Tx, table string, item *models.OrderItem) error {
	query := fmt.Sprintf(`
		UPDATE %s SET dress_type_id = $3, dress_name = $4, quantity = $5,
			delivery_date = $6, notes = $7, measurement_id = $8, pattern_id = $9
		WHERE order_id = $1 AND order_item_id = $2`, table)

	res, err := tx.ExecContext(ctx, query,
		item.OrderID, item.OrderItemID, item.DressTypeID, item.DressName,
		item.Quantity, item.DeliveryDate, item.Notes, item.MeasurementID, item.PatternID)
	if err != nil {
		return err
	}
	return requireRow(res, "order item", item.OrderItemID)
}

// InsertMeasurement writes an item's measurement bag within the transaction scope
func (s *Store) InsertMeasurement(ctx context.Context, tx *sqlx.Tx, table string, m *models.OrderItemMeasurement) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (measurement_id, order_id, order_item_id, measurements)
		VALUES ($1, $2, $3, $4)`, table)

	_, err := tx.ExecContext(ctx, query, m.MeasurementID, m.OrderID, m.OrderItemID, m.Values)
	return err
}

// UpdateMeasurement replaces an item's measurement bag, matched strictly by
// the (order_id, order_item_id) composite key
func (s *Store) UpdateMeasurement(ctx context.Context, tx *sqlx.Tx, table string, m *models.OrderItemMeasurement) error {
	query := fmt.Sprintf(`
		UPDATE %s SET measurements = $3
		WHERE order_id = $1 AND order_item_id = $2`, table)

	res, err := tx.ExecContext(ctx, query, m.OrderID, m.OrderItemID, m.Values)
	if err != nil {
		return err
	}
	return requireRow(res, "measurement", m.MeasurementID)
}

// InsertPattern writes an item's pattern selections within the transaction scope
func (s *Store) InsertPattern(ctx context.Context, tx *sqlx.Tx, table string, p *models.OrderItemPattern) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (pattern_id, order_id, order_item_id, selections)
		VALUES ($1, $2, $3, $4)`, table)

	_, err := tx.ExecContext(ctx, query, p.PatternID, p.OrderID, p.OrderItemID, p.Selections)
	return err
}

// UpdatePattern replaces an item's pattern selections by composite key
func (s *Store) UpdatePattern(ctx context.Context, tx *sqlx.Tx, table string, p *models.OrderItemPattern) error {
	query := fmt.Sprintf(`
		UPDATE %s SET selections = $3
		WHERE order_id = $1 AND order_item_id = $2`, table)

	res, err := tx.ExecContext(ctx, query, p.OrderID, p.OrderItemID, p.Selections)
	if err != nil {
		return err
	}
	return requireRow(res, "pattern", p.PatternID)
}

// InsertAdditionalCost writes one extra charge within the transaction scope
func (s *Store) InsertAdditionalCost(ctx context.Context, tx *sqlx.Tx, table string, c *models.OrderAdditionalCost) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (additional_cost_id, order_id, order_item_id, name, amount)
		VALUES ($1, $2, $3, $4, $5)`, table)

	_, err := tx.ExecContext(ctx, query,
		c.AdditionalCostID, c.OrderID, c.OrderItemID, c.Name, c.Amount)
	return err
}

// DeleteAdditionalCosts removes every extra charge for the order. Updates
// replace the full set rather than diffing it.
func (s *Store) DeleteAdditionalCosts(ctx context.Context, tx *sqlx.Tx, table string, orderID int64) error {
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE order_id = $1", table), orderID)
	return err
}

// InsertAudit appends one audit-trail record for an order mutation
func (s *Store) InsertAudit(ctx context.Context, tenantID int64, audit *models.OrderAudit) error {
	col, err := s.registry.Resolve(ctx, KindOrderAudit, tenantID)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (order_id, action, status) VALUES ($1, $2, $3)", col.Name),
		audit.OrderID, audit.Action, audit.Status)
	return err
}

func requireRow(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d has no existing row", models.ErrMissingIdentifiers, entity, id)
	}
	return nil
}
