package service

import (
	"context"
	"fmt"
	"time"

	"tailorworks/internal/broker"
	"tailorworks/internal/models"
	"tailorworks/internal/store"
	"tailorworks/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService orchestrates the multi-collection order write. A create or
// update runs as one transaction: either the whole order graph becomes
// visible or none of it does. Sequence values allocated along the way are
// never rolled back.
type OrderService struct {
	store          *store.Store
	tenants        *TenantDirectory
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
	txTimeout      time.Duration
}

// NewOrderService creates a new order service
func NewOrderService(
	st *store.Store,
	tenants *TenantDirectory,
	eventPublisher *broker.EventPublisher,
	txTimeout time.Duration,
) *OrderService {
	return &OrderService{
		store:          st,
		tenants:        tenants,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		txTimeout:      txTimeout,
	}
}

// OrderRequest is the payload for creating or updating an order
type OrderRequest struct {
	BranchID      int64           `json:"branch_id"`
	CustomerID    int64           `json:"customer_id" binding:"required"`
	Owner         string          `json:"owner"`
	StitchingType string          `json:"stitching_type"`
	Status        string          `json:"status"`
	Estimation    decimal.Decimal `json:"estimation"`
	Advance       decimal.Decimal `json:"advance"`
	Discount      decimal.Decimal `json:"discount"`
	GST           decimal.Decimal `json:"gst"`

	Items           []OrderItemRequest      `json:"items" binding:"required,min=1"`
	AdditionalCosts []AdditionalCostRequest `json:"additional_costs"`
}

// OrderItemRequest is one garment line in an order payload. On update the
// three ids must carry the values returned by the original create.
type OrderItemRequest struct {
	OrderItemID   int64 `json:"order_item_id"`
	MeasurementID int64 `json:"measurement_id"`
	PatternID     int64 `json:"pattern_id"`

	DressTypeID  int64                    `json:"dress_type_id"`
	DressName    string                   `json:"dress_name"`
	Quantity     int                      `json:"quantity"`
	DeliveryDate string                   `json:"delivery_date"`
	Notes        string                   `json:"notes"`
	Measurements models.Measurements      `json:"measurements"`
	Patterns     models.PatternSelections `json:"patterns"`
}

// AdditionalCostRequest is one extra charge entry
type AdditionalCostRequest struct {
	Name   string          `json:"name" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// OrderResult carries the persisted header and the identifiers of every
// created or updated sub-entity
type OrderResult struct {
	Order           *models.Order                `json:"order"`
	Items           []models.OrderItem           `json:"items"`
	AdditionalCosts []models.OrderAdditionalCost `json:"additional_costs"`
}

// CreateOrder writes a new order graph for the tenant
func (s *OrderService) CreateOrder(ctx context.Context, tenantID int64, req *OrderRequest) (*OrderResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	start := time.Now()
	defer func() { util.OrderWriteLatency.Observe(time.Since(start).Seconds()) }()

	if err := s.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	if err := validateOrderRequest(req); err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	tables, err := s.store.ResolveOrderTables(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	orderID, err := s.store.Sequences().NextOrderID(ctx, tenantID, tables.Orders)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.OrderStatusReceived
	}

	order := &models.Order{
		OrderID:       orderID,
		BranchID:      req.BranchID,
		CustomerID:    req.CustomerID,
		Owner:         req.Owner,
		StitchingType: req.StitchingType,
		Status:        status,
		Estimation:    req.Estimation,
		Advance:       req.Advance,
		Discount:      req.Discount,
		GST:           req.GST,
		DeliveryDate:  earliestDeliveryDate(req.Items),
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.store.BeginTx(txCtx)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("tx_unavailable").Inc()
		return nil, err
	}

	result, err := s.writeCreate(txCtx, tx, tables, tenantID, order, req)
	if err != nil {
		_ = tx.Rollback()
		util.OrdersFailedTotal.WithLabelValues("write_failed").Inc()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		util.OrdersFailedTotal.WithLabelValues("commit_failed").Inc()
		return nil, fmt.Errorf("failed to commit order %d: %w", orderID, err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("order_id", orderID),
		zap.Int("items", len(result.Items)))

	s.publish(ctx, models.EventTypeOrderCreated, tenantID, result)
	return result, nil
}

// writeCreate performs every sub-write of the create inside the transaction
// scope. Any returned error aborts the whole transaction.
func (s *OrderService) writeCreate(
	ctx context.Context,
	tx *sqlx.Tx,
	tables *store.OrderTables,
	tenantID int64,
	order *models.Order,
	req *OrderRequest,
) (*OrderResult, error) {
	if err := s.store.InsertOrder(ctx, tx, tables.Orders, order); err != nil {
		return nil, fmt.Errorf("failed to write order header: %w", err)
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, ir := range req.Items {
		item, err := s.writeCreateItem(ctx, tx, tables, tenantID, order.OrderID, ir)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	costs, err := s.writeAdditionalCosts(ctx, tx, tables, tenantID, order.OrderID, items[0].OrderItemID, req.AdditionalCosts)
	if err != nil {
		return nil, err
	}

	return &OrderResult{Order: order, Items: items, AdditionalCosts: costs}, nil
}

func (s *OrderService) writeCreateItem(
	ctx context.Context,
	tx *sqlx.Tx,
	tables *store.OrderTables,
	tenantID, orderID int64,
	ir OrderItemRequest,
) (*models.OrderItem, error) {
	seq := s.store.Sequences()

	itemID, err := seq.Next(ctx, "order_item_id", tenantID)
	if err != nil {
		return nil, err
	}
	measurementID, err := seq.Next(ctx, "order_item_measurement_id", tenantID)
	if err != nil {
		return nil, err
	}
	patternID, err := seq.Next(ctx, "order_item_pattern_id", tenantID)
	if err != nil {
		return nil, err
	}

	item := &models.OrderItem{
		OrderItemID:   itemID,
		OrderID:       orderID,
		DressTypeID:   ir.DressTypeID,
		DressName:     ir.DressName,
		Quantity:      normalizeQuantity(ir.Quantity),
		DeliveryDate:  ir.DeliveryDate,
		Notes:         ir.Notes,
		MeasurementID: measurementID,
		PatternID:     patternID,
	}
	if err := s.store.InsertOrderItem(ctx, tx, tables.Items, item); err != nil {
		return nil, fmt.Errorf("failed to write order item: %w", err)
	}

	measurement := &models.OrderItemMeasurement{
		MeasurementID: measurementID,
		OrderID:       orderID,
		OrderItemID:   itemID,
		Values:        ir.Measurements,
	}
	if err := s.store.InsertMeasurement(ctx, tx, tables.Measurements, measurement); err != nil {
		return nil, fmt.Errorf("failed to write measurement: %w", err)
	}

	pattern := &models.OrderItemPattern{
		PatternID:   patternID,
		OrderID:     orderID,
		OrderItemID: itemID,
		Selections:  ir.Patterns,
	}
	if err := s.store.InsertPattern(ctx, tx, tables.Patterns, pattern); err != nil {
		return nil, fmt.Errorf("failed to write pattern: %w", err)
	}

	return item, nil
}

// writeAdditionalCosts inserts the provided set, each linked to the order and
// anchored to the representative (first) item.
func (s *OrderService) writeAdditionalCosts(
	ctx context.Context,
	tx *sqlx.Tx,
	tables *store.OrderTables,
	tenantID, orderID, anchorItemID int64,
	reqs []AdditionalCostRequest,
) ([]models.OrderAdditionalCost, error) {
	costs := make([]models.OrderAdditionalCost, 0, len(reqs))
	for _, cr := range reqs {
		costID, err := s.store.Sequences().Next(ctx, "order_additional_cost_id", tenantID)
		if err != nil {
			return nil, err
		}
		cost := models.OrderAdditionalCost{
			AdditionalCostID: costID,
			OrderID:          orderID,
			OrderItemID:      anchorItemID,
			Name:             cr.Name,
			Amount:           cr.Amount,
		}
		if err := s.store.InsertAdditionalCost(ctx, tx, tables.AdditionalCosts, &cost); err != nil {
			return nil, fmt.Errorf("failed to write additional cost: %w", err)
		}
		costs = append(costs, cost)
	}
	return costs, nil
}

// UpdateOrder reconciles an existing order graph in one transaction. Items
// must carry the ids returned by create; additional costs are fully replaced.
func (s *OrderService) UpdateOrder(ctx context.Context, tenantID, orderID int64, req *OrderRequest) (*OrderResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrder")
	defer span.End()

	start := time.Now()
	defer func() { util.OrderWriteLatency.Observe(time.Since(start).Seconds()) }()

	if err := s.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	if err := validateOrderRequest(req); err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}
	for _, ir := range req.Items {
		if ir.OrderItemID <= 0 || ir.MeasurementID <= 0 || ir.PatternID <= 0 {
			return nil, fmt.Errorf("%w: order %d", models.ErrMissingIdentifiers, orderID)
		}
	}

	tables, err := s.store.ResolveOrderTables(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	exists, err := s.store.OrderExists(ctx, tables.Orders, orderID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", models.ErrOrderNotFound, orderID)
	}

	order := &models.Order{
		OrderID:       orderID,
		BranchID:      req.BranchID,
		CustomerID:    req.CustomerID,
		Owner:         req.Owner,
		StitchingType: req.StitchingType,
		Status:        req.Status,
		Estimation:    req.Estimation,
		Advance:       req.Advance,
		Discount:      req.Discount,
		GST:           req.GST,
		DeliveryDate:  earliestDeliveryDate(req.Items),
	}
	if order.Status == "" {
		order.Status = models.OrderStatusReceived
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.store.BeginTx(txCtx)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("tx_unavailable").Inc()
		return nil, err
	}

	result, err := s.writeUpdate(txCtx, tx, tables, tenantID, order, req)
	if err != nil {
		_ = tx.Rollback()
		util.OrdersFailedTotal.WithLabelValues("write_failed").Inc()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		util.OrdersFailedTotal.WithLabelValues("commit_failed").Inc()
		return nil, fmt.Errorf("failed to commit order %d: %w", orderID, err)
	}

	util.OrdersUpdatedTotal.Inc()
	s.logger.Info("Order updated",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("order_id", orderID))

	s.publish(ctx, models.EventTypeOrderUpdated, tenantID, result)
	return result, nil
}

func (s *OrderService) writeUpdate(
	ctx context.Context,
	tx *sqlx.Tx,
	tables *store.OrderTables,
	tenantID int64,
	order *models.Order,
	req *OrderRequest,
) (*OrderResult, error) {
	if err := s.store.UpdateOrder(ctx, tx, tables.Orders, order); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, ir := range req.Items {
		item := &models.OrderItem{
			OrderItemID:   ir.OrderItemID,
			OrderID:       order.OrderID,
			DressTypeID:   ir.DressTypeID,
			DressName:     ir.DressName,
			Quantity:      normalizeQuantity(ir.Quantity),
			DeliveryDate:  ir.DeliveryDate,
			Notes:         ir.Notes,
			MeasurementID: ir.MeasurementID,
			PatternID:     ir.PatternID,
		}
		if err := s.store.UpdateOrderItem(ctx, tx, tables.Items, item); err != nil {
			return nil, err
		}

		measurement := &models.OrderItemMeasurement{
			MeasurementID: ir.MeasurementID,
			OrderID:       order.OrderID,
			OrderItemID:   ir.OrderItemID,
			Values:        ir.Measurements,
		}
		if err := s.store.UpdateMeasurement(ctx, tx, tables.Measurements, measurement); err != nil {
			return nil, err
		}

		pattern := &models.OrderItemPattern{
			PatternID:   ir.PatternID,
			OrderID:     order.OrderID,
			OrderItemID: ir.OrderItemID,
			Selections:  ir.Patterns,
		}
		if err := s.store.UpdatePattern(ctx, tx, tables.Patterns, pattern); err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	if err := s.store.DeleteAdditionalCosts(ctx, tx, tables.AdditionalCosts, order.OrderID); err != nil {
		return nil, fmt.Errorf("failed to clear additional costs: %w", err)
	}
	costs, err := s.writeAdditionalCosts(ctx, tx, tables, tenantID, order.OrderID, items[0].OrderItemID, req.AdditionalCosts)
	if err != nil {
		return nil, err
	}

	return &OrderResult{Order: order, Items: items, AdditionalCosts: costs}, nil
}

func (s *OrderService) checkTenant(ctx context.Context, tenantID int64) error {
	exists, err := s.tenants.Exists(ctx, tenantID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %d", models.ErrTenantNotFound, tenantID)
	}
	return nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, tenantID int64, result *OrderResult) {
	if s.eventPublisher == nil {
		return
	}

	base := models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		TenantID:  tenantID,
		Timestamp: time.Now(),
	}

	var err error
	switch eventType {
	case models.EventTypeOrderCreated:
		err = s.eventPublisher.PublishOrderCreated(ctx, &models.OrderCreatedEvent{
			BaseEvent:    base,
			OrderID:      result.Order.OrderID,
			CustomerID:   result.Order.CustomerID,
			Status:       result.Order.Status,
			DeliveryDate: result.Order.DeliveryDate,
			ItemCount:    len(result.Items),
		})
	case models.EventTypeOrderUpdated:
		err = s.eventPublisher.PublishOrderUpdated(ctx, &models.OrderUpdatedEvent{
			BaseEvent:    base,
			OrderID:      result.Order.OrderID,
			CustomerID:   result.Order.CustomerID,
			Status:       result.Order.Status,
			DeliveryDate: result.Order.DeliveryDate,
			ItemCount:    len(result.Items),
		})
	}
	if err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("event_type", eventType),
			zap.Int64("order_id", result.Order.OrderID),
			zap.Error(err))
	}
}

func validateOrderRequest(req *OrderRequest) error {
	if req == nil || len(req.Items) == 0 {
		return fmt.Errorf("%w: order needs at least one item", models.ErrValidation)
	}
	if req.CustomerID <= 0 {
		return fmt.Errorf("%w: customer id is required", models.ErrValidation)
	}
	return nil
}

// earliestDeliveryDate picks the smallest non-empty delivery date across the
// items. Dates are YYYY-MM-DD strings, so lexicographic order is
// chronological.
func earliestDeliveryDate(items []OrderItemRequest) string {
	earliest := ""
	for _, it := range items {
		if it.DeliveryDate == "" {
			continue
		}
		if earliest == "" || it.DeliveryDate < earliest {
			earliest = it.DeliveryDate
		}
	}
	return earliest
}

func normalizeQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}
