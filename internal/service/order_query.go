package service

import (
	"context"
	"fmt"
	"time"

	"tailorworks/internal/models"
	"tailorworks/internal/store"
	"tailorworks/internal/util"

	"go.uber.org/zap"
)

// OrderQueryService is the read side: it reconstructs orders with their
// nested items, measurements, patterns, additional costs and the referenced
// customer, entirely within the tenant's namespace.
type OrderQueryService struct {
	store           *store.Store
	tenants         *TenantDirectory
	logger          *zap.Logger
	defaultPageSize int
}

// NewOrderQueryService creates a new order query service
func NewOrderQueryService(st *store.Store, tenants *TenantDirectory, defaultPageSize int) *OrderQueryService {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	return &OrderQueryService{
		store:           st,
		tenants:         tenants,
		logger:          util.GetLogger(),
		defaultPageSize: defaultPageSize,
	}
}

// ListOrdersRequest carries the filters and pagination for a listing
type ListOrdersRequest struct {
	OrderID        int64  `form:"order_id"`
	Status         string `form:"status"`
	CreatedToday   bool   `form:"created_today"`
	DeliveryWindow string `form:"delivery_window"`
	SearchKeyword  string `form:"search"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
}

// OrderItemView is a garment line with its measurement and pattern rows
// attached by the (order_id, order_item_id) composite key
type OrderItemView struct {
	models.OrderItem
	Measurement *models.OrderItemMeasurement `json:"measurement,omitempty"`
	Pattern     *models.OrderItemPattern     `json:"pattern,omitempty"`
}

// OrderView is one denormalized order record: header, customer identity and
// every nested row, grouped back into a single record per order
type OrderView struct {
	models.Order
	CustomerName    string                       `json:"customer_name"`
	CustomerMobile  string                       `json:"customer_mobile"`
	Items           []OrderItemView              `json:"items"`
	AdditionalCosts []models.OrderAdditionalCost `json:"additional_costs"`
}

// ListOrdersResult is one page of order views plus the total over the same
// join and filter
type ListOrdersResult struct {
	Items []OrderView `json:"items"`
	Total int64       `json:"total"`
}

// ListOrders returns a paginated, filterable, searchable view of the
// tenant's orders
func (s *OrderQueryService) ListOrders(ctx context.Context, tenantID int64, req *ListOrdersRequest) (*ListOrdersResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderQueryService.ListOrders")
	defer span.End()

	start := time.Now()
	defer func() { util.OrderListLatency.Observe(time.Since(start).Seconds()) }()

	exists, err := s.tenants.Exists(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", models.ErrTenantNotFound, tenantID)
	}

	tables, err := s.store.ResolveOrderTables(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	filter := store.OrderFilter{
		OrderID:        req.OrderID,
		Status:         req.Status,
		CreatedToday:   req.CreatedToday,
		DeliveryWindow: req.DeliveryWindow,
		SearchKeyword:  req.SearchKeyword,
		Now:            time.Now(),
	}
	page := store.Page{Number: req.Page, Size: req.PageSize}
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size <= 0 {
		page.Size = s.defaultPageSize
	}

	rows, total, err := s.store.ListOrders(ctx, tables, filter, page)
	if err != nil {
		return nil, err
	}

	views, err := s.attachNested(ctx, tables, rows)
	if err != nil {
		return nil, err
	}
	return &ListOrdersResult{Items: views, Total: total}, nil
}

// GetOrder returns one order with its full graph
func (s *OrderQueryService) GetOrder(ctx context.Context, tenantID, orderID int64) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderQueryService.GetOrder")
	defer span.End()

	exists, err := s.tenants.Exists(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", models.ErrTenantNotFound, tenantID)
	}

	tables, err := s.store.ResolveOrderTables(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	order, err := s.store.GetOrder(ctx, tables.Orders, orderID)
	if err != nil {
		return nil, err
	}

	row := store.OrderWithCustomer{Order: *order}
	if customer, err := s.store.GetCustomer(ctx, tenantID, order.CustomerID); err != nil {
		return nil, err
	} else if customer != nil {
		row.CustomerName = customer.Name
		row.CustomerMobile = customer.Mobile
	}

	views, err := s.attachNested(ctx, tables, []store.OrderWithCustomer{row})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// attachNested loads the page's nested rows in bulk and regroups them under
// their orders. Measurement and pattern rows are matched strictly by the
// (order_id, order_item_id) composite key so they never leak across items.
func (s *OrderQueryService) attachNested(ctx context.Context, tables *store.OrderTables, rows []store.OrderWithCustomer) ([]OrderView, error) {
	orderIDs := make([]int64, len(rows))
	for i, r := range rows {
		orderIDs[i] = r.OrderID
	}

	items, err := s.store.ItemsByOrderIDs(ctx, tables.Items, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	measurements, err := s.store.MeasurementsByOrderIDs(ctx, tables.Measurements, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load measurements: %w", err)
	}
	patterns, err := s.store.PatternsByOrderIDs(ctx, tables.Patterns, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}
	costs, err := s.store.AdditionalCostsByOrderIDs(ctx, tables.AdditionalCosts, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load additional costs: %w", err)
	}

	return groupOrderViews(rows, items, measurements, patterns, costs), nil
}

type itemKey struct {
	orderID     int64
	orderItemID int64
}

// groupOrderViews reassembles flat row sets into one record per order
func groupOrderViews(
	rows []store.OrderWithCustomer,
	items []models.OrderItem,
	measurements []models.OrderItemMeasurement,
	patterns []models.OrderItemPattern,
	costs []models.OrderAdditionalCost,
) []OrderView {
	measurementByKey := make(map[itemKey]*models.OrderItemMeasurement, len(measurements))
	for i := range measurements {
		m := &measurements[i]
		measurementByKey[itemKey{m.OrderID, m.OrderItemID}] = m
	}
	patternByKey := make(map[itemKey]*models.OrderItemPattern, len(patterns))
	for i := range patterns {
		p := &patterns[i]
		patternByKey[itemKey{p.OrderID, p.OrderItemID}] = p
	}

	itemsByOrder := make(map[int64][]OrderItemView)
	for _, it := range items {
		key := itemKey{it.OrderID, it.OrderItemID}
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], OrderItemView{
			OrderItem:   it,
			Measurement: measurementByKey[key],
			Pattern:     patternByKey[key],
		})
	}

	costsByOrder := make(map[int64][]models.OrderAdditionalCost)
	for _, c := range costs {
		costsByOrder[c.OrderID] = append(costsByOrder[c.OrderID], c)
	}

	views := make([]OrderView, 0, len(rows))
	for _, r := range rows {
		views = append(views, OrderView{
			Order:           r.Order,
			CustomerName:    r.CustomerName,
			CustomerMobile:  r.CustomerMobile,
			Items:           itemsByOrder[r.OrderID],
			AdditionalCosts: costsByOrder[r.OrderID],
		})
	}
	return views
}
