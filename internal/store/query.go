package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tailorworks/internal/models"

	"github.com/jmoiron/sqlx"
)

// OrderFilter narrows the order listing. The keyword targets columns of the
// joined customer row, so it is evaluated after the join, never against the
// base orders table alone.
type OrderFilter struct {
	OrderID        int64
	Status         string
	CreatedToday   bool
	DeliveryWindow string // "", DeliveryWindowToday or DeliveryWindowWeek
	SearchKeyword  string
	Now            time.Time
}

// Delivery windows, evaluated against the items' individual delivery dates
const (
	DeliveryWindowToday = "today"
	DeliveryWindowWeek  = "week"
)

// Page is 1-based pagination
type Page struct {
	Number int
	Size   int
}

func (p Page) offset() int {
	n := p.Number
	if n < 1 {
		n = 1
	}
	return (n - 1) * p.Size
}

// OrderWithCustomer is an order row joined with its customer's identity.
// Orders with no matching customer keep empty name and mobile.
type OrderWithCustomer struct {
	models.Order
	CustomerName   string `db:"customer_name" json:"customer_name"`
	CustomerMobile string `db:"customer_mobile" json:"customer_mobile"`
}

// buildListWhere renders the filter into a WHERE clause over the joined
// (orders o LEFT JOIN customers c) row, with ? placeholders.
func buildListWhere(t *OrderTables, f OrderFilter) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}

	if f.OrderID > 0 {
		conds = append(conds, "o.order_id = ?")
		args = append(args, f.OrderID)
	}
	if f.Status != "" {
		conds = append(conds, "o.status = ?")
		args = append(args, f.Status)
	}
	if f.CreatedToday {
		y, m, d := f.Now.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, f.Now.Location())
		conds = append(conds, "o.created_at >= ? AND o.created_at < ?")
		args = append(args, day, day.Add(24*time.Hour))
	}
	if f.DeliveryWindow != "" {
		from := f.Now.Format("2006-01-02")
		to := from
		if f.DeliveryWindow == DeliveryWindowWeek {
			to = f.Now.AddDate(0, 0, 6).Format("2006-01-02")
		}
		conds = append(conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s i WHERE i.order_id = o.order_id AND i.delivery_date >= ? AND i.delivery_date <= ?)",
			t.Items))
		args = append(args, from, to)
	}
	if f.SearchKeyword != "" {
		kw := strings.ToLower(f.SearchKeyword)
		like := "%" + kw + "%"
		search := []string{"LOWER(c.name) LIKE ?", "LOWER(c.mobile) LIKE ?", "LOWER(o.owner) LIKE ?"}
		args = append(args, like, like, like)

		// Phone numbers also match by their last 10 digits, tolerating
		// country-code prefixes on either side.
		if digits := lastDigits(f.SearchKeyword, 10); len(digits) == 10 {
			search = append(search, "RIGHT(REGEXP_REPLACE(c.mobile, '[^0-9]', '', 'g'), 10) = ?")
			args = append(args, digits)
		}
		conds = append(conds, "("+strings.Join(search, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// lastDigits returns the trailing n digits of s, or all of them when fewer
func lastDigits(s string, n int) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > n {
		return digits[len(digits)-n:]
	}
	return digits
}

// ListOrders returns one page of joined order rows plus the total count over
// the same join and filter. The count runs the full joined pipeline because
// the keyword predicate needs the customer columns; counting the base table
// would be wrong under any active search.
func (s *Store) ListOrders(ctx context.Context, t *OrderTables, filter OrderFilter, page Page) ([]OrderWithCustomer, int64, error) {
	join := fmt.Sprintf(
		"FROM %s o LEFT JOIN %s c ON c.customer_id = o.customer_id", t.Orders, t.Customers)
	where, args := buildListWhere(t, filter)

	var total int64
	countQuery := s.db.Rebind("SELECT COUNT(*) " + join + where)
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	listQuery := s.db.Rebind(
		"SELECT o.*, COALESCE(c.name, '') AS customer_name, COALESCE(c.mobile, '') AS customer_mobile " +
			join + where +
			" ORDER BY o.created_at DESC LIMIT ? OFFSET ?")
	listArgs := append(append([]interface{}{}, args...), page.Size, page.offset())

	var rows []OrderWithCustomer
	if err := s.db.SelectContext(ctx, &rows, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return rows, total, nil
}

// ItemsByOrderIDs fetches every garment line of the given orders
func (s *Store) ItemsByOrderIDs(ctx context.Context, table string, orderIDs []int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.selectByOrderIDs(ctx, &items,
		fmt.Sprintf("SELECT * FROM %s WHERE order_id IN (?) ORDER BY order_item_id", table), orderIDs)
	return items, err
}

// MeasurementsByOrderIDs fetches measurement rows for the given orders
func (s *Store) MeasurementsByOrderIDs(ctx context.Context, table string, orderIDs []int64) ([]models.OrderItemMeasurement, error) {
	var ms []models.OrderItemMeasurement
	err := s.selectByOrderIDs(ctx, &ms,
		fmt.Sprintf("SELECT * FROM %s WHERE order_id IN (?)", table), orderIDs)
	return ms, err
}

// PatternsByOrderIDs fetches pattern rows for the given orders
func (s *Store) PatternsByOrderIDs(ctx context.Context, table string, orderIDs []int64) ([]models.OrderItemPattern, error) {
	var ps []models.OrderItemPattern
	err := s.selectByOrderIDs(ctx, &ps,
		fmt.Sprintf("SELECT * FROM %s WHERE order_id IN (?)", table), orderIDs)
	return ps, err
}

// AdditionalCostsByOrderIDs fetches extra charges for the given orders
func (s *Store) AdditionalCostsByOrderIDs(ctx context.Context, table string, orderIDs []int64) ([]models.OrderAdditionalCost, error) {
	var cs []models.OrderAdditionalCost
	err := s.selectByOrderIDs(ctx, &cs,
		fmt.Sprintf("SELECT * FROM %s WHERE order_id IN (?) ORDER BY additional_cost_id", table), orderIDs)
	return cs, err
}

func (s *Store) selectByOrderIDs(ctx context.Context, dest interface{}, query string, orderIDs []int64) error {
	if len(orderIDs) == 0 {
		return nil
	}
	q, args, err := sqlx.In(query, orderIDs)
	if err != nil {
		return err
	}
	return s.db.SelectContext(ctx, dest, s.db.Rebind(q), args...)
}
