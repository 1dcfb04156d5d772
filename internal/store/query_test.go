package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTables() *OrderTables {
	return &OrderTables{
		Orders:          "orders_7",
		Items:           "order_items_7",
		Measurements:    "order_item_measurements_7",
		Patterns:        "order_item_patterns_7",
		AdditionalCosts: "order_additional_costs_7",
		Customers:       "customers_7",
	}
}

func TestLastDigits(t *testing.T) {
	assert.Equal(t, "9876543210", lastDigits("+919876543210", 10))
	assert.Equal(t, "9876543210", lastDigits("9876543210", 10))
	assert.Equal(t, "123", lastDigits("abc123", 10))
	assert.Equal(t, "", lastDigits("nomatch", 10))
}

func TestBuildListWhereEmptyFilter(t *testing.T) {
	where, args := buildListWhere(testTables(), OrderFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildListWhereExactFilters(t *testing.T) {
	where, args := buildListWhere(testTables(), OrderFilter{OrderID: 42, Status: "received"})

	assert.Contains(t, where, "o.order_id = ?")
	assert.Contains(t, where, "o.status = ?")
	assert.Equal(t, []interface{}{int64(42), "received"}, args)
}

func TestBuildListWhereKeywordTargetsJoinedColumns(t *testing.T) {
	where, args := buildListWhere(testTables(), OrderFilter{SearchKeyword: "Asha"})

	// The keyword predicate must reference the joined customer columns, so
	// it can only run after the customer join.
	assert.Contains(t, where, "LOWER(c.name) LIKE ?")
	assert.Contains(t, where, "LOWER(c.mobile) LIKE ?")
	assert.Contains(t, where, "LOWER(o.owner) LIKE ?")
	assert.NotContains(t, where, "RIGHT(REGEXP_REPLACE")
	assert.Equal(t, []interface{}{"%asha%", "%asha%", "%asha%"}, args)
}

func TestBuildListWherePhoneKeywordMatchesLastTenDigits(t *testing.T) {
	where, args := buildListWhere(testTables(), OrderFilter{SearchKeyword: "+919876543210"})

	assert.Contains(t, where, "RIGHT(REGEXP_REPLACE(c.mobile, '[^0-9]', '', 'g'), 10) = ?")
	assert.Equal(t, "9876543210", args[len(args)-1])
}

func TestBuildListWhereDeliveryWindowUsesItemDates(t *testing.T) {
	now := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)

	where, args := buildListWhere(testTables(), OrderFilter{
		DeliveryWindow: DeliveryWindowWeek,
		Now:            now,
	})

	assert.Contains(t, where, "EXISTS (SELECT 1 FROM order_items_7 i WHERE i.order_id = o.order_id")
	assert.Equal(t, []interface{}{"2025-05-02", "2025-05-08"}, args)

	_, todayArgs := buildListWhere(testTables(), OrderFilter{
		DeliveryWindow: DeliveryWindowToday,
		Now:            now,
	})
	assert.Equal(t, []interface{}{"2025-05-02", "2025-05-02"}, todayArgs)
}

func TestBuildListWhereCreatedToday(t *testing.T) {
	now := time.Date(2025, 5, 2, 10, 30, 0, 0, time.UTC)

	where, args := buildListWhere(testTables(), OrderFilter{CreatedToday: true, Now: now})

	assert.Contains(t, where, "o.created_at >= ? AND o.created_at < ?")
	require.Len(t, args, 2)
	assert.Equal(t, time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), args[0])
	assert.Equal(t, time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC), args[1])
}

func TestListOrdersCountsOverTheJoin(t *testing.T) {
	store, mock := newMockStore(t)

	// The count must run the same join and filter as the listing; a base
	// table count would be wrong under an active keyword.
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders_7 o LEFT JOIN customers_7 c ON c\.customer_id = o\.customer_id WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	orderRows := sqlmock.NewRows([]string{
		"order_id", "branch_id", "customer_id", "owner", "stitching_type", "status",
		"estimation", "advance", "discount", "gst", "delivery_date",
		"created_at", "updated_at", "customer_name", "customer_mobile",
	}).AddRow(
		int64(42), int64(1), int64(9), "Asha Rao", "custom", "received",
		"1500", "500", "0", "90", "2025-05-02",
		time.Now(), time.Now(), "Asha Rao", "+919876543210",
	)
	mock.ExpectQuery(`SELECT o\.\*, COALESCE\(c\.name, ''\) AS customer_name.+ORDER BY o\.created_at DESC LIMIT \$\d+ OFFSET \$\d+`).
		WillReturnRows(orderRows)

	rows, total, err := store.ListOrders(context.Background(), testTables(),
		OrderFilter{SearchKeyword: "9876543210", Now: time.Now()},
		Page{Number: 1, Size: 20})
	require.NoError(t, err)

	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0].OrderID)
	assert.Equal(t, "Asha Rao", rows[0].CustomerName)
	assert.True(t, rows[0].Estimation.Equal(decimal.NewFromInt(1500)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrdersNoMatchesIsEmptyNotAnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders_7 o LEFT JOIN customers_7 c`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT o\.\*, COALESCE\(c\.name, ''\) AS customer_name`).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}))

	rows, total, err := store.ListOrders(context.Background(), testTables(),
		OrderFilter{SearchKeyword: "nomatch", Now: time.Now()},
		Page{Number: 1, Size: 20})
	require.NoError(t, err)

	assert.Zero(t, total)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNestedFetchesSkipEmptyIDSet(t *testing.T) {
	store, mock := newMockStore(t)

	// No expectations registered: an empty page must not touch storage.
	items, err := store.ItemsByOrderIDs(context.Background(), "order_items_7", nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}
