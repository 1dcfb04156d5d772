package store

import (
	"context"
	"sync"
	"testing"

	"tailorworks/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhysicalName(t *testing.T) {
	assert.Equal(t, "orders_7", PhysicalName(KindOrders, 7))
	assert.Equal(t, "order_item_measurements_12", PhysicalName(KindMeasurements, 12))
}

func TestResolveRejectsInvalidTenant(t *testing.T) {
	store, _ := newMockStore(t)

	for _, tenantID := range []int64{0, -1} {
		_, err := store.Registry().Resolve(context.Background(), KindOrders, tenantID)
		require.Error(t, err)

		de, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrInvalidTenant.Code, de.Code)
	}
}

func TestResolveRejectsUnknownKind(t *testing.T) {
	store, _ := newMockStore(t)

	_, err := store.Registry().Resolve(context.Background(), Kind("nope"), 7)
	assert.Error(t, err)
}

func expectTableExists(mock sqlmock.Sqlmock, name string, exists bool) {
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM information_schema\.tables`).
		WithArgs(name).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func expectQuotaCount(mock sqlmock.Sqlmock, count int) {
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema\.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func TestResolveCreatesOnceAndMemoizes(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	expectTableExists(mock, "orders_7", false)
	expectQuotaCount(mock, 0)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS orders_7`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := store.Registry().Resolve(ctx, KindOrders, 7)
	require.NoError(t, err)
	assert.Equal(t, "orders_7", first.Name)

	// Second resolution must come from the cache: any further query would
	// fail the unmet expectation check.
	second, err := store.Registry().Resolve(ctx, KindOrders, 7)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveConcurrentSingleCreation(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	expectTableExists(mock, "order_items_9", false)
	expectQuotaCount(mock, 0)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS order_items_9`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	var wg sync.WaitGroup
	cols := make([]*Collection, 8)
	for i := 0; i < len(cols); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			col, err := store.Registry().Resolve(ctx, KindOrderItems, 9)
			assert.NoError(t, err)
			cols[i] = col
		}(i)
	}
	wg.Wait()

	for _, col := range cols {
		assert.Same(t, cols[0], col)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveQuotaExceeded(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	store := NewStoreWithDB(sqlx.NewDb(mockDB, "postgres"), 2)

	expectTableExists(mock, "orders_7", false)
	expectQuotaCount(mock, 2)

	_, err = store.Registry().Resolve(context.Background(), KindOrders, 7)
	require.Error(t, err)

	de, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrStorageQuotaExceeded.Code, de.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveSeedsRolesOnce(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	expectTableExists(mock, "roles_7", false)
	expectQuotaCount(mock, 3)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS roles_7`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM roles_7`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO roles_7 \(role_id, name\) VALUES`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	_, err := store.Registry().Resolve(ctx, KindRoles, 7)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveExistingTableSkipsCreation(t *testing.T) {
	store, mock := newMockStore(t)

	expectTableExists(mock, "customers_5", true)

	col, err := store.Registry().Resolve(context.Background(), KindCustomers, 5)
	require.NoError(t, err)
	assert.Equal(t, "customers_5", col.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedCreationIsRetryable(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	expectTableExists(mock, "orders_8", false)
	expectQuotaCount(mock, 0)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS orders_8`).
		WillReturnError(assert.AnError)

	_, err := store.Registry().Resolve(ctx, KindOrders, 8)
	require.Error(t, err)

	// A later caller retries instead of being stuck with the cached failure.
	expectTableExists(mock, "orders_8", false)
	expectQuotaCount(mock, 0)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS orders_8`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	col, err := store.Registry().Resolve(ctx, KindOrders, 8)
	require.NoError(t, err)
	assert.Equal(t, "orders_8", col.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
