package service

import (
	"context"
	"testing"

	"tailorworks/internal/models"
	"tailorworks/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupOrderViewsMatchesByCompositeKey(t *testing.T) {
	rows := []store.OrderWithCustomer{
		{Order: models.Order{OrderID: 1}, CustomerName: "Asha Rao", CustomerMobile: "9876543210"},
		{Order: models.Order{OrderID: 2}},
	}

	// Item ids repeat across orders: only the (order_id, order_item_id)
	// pair identifies a line, a bare item id would cross-wire them.
	items := []models.OrderItem{
		{OrderID: 1, OrderItemID: 10, DressName: "kurta"},
		{OrderID: 1, OrderItemID: 11, DressName: "blouse"},
		{OrderID: 2, OrderItemID: 10, DressName: "sherwani"},
	}
	measurements := []models.OrderItemMeasurement{
		{OrderID: 1, OrderItemID: 10, MeasurementID: 100, Values: models.Measurements{"chest": 38}},
		{OrderID: 1, OrderItemID: 11, MeasurementID: 101, Values: models.Measurements{"waist": 30}},
		{OrderID: 2, OrderItemID: 10, MeasurementID: 102, Values: models.Measurements{"chest": 42}},
	}
	patterns := []models.OrderItemPattern{
		{OrderID: 1, OrderItemID: 10, PatternID: 200},
		{OrderID: 2, OrderItemID: 10, PatternID: 201},
	}
	costs := []models.OrderAdditionalCost{
		{OrderID: 1, AdditionalCostID: 300, Name: "lining"},
	}

	views := groupOrderViews(rows, items, measurements, patterns, costs)
	require.Len(t, views, 2)

	first := views[0]
	assert.Equal(t, "Asha Rao", first.CustomerName)
	require.Len(t, first.Items, 2)
	require.NotNil(t, first.Items[0].Measurement)
	assert.Equal(t, int64(100), first.Items[0].Measurement.MeasurementID)
	require.NotNil(t, first.Items[1].Measurement)
	assert.Equal(t, int64(101), first.Items[1].Measurement.MeasurementID)
	require.NotNil(t, first.Items[0].Pattern)
	assert.Equal(t, int64(200), first.Items[0].Pattern.PatternID)
	assert.Nil(t, first.Items[1].Pattern)
	require.Len(t, first.AdditionalCosts, 1)
	assert.Equal(t, "lining", first.AdditionalCosts[0].Name)

	second := views[1]
	assert.Empty(t, second.CustomerName)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "sherwani", second.Items[0].DressName)
	require.NotNil(t, second.Items[0].Measurement)
	assert.Equal(t, int64(102), second.Items[0].Measurement.MeasurementID)
	assert.Equal(t, int64(201), second.Items[0].Pattern.PatternID)
	assert.Empty(t, second.AdditionalCosts)
}

func TestGroupOrderViewsKeepsPageOrder(t *testing.T) {
	rows := []store.OrderWithCustomer{
		{Order: models.Order{OrderID: 3}},
		{Order: models.Order{OrderID: 1}},
		{Order: models.Order{OrderID: 2}},
	}

	views := groupOrderViews(rows, nil, nil, nil, nil)
	require.Len(t, views, 3)
	assert.Equal(t, int64(3), views[0].OrderID)
	assert.Equal(t, int64(1), views[1].OrderID)
	assert.Equal(t, int64(2), views[2].OrderID)
}

func TestTenantDirectoryRejectsInvalidID(t *testing.T) {
	d := NewTenantDirectory(nil, nil, 0)

	_, err := d.Exists(context.Background(), 0)
	require.Error(t, err)
	dErr, ok := models.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrInvalidTenant.Code, dErr.Code)

	_, err = d.Exists(context.Background(), -5)
	assert.Error(t, err)
}
