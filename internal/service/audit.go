package service

import (
	"context"
	"fmt"

	"tailorworks/internal/models"
	"tailorworks/internal/store"
	"tailorworks/internal/util"

	"go.uber.org/zap"
)

// AuditRecorder appends order mutation records to the tenant's audit-trail
// collection. It runs off the event stream, outside the order transaction.
type AuditRecorder struct {
	store  *store.Store
	logger *zap.Logger
}

// NewAuditRecorder creates a new audit recorder
func NewAuditRecorder(st *store.Store) *AuditRecorder {
	return &AuditRecorder{store: st, logger: util.GetLogger()}
}

// RecordCreated records an order creation
func (a *AuditRecorder) RecordCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return a.record(ctx, event.TenantID, event.OrderID, "created", event.Status)
}

// RecordUpdated records an order update
func (a *AuditRecorder) RecordUpdated(ctx context.Context, event *models.OrderUpdatedEvent) error {
	return a.record(ctx, event.TenantID, event.OrderID, "updated", event.Status)
}

func (a *AuditRecorder) record(ctx context.Context, tenantID, orderID int64, action, status string) error {
	audit := &models.OrderAudit{OrderID: orderID, Action: action, Status: status}
	if err := a.store.InsertAudit(ctx, tenantID, audit); err != nil {
		return fmt.Errorf("failed to record audit for order %d: %w", orderID, err)
	}

	util.AuditRecordsTotal.Inc()
	a.logger.Debug("Audit record written",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("order_id", orderID),
		zap.String("action", action))
	return nil
}
