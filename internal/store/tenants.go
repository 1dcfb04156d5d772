package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tailorworks/internal/models"
)

// TenantExists reports whether an active tenant is registered
func (s *Store) TenantExists(ctx context.Context, tenantID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM tenants WHERE tenant_id = $1 AND status = $2)",
		tenantID, models.TenantStatusActive)
	return exists, err
}

// GetTenant retrieves a tenant by id
func (s *Store) GetTenant(ctx context.Context, tenantID int64) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.GetContext(ctx, &tenant, "SELECT * FROM tenants WHERE tenant_id = $1", tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", models.ErrTenantNotFound, tenantID)
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// CreateTenant registers a tenant row. The id comes from the global tenant_id
// counter, not a storage serial.
func (s *Store) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	id, err := s.sequences.Next(ctx, "tenant_id", 0)
	if err != nil {
		return err
	}
	tenant.TenantID = id

	return s.db.GetContext(ctx, tenant, `
		INSERT INTO tenants (tenant_id, name, status)
		VALUES ($1, $2, $3)
		RETURNING tenant_id, name, status, created_at`,
		tenant.TenantID, tenant.Name, models.TenantStatusActive)
}

// GetCustomer retrieves a customer from the tenant's customers collection
func (s *Store) GetCustomer(ctx context.Context, tenantID, customerID int64) (*models.Customer, error) {
	col, err := s.registry.Resolve(ctx, KindCustomers, tenantID)
	if err != nil {
		return nil, err
	}

	var customer models.Customer
	err = s.db.GetContext(ctx, &customer,
		fmt.Sprintf("SELECT * FROM %s WHERE customer_id = $1", col.Name), customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
