package service

import (
	"context"
	"fmt"
	"time"

	"tailorworks/internal/models"
	"tailorworks/internal/redisclient"
	"tailorworks/internal/store"
	"tailorworks/internal/util"

	"go.uber.org/zap"
)

// TenantDirectory answers tenant existence checks, with a Redis read-through
// cache in front of the global tenants table. Cache failures degrade to
// database lookups, never to request failures.
type TenantDirectory struct {
	store  *store.Store
	cache  *redisclient.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTenantDirectory creates a new tenant directory. cache may be nil.
func NewTenantDirectory(st *store.Store, cache *redisclient.Client, ttl time.Duration) *TenantDirectory {
	return &TenantDirectory{
		store:  st,
		cache:  cache,
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

// Exists reports whether the tenant is registered and active
func (d *TenantDirectory) Exists(ctx context.Context, tenantID int64) (bool, error) {
	if tenantID <= 0 {
		return false, fmt.Errorf("%w: tenant id %d", models.ErrInvalidTenant, tenantID)
	}

	if d.cache != nil {
		exists, found, err := d.cache.GetTenantExists(ctx, tenantID)
		if err != nil {
			d.logger.Warn("Tenant cache read failed", zap.Int64("tenant_id", tenantID), zap.Error(err))
		} else if found {
			return exists, nil
		}
	}

	exists, err := d.store.TenantExists(ctx, tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to check tenant %d: %w", tenantID, err)
	}

	if d.cache != nil {
		if err := d.cache.SetTenantExists(ctx, tenantID, exists, d.ttl); err != nil {
			d.logger.Warn("Tenant cache write failed", zap.Int64("tenant_id", tenantID), zap.Error(err))
		}
	}
	return exists, nil
}

// Register creates a tenant row and invalidates any stale cache entry
func (d *TenantDirectory) Register(ctx context.Context, name string) (*models.Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: tenant name is required", models.ErrValidation)
	}

	tenant := &models.Tenant{Name: name}
	if err := d.store.CreateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to register tenant: %w", err)
	}

	if d.cache != nil {
		if err := d.cache.InvalidateTenant(ctx, tenant.TenantID); err != nil {
			d.logger.Warn("Tenant cache invalidation failed",
				zap.Int64("tenant_id", tenant.TenantID), zap.Error(err))
		}
	}

	d.logger.Info("Tenant registered",
		zap.Int64("tenant_id", tenant.TenantID),
		zap.String("name", tenant.Name))
	return tenant, nil
}
