package store

import (
	"context"
	"fmt"
	"sync"

	"tailorworks/internal/models"
	"tailorworks/internal/util"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Kind names an entity collection that exists once per tenant
type Kind string

const (
	KindOrders          Kind = "orders"
	KindOrderItems      Kind = "order_items"
	KindMeasurements    Kind = "order_item_measurements"
	KindPatterns        Kind = "order_item_patterns"
	KindAdditionalCosts Kind = "order_additional_costs"
	KindCustomers       Kind = "customers"
	KindRoles           Kind = "roles"
	KindOrderAudit      Kind = "order_audit"
)

var allKinds = []Kind{
	KindOrders, KindOrderItems, KindMeasurements, KindPatterns,
	KindAdditionalCosts, KindCustomers, KindRoles, KindOrderAudit,
}

// DDL per kind; %s is the physical table name. All ids are allocated by the
// sequence counters, never by storage serials.
var kindDDL = map[Kind]string{
	KindOrders: `CREATE TABLE IF NOT EXISTS %s (
		order_id BIGINT PRIMARY KEY,
		branch_id BIGINT NOT NULL DEFAULT 0,
		customer_id BIGINT NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		stitching_type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'received',
		estimation NUMERIC(12,2) NOT NULL DEFAULT 0,
		advance NUMERIC(12,2) NOT NULL DEFAULT 0,
		discount NUMERIC(12,2) NOT NULL DEFAULT 0,
		gst NUMERIC(12,2) NOT NULL DEFAULT 0,
		delivery_date TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	KindOrderItems: `CREATE TABLE IF NOT EXISTS %s (
		order_item_id BIGINT NOT NULL,
		order_id BIGINT NOT NULL,
		dress_type_id BIGINT NOT NULL DEFAULT 0,
		dress_name TEXT NOT NULL DEFAULT '',
		quantity INT NOT NULL DEFAULT 1,
		delivery_date TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		measurement_id BIGINT NOT NULL,
		pattern_id BIGINT NOT NULL,
		PRIMARY KEY (order_id, order_item_id)
	)`,
	KindMeasurements: `CREATE TABLE IF NOT EXISTS %s (
		measurement_id BIGINT NOT NULL,
		order_id BIGINT NOT NULL,
		order_item_id BIGINT NOT NULL,
		measurements JSONB NOT NULL DEFAULT '{}',
		PRIMARY KEY (order_id, order_item_id)
	)`,
	KindPatterns: `CREATE TABLE IF NOT EXISTS %s (
		pattern_id BIGINT NOT NULL,
		order_id BIGINT NOT NULL,
		order_item_id BIGINT NOT NULL,
		selections JSONB NOT NULL DEFAULT '{}',
		PRIMARY KEY (order_id, order_item_id)
	)`,
	KindAdditionalCosts: `CREATE TABLE IF NOT EXISTS %s (
		additional_cost_id BIGINT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		order_item_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		amount NUMERIC(12,2) NOT NULL DEFAULT 0
	)`,
	KindCustomers: `CREATE TABLE IF NOT EXISTS %s (
		customer_id BIGINT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		mobile TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	KindRoles: `CREATE TABLE IF NOT EXISTS %s (
		role_id BIGINT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	KindOrderAudit: `CREATE TABLE IF NOT EXISTS %s (
		audit_id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL,
		action TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT '',
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// kindSeeds holds rows inserted exactly once, when a newly created
// collection is still empty.
var kindSeeds = map[Kind]string{
	KindRoles: `INSERT INTO %s (role_id, name) VALUES (1, 'owner'), (2, 'manager'), (3, 'tailor')`,
}

// Collection is a handle on one tenant's physical table
type Collection struct {
	Kind     Kind
	TenantID int64
	Name     string
}

// PhysicalName maps (kind, tenant) to the physical table name
func PhysicalName(kind Kind, tenantID int64) string {
	return fmt.Sprintf("%s_%d", kind, tenantID)
}

type collectionEntry struct {
	once sync.Once
	col  *Collection
	err  error
}

// Registry resolves (kind, tenant) pairs to collection handles, creating the
// physical table on first use and memoizing the handle for the process
// lifetime. Safe for concurrent use.
type Registry struct {
	db         *sqlx.DB
	maxPerShop int
	logger     *zap.Logger

	mu      sync.Mutex
	entries map[string]*collectionEntry
}

// NewRegistry creates a new collection registry
func NewRegistry(db *sqlx.DB, maxPerShop int) *Registry {
	return &Registry{
		db:         db,
		maxPerShop: maxPerShop,
		logger:     util.GetLogger(),
		entries:    make(map[string]*collectionEntry),
	}
}

// Resolve returns the tenant's collection handle for the given kind. The
// first caller for a given (kind, tenant) performs exactly one creation
// attempt; concurrent callers observe its result.
func (r *Registry) Resolve(ctx context.Context, kind Kind, tenantID int64) (*Collection, error) {
	if tenantID <= 0 {
		return nil, fmt.Errorf("%w: tenant id %d", models.ErrInvalidTenant, tenantID)
	}
	if _, ok := kindDDL[kind]; !ok {
		return nil, fmt.Errorf("unknown collection kind %q", kind)
	}

	name := PhysicalName(kind, tenantID)

	r.mu.Lock()
	entry, ok := r.entries[name]
	if !ok {
		entry = &collectionEntry{}
		r.entries[name] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		entry.col, entry.err = r.create(ctx, kind, tenantID, name)
		if entry.err != nil {
			// Allow a later caller to retry a failed creation.
			r.mu.Lock()
			delete(r.entries, name)
			r.mu.Unlock()
		}
	})
	return entry.col, entry.err
}

func (r *Registry) create(ctx context.Context, kind Kind, tenantID int64, name string) (*Collection, error) {
	exists, err := r.tableExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection %s: %w", name, err)
	}

	if !exists {
		if err := r.checkQuota(ctx, tenantID); err != nil {
			return nil, err
		}

		if _, err := r.db.ExecContext(ctx, fmt.Sprintf(kindDDL[kind], name)); err != nil {
			if isQuotaError(err) {
				return nil, fmt.Errorf("%w: %s", models.ErrStorageQuotaExceeded, name)
			}
			return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
		}

		util.CollectionsCreatedTotal.WithLabelValues(string(kind)).Inc()
		r.logger.Info("Collection created",
			zap.String("collection", name),
			zap.Int64("tenant_id", tenantID))

		if err := r.seed(ctx, kind, name); err != nil {
			return nil, err
		}
	}

	return &Collection{Kind: kind, TenantID: tenantID, Name: name}, nil
}

// seed inserts the kind's default rows, only while the new table is empty
func (r *Registry) seed(ctx context.Context, kind Kind, name string) error {
	stmt, ok := kindSeeds[kind]
	if !ok {
		return nil
	}

	var count int
	if err := r.db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", name)); err != nil {
		return fmt.Errorf("failed to check seed state of %s: %w", name, err)
	}
	if count > 0 {
		return nil
	}

	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(stmt, name)); err != nil {
		return fmt.Errorf("failed to seed collection %s: %w", name, err)
	}
	r.logger.Info("Collection seeded", zap.String("collection", name))
	return nil
}

// checkQuota refuses collection creation once the tenant has reached the
// configured cap on physical tables.
func (r *Registry) checkQuota(ctx context.Context, tenantID int64) error {
	if r.maxPerShop <= 0 {
		return nil
	}

	names := make([]string, 0, len(allKinds))
	for _, k := range allKinds {
		names = append(names, PhysicalName(k, tenantID))
	}

	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = ANY($1)",
		pq.Array(names))
	if err != nil {
		return fmt.Errorf("failed to count tenant collections: %w", err)
	}

	if count >= r.maxPerShop {
		return fmt.Errorf("%w: tenant %d has %d collections (cap %d)",
			models.ErrStorageQuotaExceeded, tenantID, count, r.maxPerShop)
	}
	return nil
}

func (r *Registry) tableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
		name)
	return exists, err
}

// isQuotaError reports whether the engine refused the DDL for capacity
// reasons rather than a generic failure.
func isQuotaError(err error) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return false
	}
	// 53000 insufficient_resources, 53100 disk_full, 53200 out_of_memory,
	// 53300 too_many_connections
	return pqErr.Code.Class() == "53"
}
