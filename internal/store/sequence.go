package store

import (
	"context"
	"fmt"
	"strings"

	"tailorworks/internal/models"
	"tailorworks/internal/util"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Sequences mints tenant-scoped integer identifiers from the global
// sequence_counters table. Values are strictly increasing per counter and are
// never reclaimed, so aborted callers leave harmless gaps.
type Sequences struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSequences creates a new sequence allocator
func NewSequences(db *sqlx.DB) *Sequences {
	return &Sequences{db: db, logger: util.GetLogger()}
}

// CounterKey builds the composite counter name: broader scope first, optional
// sub-scopes appended when present.
func CounterKey(name string, tenantID int64, subScope ...string) string {
	parts := []string{name}
	if tenantID > 0 {
		parts = append(parts, fmt.Sprintf("%d", tenantID))
	}
	for _, s := range subScope {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "_")
}

// Next atomically increments and returns the counter value. The increment is
// a single upsert statement, not a read-then-write.
func (s *Sequences) Next(ctx context.Context, name string, tenantID int64, subScope ...string) (int64, error) {
	key := CounterKey(name, tenantID, subScope...)

	var value int64
	err := s.db.GetContext(ctx, &value, `
		INSERT INTO sequence_counters (name, value)
		VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequence_counters.value + 1
		RETURNING value`, key)
	if err != nil {
		util.SequenceFailuresTotal.WithLabelValues(name).Inc()
		return 0, fmt.Errorf("%w: counter %s: %v", models.ErrSequenceUnavailable, key, err)
	}

	util.SequenceAllocationsTotal.WithLabelValues(name).Inc()
	return value, nil
}

// NextOrderID returns the next order id for the tenant. When the counter row
// does not exist yet it is seeded from the current maximum order id already
// present in the tenant's orders table, so migrated historical data never
// collides. Seed and increment are one upsert, so two callers racing on the
// first allocation still observe a single consistent counter.
func (s *Sequences) NextOrderID(ctx context.Context, tenantID int64, ordersTable string) (int64, error) {
	key := CounterKey("order_id", tenantID)

	var value int64
	err := s.db.GetContext(ctx, &value, fmt.Sprintf(`
		INSERT INTO sequence_counters (name, value)
		VALUES ($1, (SELECT COALESCE(MAX(order_id), 0) + 1 FROM %s))
		ON CONFLICT (name) DO UPDATE SET value = sequence_counters.value + 1
		RETURNING value`, ordersTable), key)
	if err != nil {
		util.SequenceFailuresTotal.WithLabelValues("order_id").Inc()
		return 0, fmt.Errorf("%w: counter %s: %v", models.ErrSequenceUnavailable, key, err)
	}

	util.SequenceAllocationsTotal.WithLabelValues("order_id").Inc()
	s.logger.Debug("Order id allocated",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("order_id", value))
	return value, nil
}
