package accesskit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// HealthService exposes database health checks as an extension of Service.
// When the service was built from a full dbkit handle the checks delegate
// to dbkit; over a bare transaction or another IDB only a raw SELECT 1 is
// possible.
type HealthService struct {
	*Service
}

// NewHealthService creates a new health service extension
func NewHealthService(service *Service) *HealthService {
	return &HealthService{Service: service}
}

// selectOne runs the minimal liveness query against whatever handle the
// service holds.
func (hs *HealthService) selectOne(ctx context.Context) error {
	var one int
	return hs.db.NewSelect().Model((*struct{})(nil)).ColumnExpr("1").Limit(1).Scan(ctx, &one)
}

// Health reports the full health status: reachability, latency and pool
// statistics where the handle supports them.
func (hs *HealthService) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}
	return dbkit.HealthStatus{
		Healthy: hs.selectOne(ctx) == nil,
		Error:   "Limited health check - not a DBKit instance",
	}
}

// IsHealthy reports whether the database answers at all.
func (hs *HealthService) IsHealthy(ctx context.Context) bool {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return db.IsHealthy(ctx)
	}
	return hs.selectOne(ctx) == nil
}

// GetPoolStats returns connection pool statistics, zero values when the
// handle has no pool.
func (hs *HealthService) GetPoolStats() dbkit.PoolStats {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return dbkit.PoolStatsFromSQL(db.Stats())
	}
	return dbkit.PoolStats{}
}

// Ping runs one round trip to the database and returns its error.
func (hs *HealthService) Ping(ctx context.Context) error {
	return hs.selectOne(ctx)
}
