package accesskit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Database defines the database operations interface for dependency injection
type Database interface {
	dbkit.IDB
}

// TransactionManager defines the transaction management interface
type TransactionManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context) error) error
	ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// MigrationManager defines the migration management interface
type MigrationManager interface {
	Migrations() []dbkit.Migration
}

// HealthMonitor defines the health monitoring interface
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	GetPoolStats() dbkit.PoolStats
}

// PoolManager defines the connection pool management interface
type PoolManager interface {
	ConfigureConnectionPool(config PoolConfig) error
	GetConnectionPoolConfig() (*PoolConfig, error)
	OptimizeConnectionPool() error
	ResetConnectionPool() error
}

// PermissionCatalog defines the catalog read surface used by authorization
// consumers that never mutate the tree.
type PermissionCatalog interface {
	Catalog(ctx context.Context) (*Catalog, error)
	PermissionTree(ctx context.Context) ([]*PermissionNode, error)
	GetPermission(ctx context.Context, id string) (*Permission, error)
	GetPermissionByName(ctx context.Context, name string) (*Permission, error)
}

// Authorizer defines the permission checking interface
type Authorizer interface {
	HasPermission(ctx context.Context, userID, permission string) bool
	HasAnyPermission(ctx context.Context, userID string, permissions []string) bool
	UserGrants(ctx context.Context, userID string) ([]string, error)
	EffectivePermissions(ctx context.Context, userID string, catalog *Catalog) ([]string, error)
	GetChecker(ctx context.Context, userID string) (*Checker, error)
}

// AssignmentManager defines the user-role ledger interface
type AssignmentManager interface {
	AssignRolesToUser(ctx context.Context, userID string, roleIDs []string, assignedBy string, expiresAt *time.Time) ([]AssignmentOutcome, error)
	BatchAssignRolesToUsers(ctx context.Context, userIDs, roleIDs []string, assignedBy string, expiresAt *time.Time) ([]AssignmentOutcome, error)
	RemoveRolesFromUser(ctx context.Context, userID string, roleIDs []string) ([]AssignmentOutcome, error)
	UserRoleAssignments(ctx context.Context, userID string) ([]UserRole, error)
	UserActiveRoles(ctx context.Context, userID string) ([]Role, error)
}

// TransactionMonitor defines the transaction monitoring interface
type TransactionMonitor interface {
	GetTransactionMetrics() TransactionMetrics
	ResetTransactionMetrics()
	IsTransactionHealthy() bool
}
