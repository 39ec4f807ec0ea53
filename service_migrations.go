package accesskit

import (
	"github.com/fernandezvara/dbkit"
)

// MigrationService provides migration management functionality as an extension to Service
type MigrationService struct {
	*Service
}

// NewMigrationService creates a new migration service extension
func NewMigrationService(service *Service) *MigrationService {
	return &MigrationService{Service: service}
}

// Migrations returns all database migrations required for AccessKit.
// Use dbkit.Migrate(ctx, service.Migrations()) to run migrations.
// Use dbkit.MigrationStatus(ctx, service.Migrations()) to check status.
func (ms *MigrationService) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "accesskit-001",
			Description: "Create permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS permissions (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    name TEXT NOT NULL UNIQUE,
                    display_name TEXT NOT NULL,
                    module TEXT NOT NULL,
                    action TEXT NOT NULL,
                    resource TEXT,
                    parent_id UUID REFERENCES permissions(id),
                    level INTEGER NOT NULL DEFAULT 1,
                    path TEXT NOT NULL,
                    provenance TEXT NOT NULL DEFAULT 'custom',
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp
                );
                CREATE INDEX IF NOT EXISTS idx_permissions_parent_id ON permissions(parent_id);
                CREATE INDEX IF NOT EXISTS idx_permissions_path ON permissions(path);
                CREATE INDEX IF NOT EXISTS idx_permissions_module ON permissions(module)`,
		},
		{
			ID:          "accesskit-002",
			Description: "Create roles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS roles (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    name TEXT NOT NULL UNIQUE,
                    display_name TEXT NOT NULL,
                    provenance TEXT NOT NULL DEFAULT 'custom',
                    is_active BOOLEAN NOT NULL DEFAULT true,
                    sort_order INTEGER NOT NULL DEFAULT 0,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "accesskit-003",
			Description: "Create role_permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS role_permissions (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    role_id UUID NOT NULL REFERENCES roles(id),
                    permission_id UUID NOT NULL REFERENCES permissions(id),
                    granted_by TEXT NOT NULL,
                    granted_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    expires_at TIMESTAMPTZ,
                    UNIQUE (role_id, permission_id)
                );
                CREATE INDEX IF NOT EXISTS idx_role_permissions_role_id ON role_permissions(role_id)`,
		},
		{
			ID:          "accesskit-004",
			Description: "Create user_roles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS user_roles (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    user_id TEXT NOT NULL,
                    role_id UUID NOT NULL REFERENCES roles(id),
                    assigned_by TEXT NOT NULL,
                    assigned_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    expires_at TIMESTAMPTZ,
                    UNIQUE (user_id, role_id)
                );
                CREATE INDEX IF NOT EXISTS idx_user_roles_user_id ON user_roles(user_id);
                CREATE INDEX IF NOT EXISTS idx_user_roles_role_id ON user_roles(role_id)`,
		},
		{
			ID:          "accesskit-005",
			Description: "Create access_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS access_audit_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT NOT NULL,
                    action TEXT NOT NULL,
                    target_user_id TEXT,
                    role_id TEXT,
                    role_name TEXT,
                    permission_id TEXT,
                    permission TEXT,
                    previous_grants TEXT[],
                    new_grants TEXT[],
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT,
                    metadata JSONB
                );
                CREATE INDEX IF NOT EXISTS idx_access_audit_log_actor_id ON access_audit_log(actor_id);
                CREATE INDEX IF NOT EXISTS idx_access_audit_log_target_user_id ON access_audit_log(target_user_id);
                CREATE INDEX IF NOT EXISTS idx_access_audit_log_timestamp ON access_audit_log(timestamp)`,
		},
	}
}
