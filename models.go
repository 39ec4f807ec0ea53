package accesskit

import (
	"time"

	"github.com/uptrace/bun"
)

// Provenance marks whether a row was seeded by the system or created by an
// administrator. System rows are structurally immutable: their name, token
// fields and tree position cannot change and they cannot be deleted.
type Provenance string

const (
	ProvenanceSystem Provenance = "system"
	ProvenanceCustom Provenance = "custom"
)

// IsSystem returns true for system-seeded rows.
func (p Provenance) IsSystem() bool {
	return p == ProvenanceSystem
}

// Permission is one entry of the permission catalog. Name is globally
// unique and is either a concrete "module:action" token or a wildcard
// pattern ("*", "*:*", "module:*", "*:action"). The parent/level/path
// fields organize the catalog as a tree for grouping and display only;
// tree position has no bearing on wildcard matching.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:p"`

	ID          string `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name        string `bun:"name,notnull,unique"`
	DisplayName string `bun:"display_name,notnull"`
	Module      string `bun:"module,notnull"`
	Action      string `bun:"action,notnull"`
	Resource    string `bun:"resource"`

	// Tree organization. Level of a root is 1; Path is the materialized
	// ancestor chain "/root/child/...". Both are recomputed for the whole
	// affected subtree on every structural change.
	ParentID string `bun:"parent_id,nullzero,type:uuid"`
	Level    int    `bun:"level,notnull,default:1"`
	Path     string `bun:"path,notnull"`

	Provenance Provenance `bun:"provenance,notnull,default:'custom'"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// IsRoot returns true if the permission has no parent.
func (p *Permission) IsRoot() bool {
	return p.ParentID == ""
}

// Role is a named, orderable bag of permission grants. System roles cannot
// be renamed or deleted; inactive roles are ignored by authorization.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          string     `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name        string     `bun:"name,notnull,unique"`
	DisplayName string     `bun:"display_name,notnull"`
	Provenance  Provenance `bun:"provenance,notnull,default:'custom'"`
	IsActive    bool       `bun:"is_active,notnull,default:true"`
	SortOrder   int        `bun:"sort_order,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// RolePermission is one row of the role-permission ledger. The pair
// (role_id, permission_id) is unique. The role owns its ledger rows and
// they are removed when the role is deleted.
type RolePermission struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rp"`

	ID           string     `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	RoleID       string     `bun:"role_id,notnull,type:uuid"`
	PermissionID string     `bun:"permission_id,notnull,type:uuid"`
	GrantedBy    string     `bun:"granted_by,notnull"`
	GrantedAt    time.Time  `bun:"granted_at,notnull,default:current_timestamp"`
	ExpiresAt    *time.Time `bun:"expires_at,nullzero"`
}

// ActiveAt reports whether the grant is live at the given instant.
// Expiry is passive: expired rows are ignored at read time, never deleted.
func (rp *RolePermission) ActiveAt(now time.Time) bool {
	return rp.ExpiresAt == nil || rp.ExpiresAt.After(now)
}

// UserRole is one row of the user-role ledger. The pair (user_id, role_id)
// is unique. Rows are jointly referenced by user and role but owned by
// neither, so they form an independent audit trail until explicitly
// revoked.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	ID         string     `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID     string     `bun:"user_id,notnull"`
	RoleID     string     `bun:"role_id,notnull,type:uuid"`
	AssignedBy string     `bun:"assigned_by,notnull"`
	AssignedAt time.Time  `bun:"assigned_at,notnull,default:current_timestamp"`
	ExpiresAt  *time.Time `bun:"expires_at,nullzero"`
}

// ActiveAt reports whether the assignment is live at the given instant.
func (ur *UserRole) ActiveAt(now time.Time) bool {
	return ur.ExpiresAt == nil || ur.ExpiresAt.After(now)
}

// AccessAuditLog records all security-relevant mutations for compliance
// and debugging.
type AccessAuditLog struct {
	bun.BaseModel `bun:"table:access_audit_log,alias:aal"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	// Who performed the action
	ActorID string `bun:"actor_id,notnull"`

	// What action was performed
	Action string `bun:"action,notnull"`

	// Target of the action
	TargetUserID string `bun:"target_user_id"`
	RoleID       string `bun:"role_id"`
	RoleName     string `bun:"role_name"`
	PermissionID string `bun:"permission_id"`
	Permission   string `bun:"permission"`

	// Context: the role's grant set before and after the change
	PreviousGrants []string `bun:"previous_grants,type:text[]"`
	NewGrants      []string `bun:"new_grants,type:text[]"`

	// Request metadata for forensics
	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`

	// Additional context (JSON)
	Metadata map[string]any `bun:"metadata,type:jsonb"`
}

// AuditAction values identify the mutation kinds recorded in the audit log.
type AuditAction string

const (
	AuditActionPermissionCreated AuditAction = "permission.created"
	AuditActionPermissionMoved   AuditAction = "permission.moved"
	AuditActionPermissionDeleted AuditAction = "permission.deleted"
	AuditActionRoleCreated       AuditAction = "role.created"
	AuditActionRoleUpdated       AuditAction = "role.updated"
	AuditActionRoleDeleted       AuditAction = "role.deleted"
	AuditActionGrantsSynced      AuditAction = "role.permissions_synced"
	AuditActionRoleAssigned      AuditAction = "role.assigned"
	AuditActionRoleRevoked       AuditAction = "role.revoked"
)

// AuditEntry is used to create new audit log entries.
type AuditEntry struct {
	ActorID        string
	Action         AuditAction
	TargetUserID   string
	RoleID         string
	RoleName       string
	PermissionID   string
	Permission     string
	PreviousGrants []string
	NewGrants      []string
	IPAddress      string
	UserAgent      string
	RequestID      string
	Metadata       map[string]any
}

// ToModel converts an AuditEntry to an AccessAuditLog model.
func (e *AuditEntry) ToModel() *AccessAuditLog {
	return &AccessAuditLog{
		ActorID:        e.ActorID,
		Action:         string(e.Action),
		TargetUserID:   e.TargetUserID,
		RoleID:         e.RoleID,
		RoleName:       e.RoleName,
		PermissionID:   e.PermissionID,
		Permission:     e.Permission,
		PreviousGrants: e.PreviousGrants,
		NewGrants:      e.NewGrants,
		IPAddress:      e.IPAddress,
		UserAgent:      e.UserAgent,
		RequestID:      e.RequestID,
		Metadata:       e.Metadata,
		Timestamp:      time.Now(),
	}
}
