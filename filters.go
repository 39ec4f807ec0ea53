package accesskit

import "time"

// AuditLogFilter narrows queries against the access audit log.
// Zero-valued fields are ignored.
type AuditLogFilter struct {
	ActorID      string
	TargetUserID string
	RoleID       string
	Permission   string
	Action       AuditAction
	Since        time.Time
	Until        time.Time
	Limit        int
	Offset       int
}

// NewAuditLogFilter returns a filter with the default page size.
func NewAuditLogFilter() AuditLogFilter {
	return AuditLogFilter{Limit: 100}
}

// ByActor filters entries performed by the given actor.
func (f AuditLogFilter) ByActor(actorID string) AuditLogFilter {
	f.ActorID = actorID
	return f
}

// ByTargetUser filters entries affecting the given user.
func (f AuditLogFilter) ByTargetUser(userID string) AuditLogFilter {
	f.TargetUserID = userID
	return f
}

// ByRole filters entries affecting the given role.
func (f AuditLogFilter) ByRole(roleID string) AuditLogFilter {
	f.RoleID = roleID
	return f
}

// ByPermission filters entries affecting the given permission name.
func (f AuditLogFilter) ByPermission(permission string) AuditLogFilter {
	f.Permission = permission
	return f
}

// ByAction filters entries by audit action.
func (f AuditLogFilter) ByAction(action AuditAction) AuditLogFilter {
	f.Action = action
	return f
}

// Between filters entries within the given time window.
func (f AuditLogFilter) Between(since, until time.Time) AuditLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// Page sets the limit and offset for pagination.
func (f AuditLogFilter) Page(limit, offset int) AuditLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}
