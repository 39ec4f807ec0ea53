// Package accesskit provides a database-backed RBAC engine with a
// hierarchical permission catalog, wildcard grants and audited role
// assignment ledgers.
//
// # Core Concepts
//
// Permission: A catalog entry named by a "module:action" token, e.g.
// "user:read" or "billing:export". The catalog is organized as a tree
// (materialized paths) for grouping and display; tree position never
// affects authorization.
//
// Wildcard grants: A permission name may itself be a pattern. "user:*"
// covers every action of the user module, "*:read" covers the read action
// of every module, and "*" (or "*:*") covers everything. Wildcards are
// resolved at check time against the requested token, so new concrete
// permissions are covered retroactively.
//
// Role: A named bag of permission grants. A user's effective grants are
// the union over their active, unexpired role assignments.
//
// Ledgers: role-permission and user-role links are append-style ledgers
// with optional expiry. Expiry is passive: expired rows are ignored at
// read time, never deleted, so the history stays auditable.
//
// # Key Features
//
//   - Hierarchical catalog: parent/level/path with atomic subtree moves
//   - Full wildcard support: *, module:*, *:action
//   - Diff-based sync: declare a role's target grant set, the engine
//     computes and applies the delta in one transaction
//   - Batch assignment with per-pair outcomes; one bad pair never blocks
//     the rest
//   - System rows: seeded entries are immutable and undeletable
//   - Detailed audit logging: who, what, when, previous and new grants
//   - Optional Redis-backed grant cache with synchronous invalidation
//   - DBKit integration: uses your existing database connection
//
// # Basic Usage
//
//	// 1. Create the service
//	service := accesskit.NewService(db)
//
//	// 2. Run migrations
//	ms := accesskit.NewMigrationService(service)
//	dbkit.Migrate(ctx, db, ms.Migrations())
//
//	// 3. Build the catalog
//	perm, _ := service.CreatePermission(ctx, accesskit.CreatePermissionInput{
//	    Name:        "user:read",
//	    DisplayName: "Read users",
//	    Module:      "user",
//	    Action:      "read",
//	})
//
//	// 4. Create a role and declare its grants
//	role, _ := service.CreateRole(ctx, "support", "Support Staff", []string{perm.ID})
//
//	// 5. Assign and check
//	service.AssignRolesToUser(ctx, userID, []string{role.ID}, actorID, nil)
//
//	if service.HasPermission(ctx, userID, "user:read") {
//	    // allowed
//	}
//
// # Middleware Usage
//
//	mw := accesskit.NewMiddleware(service)
//
//	router.Use(mw.InjectAuditContext())
//	router.With(mw.RequirePermission("user:delete")).
//	    Delete("/users/{userID}", deleteUserHandler)
//
// # Audit Log
//
// All catalog, role and assignment mutations are automatically logged
// with actor, action, target, previous/new grant sets, timestamp and
// request metadata (IP, user agent, request ID) taken from the context.
package accesskit
