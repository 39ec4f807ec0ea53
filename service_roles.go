package accesskit

import (
	"context"
	"sort"
	"strings"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// ROLE MANAGEMENT
// ============================================================================

// UpdateRoleInput carries the mutable role fields. Nil pointers leave the
// field unchanged.
type UpdateRoleInput struct {
	Name        *string
	DisplayName *string
	IsActive    *bool
	SortOrder   *int
}

// CreateRole inserts a new role and grants it the given permissions, all in
// one transaction. Permission ids are validated with one batch lookup.
//
// Fails with ErrDuplicateName if the name is taken and ErrNotFound
// (carrying the invalid-id list) if any permission id does not resolve.
func (s *Service) CreateRole(ctx context.Context, name, displayName string, permissionIDs []string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewError(ErrValidation, "role name required")
	}

	actorID := GetActorID(ctx)
	role := &Role{
		Name:        name,
		DisplayName: displayName,
		Provenance:  ProvenanceCustom,
		IsActive:    true,
	}

	err := s.structuralWrite(ctx, func(ctx context.Context, txs *Service) error {
		taken, err := dbkit.Exists[Role](ctx, txs.db, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("name = ?", name)
		})
		if err != nil {
			return dbkit.WithErr1(err, "CreateRole").Err()
		}
		if taken {
			return NewError(ErrDuplicateName, "role name already exists").WithRole(name)
		}

		perms, missing, err := txs.loadPermissionsByIDs(ctx, permissionIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return NewError(ErrNotFound, "unknown permission ids").
				WithRole(name).
				WithInvalidIDs(missing)
		}

		result, err := txs.db.NewInsert().Model(role).Exec(ctx)
		err = dbkit.WithErr(result, err, "CreateRole").Err()
		if err != nil {
			if dbkit.IsDuplicate(err) {
				return NewError(ErrDuplicateName, "role name already exists").WithRole(name)
			}
			return err
		}

		if len(perms) == 0 {
			return nil
		}
		ledger := make([]*RolePermission, len(perms))
		for i := range perms {
			ledger[i] = &RolePermission{
				RoleID:       role.ID,
				PermissionID: perms[i].ID,
				GrantedBy:    actorID,
				GrantedAt:    txs.now(),
			}
		}
		_, err = dbkit.BatchInsert(ctx, txs.db, ledger, dbkit.BatchSize)
		return dbkit.WithErr1(err, "CreateRoleGrants").Err()
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, &AuditEntry{
		ActorID:   actorID,
		Action:    AuditActionRoleCreated,
		RoleID:    role.ID,
		RoleName:  role.Name,
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	})

	return role, nil
}

// UpdateRole mutates a role. System roles cannot be renamed; display name,
// active flag and sort order stay mutable on them.
//
// Fails with ErrNotFound, ErrSystemImmutable (rename of a system role) and
// ErrDuplicateName (rename to a taken name).
func (s *Service) UpdateRole(ctx context.Context, id string, input UpdateRoleInput) (*Role, error) {
	if id == "" {
		return nil, NewError(ErrValidation, "role id required")
	}

	var updated *Role
	err := s.structuralWrite(ctx, func(ctx context.Context, txs *Service) error {
		role, err := txs.getRole(ctx, id)
		if err != nil {
			return err
		}

		if input.Name != nil && *input.Name != role.Name {
			if role.Provenance.IsSystem() {
				return NewError(ErrSystemImmutable, "system roles cannot be renamed").
					WithRole(role.Name)
			}
			newName := strings.TrimSpace(*input.Name)
			if newName == "" {
				return NewError(ErrValidation, "role name required")
			}
			taken, err := dbkit.Exists[Role](ctx, txs.db, func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("name = ? AND id != ?", newName, id)
			})
			if err != nil {
				return dbkit.WithErr1(err, "UpdateRole").Err()
			}
			if taken {
				return NewError(ErrDuplicateName, "role name already exists").WithRole(newName)
			}
			role.Name = newName
		}
		if input.DisplayName != nil {
			role.DisplayName = *input.DisplayName
		}
		if input.IsActive != nil {
			role.IsActive = *input.IsActive
		}
		if input.SortOrder != nil {
			role.SortOrder = *input.SortOrder
		}

		result, err := txs.db.NewUpdate().Model(role).
			Column("name", "display_name", "is_active", "sort_order", "updated_at").
			Where("id = ?", id).
			Exec(ctx)
		if err := dbkit.WithErr(result, err, "UpdateRole").Err(); err != nil {
			return err
		}
		updated = role
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Deactivating (or reactivating) a role changes effective permissions
	// for everyone holding it.
	if err := s.invalidateAllGrants(ctx); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, &AuditEntry{
		ActorID:   GetActorID(ctx),
		Action:    AuditActionRoleUpdated,
		RoleID:    updated.ID,
		RoleName:  updated.Name,
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	})

	return updated, nil
}

// DeleteRole removes a role and its role-permission ledger rows. Deletion
// is refused while any user assignment references the role.
//
// Fails with ErrNotFound, ErrSystemImmutable and ErrRoleInUse (carrying the
// live assignment count).
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	if id == "" {
		return NewError(ErrValidation, "role id required")
	}

	var deletedName string
	err := s.structuralWrite(ctx, func(ctx context.Context, txs *Service) error {
		role, err := txs.getRole(ctx, id)
		if err != nil {
			return err
		}
		if role.Provenance.IsSystem() {
			return NewError(ErrSystemImmutable, "system roles cannot be deleted").
				WithRole(role.Name)
		}

		assignments, err := dbkit.Count[UserRole](ctx, txs.db, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("role_id = ?", id)
		})
		if err != nil {
			return dbkit.WithErr1(err, "DeleteRole").Err()
		}
		if assignments > 0 {
			return NewError(ErrRoleInUse, "role still has user assignments").
				WithRole(role.Name).
				WithCount(assignments)
		}
		deletedName = role.Name

		result, err := txs.db.NewDelete().Table("role_permissions").
			Where("role_id = ?", id).
			Exec(ctx)
		if err := dbkit.WithErr(result, err, "DeleteRoleGrants").Err(); err != nil {
			return err
		}

		result, err = txs.db.NewDelete().Table("roles").Where("id = ?", id).Exec(ctx)
		return dbkit.WithErr(result, err, "DeleteRole").Err()
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, &AuditEntry{
		ActorID:   GetActorID(ctx),
		Action:    AuditActionRoleDeleted,
		RoleID:    id,
		RoleName:  deletedName,
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	})

	return nil
}

// SyncRolePermissions reconciles a role's ledger to exactly the target
// permission id set: removals are applied first, then insertions, in one
// transaction. Calling it again with the same target yields empty deltas.
//
// Unknown permission ids fail the whole operation with ErrNotFound carrying
// the invalid-id list; nothing is written in that case.
func (s *Service) SyncRolePermissions(ctx context.Context, roleID string, permissionIDs []string) (*SyncResult, error) {
	if roleID == "" {
		return nil, NewError(ErrValidation, "role id required")
	}

	actorID := GetActorID(ctx)
	result := &SyncResult{Added: []string{}, Removed: []string{}}
	var roleName string
	var previous, next []string

	err := s.structuralWrite(ctx, func(ctx context.Context, txs *Service) error {
		role, err := txs.getRole(ctx, roleID)
		if err != nil {
			return err
		}
		roleName = role.Name

		targetPerms, missing, err := txs.loadPermissionsByIDs(ctx, permissionIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return NewError(ErrNotFound, "unknown permission ids").
				WithRole(role.Name).
				WithInvalidIDs(missing)
		}

		var ledger []RolePermission
		err = dbkit.WithErr1(
			txs.db.NewSelect().Model(&ledger).Where("role_id = ?", roleID).Scan(ctx),
			"SyncRolePermissions").Err()
		if err != nil {
			return err
		}
		current := make([]string, len(ledger))
		for i := range ledger {
			current[i] = ledger[i].PermissionID
		}

		toAdd, toRemove := diffStrings(current, dedupeStrings(permissionIDs))

		if len(toRemove) > 0 {
			res, err := txs.db.NewDelete().Table("role_permissions").
				Where("role_id = ? AND permission_id IN (?)", roleID, bun.In(toRemove)).
				Exec(ctx)
			if err := dbkit.WithErr(res, err, "SyncRolePermissionsRemove").Err(); err != nil {
				return err
			}
		}

		if len(toAdd) > 0 {
			rows := make([]*RolePermission, len(toAdd))
			for i, pid := range toAdd {
				rows[i] = &RolePermission{
					RoleID:       roleID,
					PermissionID: pid,
					GrantedBy:    actorID,
					GrantedAt:    txs.now(),
				}
			}
			_, err := dbkit.BatchInsert(ctx, txs.db, rows, dbkit.BatchSize)
			if err := dbkit.WithErr1(err, "SyncRolePermissionsAdd").Err(); err != nil {
				return err
			}
		}

		result.Added = append(result.Added, toAdd...)
		result.Removed = append(result.Removed, toRemove...)

		// The audit row records grant sets by name, same vocabulary as
		// UserGrants and RoleGrants.
		previousPerms, _, err := txs.loadPermissionsByIDs(ctx, current)
		if err != nil {
			return err
		}
		previous = permissionNames(previousPerms)
		next = permissionNames(targetPerms)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Everyone holding the role sees a different grant set now.
	if len(result.Added) > 0 || len(result.Removed) > 0 {
		if err := s.invalidateAllGrants(ctx); err != nil {
			return nil, err
		}
	}

	s.recordAudit(ctx, &AuditEntry{
		ActorID:        actorID,
		Action:         AuditActionGrantsSynced,
		RoleID:         roleID,
		RoleName:       roleName,
		PreviousGrants: previous,
		NewGrants:      next,
		IPAddress:      GetIPAddress(ctx),
		UserAgent:      GetUserAgent(ctx),
		RequestID:      GetRequestID(ctx),
	})

	return result, nil
}

// ============================================================================
// ROLE READS
// ============================================================================

// GetRole fetches a role by id.
func (s *Service) GetRole(ctx context.Context, id string) (*Role, error) {
	return s.getRole(ctx, id)
}

// GetRoleByName fetches a role by its unique name.
func (s *Service) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	var role Role
	err := dbkit.WithErr1(
		s.conn(ctx).NewSelect().Model(&role).Where("name = ?", name).Limit(1).Scan(ctx),
		"GetRoleByName").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "role not found").WithRole(name)
		}
		return nil, err
	}
	return &role, nil
}

// ListRoles returns all roles ordered by sort order, then name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	err := dbkit.WithErr1(
		s.conn(ctx).NewSelect().Model(&roles).Order("sort_order ASC").Order("name ASC").Scan(ctx),
		"ListRoles").Err()
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// RoleGrants returns the role's direct grant names (raw, unexpanded),
// skipping expired ledger rows.
func (s *Service) RoleGrants(ctx context.Context, roleID string) ([]string, error) {
	var names []string
	err := dbkit.WithErr1(
		s.conn(ctx).NewRaw(
			"SELECT p.name FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id WHERE rp.role_id = ? AND (rp.expires_at IS NULL OR rp.expires_at > ?)",
			roleID, s.now()).Scan(ctx, &names),
		"RoleGrants").Err()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *Service) getRole(ctx context.Context, id string) (*Role, error) {
	var role Role
	err := dbkit.WithErr1(
		s.conn(ctx).NewSelect().Model(&role).Where("id = ?", id).Limit(1).Scan(ctx),
		"GetRole").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "role not found").WithRole(id)
		}
		return nil, err
	}
	return &role, nil
}

// loadRolesByIDs resolves a batch of role ids in one lookup, returning the
// found rows and the ids that did not resolve.
func (s *Service) loadRolesByIDs(ctx context.Context, ids []string) (map[string]Role, []string, error) {
	ids = dedupeStrings(ids)
	if len(ids) == 0 {
		return nil, nil, nil
	}
	var roles []Role
	err := dbkit.WithErr1(
		s.conn(ctx).NewSelect().Model(&roles).Where("id IN (?)", bun.In(ids)).Scan(ctx),
		"LoadRolesByIDs").Err()
	if err != nil {
		return nil, nil, err
	}
	found := make(map[string]Role, len(roles))
	for i := range roles {
		found[roles[i].ID] = roles[i]
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}
