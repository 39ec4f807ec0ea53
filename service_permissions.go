package accesskit

import (
	"context"
	"sort"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// PERMISSION CATALOG & HIERARCHY
// ============================================================================

// CreatePermissionInput carries the fields for a new catalog entry.
type CreatePermissionInput struct {
	Name        string
	DisplayName string
	Module      string
	Action      string
	Resource    string
	ParentID    string     // optional; empty creates a root node
	Provenance  Provenance // defaults to ProvenanceCustom
}

// CreatePermission inserts a new permission into the catalog. When a parent
// is given the node is placed under it: level = parent.level+1 and path =
// parent.path + "/" + name. Root nodes get level 1 and path "/" + name.
//
// Fails with ErrDuplicateName if the name is taken, ErrNotFound if the
// parent is missing, ErrInvalidPermission for malformed names.
func (s *Service) CreatePermission(ctx context.Context, input CreatePermissionInput) (*Permission, error) {
	if err := DefaultMatcher.Validate(input.Name); err != nil {
		return nil, err
	}
	if input.Provenance == "" {
		input.Provenance = ProvenanceCustom
	}

	perm := &Permission{
		Name:        input.Name,
		DisplayName: input.DisplayName,
		Module:      input.Module,
		Action:      input.Action,
		Resource:    input.Resource,
		ParentID:    input.ParentID,
		Provenance:  input.Provenance,
	}

	err := s.structuralWrite(ctx, func(ctx context.Context, txs *Service) error {
		taken, err := dbkit.Exists[Permission](ctx, txs.db, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("name = ?", input.Name)
		})
		if err != nil {
			return dbkit.WithErr1(err, "CreatePermission").Err()
		}
		if taken {
			return NewError(ErrDuplicateName, "permission name already exists").
				WithPermission(input.Name)
		}

		if input.ParentID != "" {
			parent, err := txs.getPermission(ctx, input.ParentID)
			if err != nil {
				if IsNotFound(err) {
					return NewError(ErrNotFound, "parent permission not found").
						WithPermission(input.ParentID)
				}
				return err
			}
			perm.Level = parent.Level + 1
			perm.Path = childPath(parent.Path, perm.Name)
		} else {
			perm.Level = rootLevel
			perm.Path = childPath("", perm.Name)
		}

		result, err := txs.db.NewInsert().Model(perm).Exec(ctx)
		err = dbkit.WithErr(result, err, "CreatePermission").Err()
		if err != nil {
			if dbkit.IsDuplicate(err) {
				return NewError(ErrDuplicateName, "permission name already exists").
					WithPermission(input.Name)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, &AuditEntry{
		ActorID:      GetActorID(ctx),
		Action:       AuditActionPermissionCreated,
		PermissionID: perm.ID,
		Permission:   perm.Name,
		IPAddress:    GetIPAddress(ctx),
		UserAgent:    GetUserAgent(ctx),
		RequestID:    GetRequestID(ctx),
	})

	return perm, nil
}

// MovePermission re-parents a catalog node. Passing an empty newParentID
// makes the node a root. Level and path are recomputed for the node and
// every descendant inside one transaction; the whole subtree is rewritten
// rather than patched.
//
// Fails with ErrNotFound if the node or new parent is absent,
// ErrSystemImmutable for system nodes, ErrCycleDetected when the new
// parent is the node itself or one of its descendants. On any failure the
// tree is left untouched.
func (s *Service) MovePermission(ctx context.Context, id, newParentID string) (*Permission, error) {
	if id == "" {
		return nil, NewError(ErrValidation, "permission id required")
	}

	var moved *Permission
	err := s.structuralWrite(ctx, func(ctx context.Context, txs *Service) error {
		perms, err := txs.loadAllPermissions(ctx)
		if err != nil {
			return err
		}
		byID, children := indexPermissions(perms)

		node, ok := byID[id]
		if !ok {
			return NewError(ErrNotFound, "permission not found").WithPermission(id)
		}
		if node.Provenance.IsSystem() {
			return NewError(ErrSystemImmutable, "system permissions cannot be moved").
				WithPermission(node.Name)
		}
		if newParentID != "" {
			if _, ok := byID[newParentID]; !ok {
				return NewError(ErrNotFound, "new parent permission not found").
					WithPermission(newParentID)
			}
		}
		if wouldCreateCycle(byID, id, newParentID) {
			return NewError(ErrCycleDetected, "move would create a cycle").
				WithPermission(node.Name)
		}

		node.ParentID = newParentID
		modified := recomputeSubtree(byID, children, id)

		for _, p := range modified {
			result, err := txs.db.NewUpdate().Model(p).
				Column("parent_id", "level", "path", "updated_at").
				Where("id = ?", p.ID).
				Exec(ctx)
			if err := dbkit.WithErr(result, err, "MovePermission").Err(); err != nil {
				return err
			}
		}

		copied := *node
		moved = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, &AuditEntry{
		ActorID:      GetActorID(ctx),
		Action:       AuditActionPermissionMoved,
		PermissionID: moved.ID,
		Permission:   moved.Name,
		Metadata:     map[string]any{"new_parent_id": newParentID, "path": moved.Path},
		IPAddress:    GetIPAddress(ctx),
		UserAgent:    GetUserAgent(ctx),
		RequestID:    GetRequestID(ctx),
	})

	return moved, nil
}

// DeletePermission removes a catalog node and cascades to all of its
// descendants and their role-permission ledger rows, in one transaction.
//
// Fails with ErrNotFound if the node is absent and ErrSystemImmutable for
// system nodes.
func (s *Service) DeletePermission(ctx context.Context, id string) error {
	if id == "" {
		return NewError(ErrValidation, "permission id required")
	}

	var deletedName string
	err := s.structuralWrite(ctx, func(ctx context.Context, txs *Service) error {
		perms, err := txs.loadAllPermissions(ctx)
		if err != nil {
			return err
		}
		byID, children := indexPermissions(perms)

		node, ok := byID[id]
		if !ok {
			return NewError(ErrNotFound, "permission not found").WithPermission(id)
		}
		if node.Provenance.IsSystem() {
			return NewError(ErrSystemImmutable, "system permissions cannot be deleted").
				WithPermission(node.Name)
		}
		deletedName = node.Name

		ids := collectSubtreeIDs(children, id)

		result, err := txs.db.NewDelete().Table("role_permissions").
			Where("permission_id IN (?)", bun.In(ids)).
			Exec(ctx)
		if err := dbkit.WithErr(result, err, "DeletePermissionGrants").Err(); err != nil {
			return err
		}

		result, err = txs.db.NewDelete().Table("permissions").
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		return dbkit.WithErr(result, err, "DeletePermission").Err()
	})
	if err != nil {
		return err
	}

	// Ledger rows were removed, so cached grant sets may be stale.
	if err := s.invalidateAllGrants(ctx); err != nil {
		return err
	}

	s.recordAudit(ctx, &AuditEntry{
		ActorID:      GetActorID(ctx),
		Action:       AuditActionPermissionDeleted,
		PermissionID: id,
		Permission:   deletedName,
		IPAddress:    GetIPAddress(ctx),
		UserAgent:    GetUserAgent(ctx),
		RequestID:    GetRequestID(ctx),
	})

	return nil
}

// PermissionTree returns the full catalog as a nested parent/children view
// for grouping and display. Tree position has no effect on authorization.
func (s *Service) PermissionTree(ctx context.Context) ([]*PermissionNode, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Tree(), nil
}

// Catalog loads a fresh immutable snapshot of the full permission set. The
// snapshot is the explicit handle passed into expansion; it is never
// consulted by HasPermission.
func (s *Service) Catalog(ctx context.Context) (*Catalog, error) {
	perms, err := s.loadAllPermissions(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalog(s.now().UnixNano(), perms), nil
}

// GetPermission fetches one catalog entry by id.
func (s *Service) GetPermission(ctx context.Context, id string) (*Permission, error) {
	return s.getPermission(ctx, id)
}

// GetPermissionByName fetches one catalog entry by name.
func (s *Service) GetPermissionByName(ctx context.Context, name string) (*Permission, error) {
	var perm Permission
	err := dbkit.WithErr1(
		s.conn(ctx).NewSelect().Model(&perm).Where("name = ?", name).Limit(1).Scan(ctx),
		"GetPermissionByName").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "permission not found").WithPermission(name)
		}
		return nil, err
	}
	return &perm, nil
}

// CountPermissions returns the catalog size.
func (s *Service) CountPermissions(ctx context.Context) (int, error) {
	return dbkit.Count[Permission](ctx, s.conn(ctx), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q
	})
}

func (s *Service) getPermission(ctx context.Context, id string) (*Permission, error) {
	var perm Permission
	err := dbkit.WithErr1(
		s.conn(ctx).NewSelect().Model(&perm).Where("id = ?", id).Limit(1).Scan(ctx),
		"GetPermission").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "permission not found").WithPermission(id)
		}
		return nil, err
	}
	return &perm, nil
}

func (s *Service) loadAllPermissions(ctx context.Context) ([]Permission, error) {
	var perms []Permission
	err := dbkit.WithErr1(
		s.conn(ctx).NewSelect().Model(&perms).Order("path ASC").Scan(ctx),
		"LoadPermissions").Err()
	if err != nil {
		return nil, err
	}
	return perms, nil
}

// permissionNames extracts the sorted name set of a permission list.
func permissionNames(perms []Permission) []string {
	names := make([]string, len(perms))
	for i := range perms {
		names[i] = perms[i].Name
	}
	sort.Strings(names)
	return names
}

// loadPermissionsByIDs resolves a batch of ids in one lookup, returning the
// found rows and the ids that did not resolve.
func (s *Service) loadPermissionsByIDs(ctx context.Context, ids []string) ([]Permission, []string, error) {
	ids = dedupeStrings(ids)
	if len(ids) == 0 {
		return nil, nil, nil
	}
	var perms []Permission
	err := dbkit.WithErr1(
		s.conn(ctx).NewSelect().Model(&perms).Where("id IN (?)", bun.In(ids)).Scan(ctx),
		"LoadPermissionsByIDs").Err()
	if err != nil {
		return nil, nil, err
	}
	found := make(map[string]struct{}, len(perms))
	for i := range perms {
		found[perms[i].ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return perms, missing, nil
}
