package accesskit

import (
	"context"
	"sort"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// AUTHORIZATION CHECK
// ============================================================================

// HasPermission answers "does user U hold permission P". It loads the
// user's non-expired role assignments and matches each role's direct
// grants (raw, never expanded) against the requested name, returning true
// on the first hit. Pure read path with no side effects; safe to call
// concurrently.
func (s *Service) HasPermission(ctx context.Context, userID, permission string) bool {
	grants, err := s.UserGrants(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "authorization check failed",
			"user_id", userID,
			"permission", permission,
			"error", err)
		return false
	}
	return matchAnyGrant(ParseGrants(grants), permission)
}

// HasAnyPermission checks if the user holds at least one of the given
// permissions.
func (s *Service) HasAnyPermission(ctx context.Context, userID string, permissions []string) bool {
	grants, err := s.UserGrants(ctx, userID)
	if err != nil {
		return false
	}
	parsed := ParseGrants(grants)
	for _, p := range permissions {
		if matchAnyGrant(parsed, p) {
			return true
		}
	}
	return false
}

// UserGrants returns the user's raw grant set: the union of the direct
// grant names of every active, non-expired role the user holds. Wildcard
// patterns appear as stored; nothing is expanded. Served from the grant
// cache when one is configured.
func (s *Service) UserGrants(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrNoUserID
	}

	if s.cache != nil {
		if grants, ok := s.cache.Get(ctx, userID); ok {
			return grants, nil
		}
	}

	now := s.now()
	var names []string
	err := dbkit.WithErr1(
		s.conn(ctx).NewRaw(
			`SELECT DISTINCT p.name
			 FROM user_roles ur
			 JOIN roles r ON r.id = ur.role_id AND r.is_active
			 JOIN role_permissions rp ON rp.role_id = r.id
			 JOIN permissions p ON p.id = rp.permission_id
			 WHERE ur.user_id = ?
			   AND (ur.expires_at IS NULL OR ur.expires_at > ?)
			   AND (rp.expires_at IS NULL OR rp.expires_at > ?)`,
			userID, now, now).Scan(ctx, &names),
		"UserGrants").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			names = nil
		} else {
			return nil, err
		}
	}
	sort.Strings(names)

	if s.cache != nil {
		// Best effort; a failed fill only costs the next read a query.
		if err := s.cache.Set(ctx, userID, names); err != nil {
			s.logger.WarnContext(ctx, "grant cache fill failed",
				"user_id", userID,
				"error", err)
		}
	}

	return names, nil
}

// EffectivePermissions expands the user's grant set against the given
// catalog snapshot into the concrete permissions it covers. Display and
// statistics path only; HasPermission never expands.
func (s *Service) EffectivePermissions(ctx context.Context, userID string, catalog *Catalog) ([]string, error) {
	grants, err := s.UserGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	return catalog.ExpandNames(grants), nil
}

// GetChecker loads the user's grants and wraps them in a Checker for
// repeated checks within one request.
func (s *Service) GetChecker(ctx context.Context, userID string) (*Checker, error) {
	grants, err := s.UserGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	roles, err := s.UserActiveRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewChecker(userID, roles, grants), nil
}

// GetCheckerFromContext creates a Checker using the user ID from context.
func (s *Service) GetCheckerFromContext(ctx context.Context) (*Checker, error) {
	userID := GetUserID(ctx)
	if userID == "" {
		return nil, ErrNoUserID
	}
	return s.GetChecker(ctx, userID)
}
