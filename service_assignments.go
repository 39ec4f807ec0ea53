package accesskit

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// USER-ROLE ASSIGNMENT LEDGER
// ============================================================================

// AssignRolesToUser grants the given roles to one user. See
// BatchAssignRolesToUsers for the outcome semantics.
func (s *Service) AssignRolesToUser(ctx context.Context, userID string, roleIDs []string, assignedBy string, expiresAt *time.Time) ([]AssignmentOutcome, error) {
	return s.BatchAssignRolesToUsers(ctx, []string{userID}, roleIDs, assignedBy, expiresAt)
}

// BatchAssignRolesToUsers assigns every role to every user (cross product)
// and reports one outcome per requested pair. Role existence is validated
// with one batch lookup; pairs already present in the ledger are reported
// AlreadyAssigned. Business-level failures never abort the batch: every
// pair that validated is committed even when others failed. An
// infrastructure fault aborts the whole transaction.
func (s *Service) BatchAssignRolesToUsers(ctx context.Context, userIDs, roleIDs []string, assignedBy string, expiresAt *time.Time) ([]AssignmentOutcome, error) {
	// Reject blank ids outright; dropping them would break the
	// one-outcome-per-pair contract.
	if hasBlank(userIDs) {
		return nil, NewError(ErrValidation, "blank user id in list")
	}
	if hasBlank(roleIDs) {
		return nil, NewError(ErrValidation, "blank role id in list")
	}
	userIDs = dedupeStrings(userIDs)
	roleIDs = dedupeStrings(roleIDs)
	if len(userIDs) == 0 {
		return nil, NewError(ErrValidation, "at least one user id required")
	}
	if len(roleIDs) == 0 {
		return nil, NewError(ErrValidation, "at least one role id required")
	}
	if assignedBy == "" {
		assignedBy = GetActorID(ctx)
	}
	if assignedBy == "" {
		return nil, NewError(ErrNoActorID, "assigner required for role assignment")
	}

	var outcomes []AssignmentOutcome
	var assignedUsers []string

	err := s.structuralWrite(ctx, func(ctx context.Context, txs *Service) error {
		roles, missing, err := txs.loadRolesByIDs(ctx, roleIDs)
		if err != nil {
			return err
		}
		missingSet := make(map[string]struct{}, len(missing))
		for _, id := range missing {
			missingSet[id] = struct{}{}
		}

		for _, userID := range userIDs {
			userChanged := false
			for _, roleID := range roleIDs {
				if _, absent := missingSet[roleID]; absent {
					outcomes = append(outcomes, AssignmentOutcome{
						UserID: userID,
						RoleID: roleID,
						Status: OutcomeNotFound,
						Reason: "role does not exist",
					})
					continue
				}

				assignment := &UserRole{
					UserID:     userID,
					RoleID:     roleID,
					AssignedBy: assignedBy,
					AssignedAt: txs.now(),
					ExpiresAt:  expiresAt,
				}
				result, err := txs.db.NewInsert().
					Model(assignment).
					On("CONFLICT (user_id, role_id) DO NOTHING").
					Exec(ctx)
				if err := dbkit.WithErr(result, err, "BatchAssignRoles").Err(); err != nil {
					return err
				}
				rows, err := result.RowsAffected()
				if err != nil {
					return err
				}
				if rows == 0 {
					outcomes = append(outcomes, AssignmentOutcome{
						UserID: userID,
						RoleID: roleID,
						Status: OutcomeAlreadyAssigned,
						Reason: "user already holds this role",
					})
					continue
				}

				userChanged = true
				outcomes = append(outcomes, AssignmentOutcome{
					UserID: userID,
					RoleID: roleID,
					Status: OutcomeAssigned,
				})
				_ = txs.logAudit(ctx, &AuditEntry{
					ActorID:      assignedBy,
					Action:       AuditActionRoleAssigned,
					TargetUserID: userID,
					RoleID:       roleID,
					RoleName:     roles[roleID].Name,
					IPAddress:    GetIPAddress(ctx),
					UserAgent:    GetUserAgent(ctx),
					RequestID:    GetRequestID(ctx),
				})
			}
			if userChanged {
				assignedUsers = append(assignedUsers, userID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.invalidateUserGrants(ctx, assignedUsers...); err != nil {
		return outcomes, err
	}

	for _, userID := range assignedUsers {
		s.logger.InfoContext(ctx, "access change",
			"action", string(AuditActionRoleAssigned),
			"actor_id", assignedBy,
			"target_user_id", userID)
	}

	return outcomes, nil
}

// RemoveRolesFromUser revokes the given roles from a user, reporting one
// outcome per role: Revoked when a ledger row was deleted, NotAssigned when
// the user did not hold the role. Revocation is terminal; the row is gone.
func (s *Service) RemoveRolesFromUser(ctx context.Context, userID string, roleIDs []string) ([]AssignmentOutcome, error) {
	if userID == "" {
		return nil, NewError(ErrValidation, "user id required")
	}
	if hasBlank(roleIDs) {
		return nil, NewError(ErrValidation, "blank role id in list")
	}
	roleIDs = dedupeStrings(roleIDs)
	if len(roleIDs) == 0 {
		return nil, NewError(ErrValidation, "at least one role id required")
	}
	actorID := GetActorID(ctx)
	if actorID == "" {
		return nil, NewError(ErrNoActorID, "actor ID required for role revocation")
	}

	var outcomes []AssignmentOutcome
	revoked := false

	err := s.structuralWrite(ctx, func(ctx context.Context, txs *Service) error {
		for _, roleID := range roleIDs {
			result, err := txs.db.NewDelete().Table("user_roles").
				Where("user_id = ? AND role_id = ?", userID, roleID).
				Exec(ctx)
			if err := dbkit.WithErr(result, err, "RemoveRolesFromUser").Err(); err != nil {
				return err
			}
			rows, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if rows == 0 {
				outcomes = append(outcomes, AssignmentOutcome{
					UserID: userID,
					RoleID: roleID,
					Status: OutcomeNotAssigned,
					Reason: "user does not hold this role",
				})
				continue
			}

			revoked = true
			outcomes = append(outcomes, AssignmentOutcome{
				UserID: userID,
				RoleID: roleID,
				Status: OutcomeRevoked,
			})
			_ = txs.logAudit(ctx, &AuditEntry{
				ActorID:      actorID,
				Action:       AuditActionRoleRevoked,
				TargetUserID: userID,
				RoleID:       roleID,
				IPAddress:    GetIPAddress(ctx),
				UserAgent:    GetUserAgent(ctx),
				RequestID:    GetRequestID(ctx),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Revocation must be visible immediately; a stale cached grant set is a
	// privilege retention bug, not a nuisance.
	if revoked {
		if err := s.invalidateUserGrants(ctx, userID); err != nil {
			return outcomes, err
		}
		s.logger.InfoContext(ctx, "access change",
			"action", string(AuditActionRoleRevoked),
			"actor_id", actorID,
			"target_user_id", userID)
	}

	return outcomes, nil
}

// UserRoleAssignments returns the user's ledger rows, including expired
// ones. Callers that need only live roles should filter with ActiveAt or
// use UserActiveRoles.
func (s *Service) UserRoleAssignments(ctx context.Context, userID string) ([]UserRole, error) {
	var assignments []UserRole
	err := dbkit.WithErr1(
		s.conn(ctx).NewSelect().Model(&assignments).Where("user_id = ?", userID).Scan(ctx),
		"UserRoleAssignments").Err()
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// UserActiveRoles returns the active roles a user currently holds:
// assignment not expired and role active.
func (s *Service) UserActiveRoles(ctx context.Context, userID string) ([]Role, error) {
	var roles []Role
	err := dbkit.WithErr1(
		s.conn(ctx).NewRaw(
			"SELECT r.* FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = ? AND r.is_active AND (ur.expires_at IS NULL OR ur.expires_at > ?) ORDER BY r.sort_order, r.name",
			userID, s.now()).Scan(ctx, &roles),
		"UserActiveRoles").Err()
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// RoleAssignmentCount returns the number of users currently assigned to a
// role, expired rows included (they still block role deletion until
// revoked).
func (s *Service) RoleAssignmentCount(ctx context.Context, roleID string) (int, error) {
	return dbkit.Count[UserRole](ctx, s.conn(ctx), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("role_id = ?", roleID)
	})
}
