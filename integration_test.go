package accesskit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFullAccessLifecycle walks one tenant through the complete flow with a
// real database: catalog setup, role definition, assignment, authorization,
// grant sync, revocation and the audit trail left behind.
func TestFullAccessLifecycle(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	adminID := "lifecycle-admin-" + suffix
	ctx = WithActorID(ctx, adminID)

	docs := "docs" + suffix
	billing := "billing" + suffix

	// Catalog: a docs subtree and a flat billing module
	manage, err := service.CreatePermission(ctx, CreatePermissionInput{
		Name: docs + ":manage", DisplayName: "Manage documents", Module: docs, Action: "manage",
	})
	require.NoError(t, err)

	var read, write *Permission
	for _, action := range []string{"read", "write"} {
		p, err := service.CreatePermission(ctx, CreatePermissionInput{
			Name:        docs + ":" + action,
			DisplayName: "Documents " + action,
			Module:      docs,
			Action:      action,
			ParentID:    manage.ID,
		})
		require.NoError(t, err)
		if action == "read" {
			read = p
		} else {
			write = p
		}
	}
	invoice, err := service.CreatePermission(ctx, CreatePermissionInput{
		Name: billing + ":invoice", DisplayName: "Issue invoices", Module: billing, Action: "invoice",
	})
	require.NoError(t, err)
	docsAll, err := service.CreatePermission(ctx, CreatePermissionInput{
		Name: docs + ":*", DisplayName: "All document actions", Module: docs, Action: "*",
	})
	require.NoError(t, err)

	tree, err := service.PermissionTree(ctx)
	require.NoError(t, err)
	var manageNode *PermissionNode
	for _, n := range tree {
		if n.Permission.ID == manage.ID {
			manageNode = n
		}
	}
	require.NotNil(t, manageNode, "manage should be a root of the tree")
	assert.Len(t, manageNode.Children, 2)

	// Roles: a viewer with one literal grant and an admin on the wildcard
	viewer, err := service.CreateRole(ctx, "viewer-"+suffix, "Viewer", []string{read.ID})
	require.NoError(t, err)
	docsAdmin, err := service.CreateRole(ctx, "docs-admin-"+suffix, "Documents Admin", []string{docsAll.ID})
	require.NoError(t, err)

	// Assignment: two employees, one of them temporary
	alice := "alice-" + suffix
	bob := "bob-" + suffix
	expiry := time.Now().Add(time.Hour)

	outcomes, err := service.BatchAssignRolesToUsers(ctx, []string{alice}, []string{docsAdmin.ID}, adminID, nil)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeAssigned, outcomes[0].Status)

	outcomes, err = service.AssignRolesToUser(ctx, bob, []string{viewer.ID}, adminID, &expiry)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeAssigned, outcomes[0].Status)

	// Authorization: the wildcard covers the whole module, the literal
	// grant covers exactly one token
	assert.True(t, service.HasPermission(ctx, alice, read.Name))
	assert.True(t, service.HasPermission(ctx, alice, write.Name))
	assert.False(t, service.HasPermission(ctx, alice, invoice.Name))
	assert.True(t, service.HasPermission(ctx, bob, read.Name))
	assert.False(t, service.HasPermission(ctx, bob, write.Name))

	// Promotion via sync: the viewer role gains write, drops nothing
	result, err := service.SyncRolePermissions(ctx, viewer.ID, []string{read.ID, write.ID})
	require.NoError(t, err)
	assert.Len(t, result.Added, 1)
	assert.Empty(t, result.Removed)
	assert.True(t, service.HasPermission(ctx, bob, write.Name))

	// The catalog expands the admin's grant set to concrete tokens
	catalog, err := service.Catalog(ctx)
	require.NoError(t, err)
	effective, err := service.EffectivePermissions(ctx, alice, catalog)
	require.NoError(t, err)
	assert.Contains(t, effective, read.Name)
	assert.Contains(t, effective, write.Name)
	assert.NotContains(t, effective, invoice.Name)

	// Offboarding: revoke and verify access is gone immediately
	outcomes, err = service.RemoveRolesFromUser(ctx, alice, []string{docsAdmin.ID})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeRevoked, outcomes[0].Status)
	assert.False(t, service.HasPermission(ctx, alice, read.Name))

	// The audit trail covers every mutation above
	entries, err := service.GetAuditLog(ctx, NewAuditLogFilter().ByActor(adminID))
	require.NoError(t, err)
	actions := map[string]int{}
	for _, e := range entries {
		actions[e.Action]++
	}
	assert.Equal(t, 5, actions[string(AuditActionPermissionCreated)])
	assert.Equal(t, 2, actions[string(AuditActionRoleCreated)])
	assert.Equal(t, 2, actions[string(AuditActionRoleAssigned)])
	assert.Equal(t, 1, actions[string(AuditActionGrantsSynced)])
	assert.Equal(t, 1, actions[string(AuditActionRoleRevoked)])
}

// TestTransactionGroupsMutations verifies that several operations grouped in
// one Transaction commit or roll back together.
func TestTransactionGroupsMutations(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	ctx = WithActorID(ctx, "tx-admin-"+suffix)

	t.Run("AllOrNothing", func(t *testing.T) {
		module := "grp" + suffix
		err := service.Transaction(ctx, func(ctx context.Context) error {
			perm, err := service.CreatePermission(ctx, CreatePermissionInput{
				Name: module + ":read", DisplayName: "Read", Module: module, Action: "read",
			})
			if err != nil {
				return err
			}
			if _, err := service.CreateRole(ctx, "grp-role-"+suffix, "Grouped", []string{perm.ID}); err != nil {
				return err
			}
			// The second create must fail on the duplicate name and take
			// the permission down with it
			_, err = service.CreateRole(ctx, "grp-role-"+suffix, "Grouped again", nil)
			return err
		})
		require.Error(t, err)
		assert.True(t, IsDuplicateName(err))

		_, err = service.GetPermissionByName(ctx, module+":read")
		assert.True(t, IsNotFound(err))
		_, err = service.GetRoleByName(ctx, "grp-role-"+suffix)
		assert.True(t, IsNotFound(err))
	})

	t.Run("ReadsSeeUncommittedWrites", func(t *testing.T) {
		name := "peek-role-" + suffix
		err := service.Transaction(ctx, func(ctx context.Context) error {
			if _, err := service.CreateRole(ctx, name, "Peek", nil); err != nil {
				return err
			}
			role, err := service.GetRoleByName(ctx, name)
			if err != nil {
				return err
			}
			assert.Equal(t, name, role.Name)
			return nil
		})
		require.NoError(t, err)

		_, err = service.GetRoleByName(ctx, name)
		assert.NoError(t, err)
	})
}
