package accesskit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testCatalog() *Catalog {
	perms := []Permission{
		{ID: "p1", Name: "user:read", Module: "user", Action: "read", Level: 2, ParentID: "p5", Path: "/user:manage/user:read"},
		{ID: "p2", Name: "user:write", Module: "user", Action: "write", Level: 2, ParentID: "p5", Path: "/user:manage/user:write"},
		{ID: "p3", Name: "role:read", Module: "role", Action: "read", Level: 1, Path: "/role:read"},
		{ID: "p4", Name: "report:export", Module: "report", Action: "export", Level: 1, Path: "/report:export"},
		{ID: "p5", Name: "user:manage", Module: "user", Action: "manage", Level: 1, Path: "/user:manage"},
	}
	return NewCatalog(42, perms)
}

// TestCatalogBasics tests the lookup surface of a catalog snapshot
func TestCatalogBasics(t *testing.T) {
	c := testCatalog()

	assert.Equal(t, int64(42), c.Version())
	assert.Equal(t, 5, c.Len())

	assert.True(t, c.Contains("user:read"))
	assert.False(t, c.Contains("user:delete"))

	perm, ok := c.Get("role:read")
	assert.True(t, ok)
	assert.Equal(t, "p3", perm.ID)

	_, ok = c.Get("missing:perm")
	assert.False(t, ok)

	perm, ok = c.GetByID("p4")
	assert.True(t, ok)
	assert.Equal(t, "report:export", perm.Name)

	_, ok = c.GetByID("p99")
	assert.False(t, ok)

	assert.Equal(t, []string{"report:export", "role:read", "user:manage", "user:read", "user:write"}, c.Names())
}

// TestCatalogExpand tests grant expansion against the snapshot
func TestCatalogExpand(t *testing.T) {
	c := testCatalog()

	tests := []struct {
		name     string
		grants   []string
		expected []string
	}{
		{
			name:     "Module wildcard covers only that module",
			grants:   []string{"user:*"},
			expected: []string{"user:manage", "user:read", "user:write"},
		},
		{
			name:     "Action wildcard covers across modules",
			grants:   []string{"*:read"},
			expected: []string{"role:read", "user:read"},
		},
		{
			name:     "Super grant covers the whole catalog",
			grants:   []string{"*"},
			expected: []string{"report:export", "role:read", "user:manage", "user:read", "user:write"},
		},
		{
			name:     "Literal grant passes through when cataloged",
			grants:   []string{"role:read"},
			expected: []string{"role:read"},
		},
		{
			name:     "Literal grant absent from catalog is dropped",
			grants:   []string{"ghost:walk"},
			expected: nil,
		},
		{
			name:     "Overlapping grants deduplicate",
			grants:   []string{"user:*", "user:read", "*:read"},
			expected: []string{"role:read", "user:manage", "user:read", "user:write"},
		},
		{
			name:     "Empty grant set expands to nothing",
			grants:   nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := c.ExpandNames(tt.grants)
			if tt.expected == nil {
				assert.Empty(t, names)
				return
			}
			// Expand returns entries sorted by name
			assert.Equal(t, tt.expected, names)
		})
	}
}

// TestCatalogExpandSubset verifies the expansion of a module wildcard over
// a minimal catalog
func TestCatalogExpandSubset(t *testing.T) {
	c := NewCatalog(1, []Permission{
		{ID: "a", Name: "user:read"},
		{ID: "b", Name: "user:write"},
		{ID: "c", Name: "role:read"},
	})

	got := c.ExpandNames([]string{"user:*"})
	assert.Equal(t, []string{"user:read", "user:write"}, got)
}

// TestCatalogTree tests the nested display view
func TestCatalogTree(t *testing.T) {
	c := testCatalog()

	roots := c.Tree()
	assert.Len(t, roots, 3)

	// Roots sorted by name
	assert.Equal(t, "report:export", roots[0].Name)
	assert.Equal(t, "role:read", roots[1].Name)
	assert.Equal(t, "user:manage", roots[2].Name)

	// Children nested under their parent, sorted
	manage := roots[2]
	assert.Len(t, manage.Children, 2)
	assert.Equal(t, "user:read", manage.Children[0].Name)
	assert.Equal(t, "user:write", manage.Children[1].Name)
}

// TestCatalogTreeOrphans verifies that nodes with unknown parents render
// as roots instead of disappearing
func TestCatalogTreeOrphans(t *testing.T) {
	c := NewCatalog(1, []Permission{
		{ID: "a", Name: "task:read", ParentID: "missing-parent"},
		{ID: "b", Name: "task:manage"},
	})

	roots := c.Tree()
	assert.Len(t, roots, 2)
	assert.Equal(t, "task:manage", roots[0].Name)
	assert.Equal(t, "task:read", roots[1].Name)
}

// TestCatalogEmpty covers the zero-entry snapshot
func TestCatalogEmpty(t *testing.T) {
	c := NewCatalog(0, nil)

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Names())
	assert.Empty(t, c.ExpandNames([]string{"*"}))
	assert.Empty(t, c.Tree())
}
