package accesskit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestChildPath tests materialized path construction
func TestChildPath(t *testing.T) {
	assert.Equal(t, "/user:manage", childPath("", "user:manage"))
	assert.Equal(t, "/user:manage/user:read", childPath("/user:manage", "user:read"))
	assert.Equal(t, "/a/b/c", childPath("/a/b", "c"))
}

func treeFixture() []Permission {
	// root (L1)
	//   ├─ mid (L2)
	//   │    └─ leaf (L3)
	//   └─ other (L2)
	return []Permission{
		{ID: "root", Name: "sys:manage", Level: 1, Path: "/sys:manage"},
		{ID: "mid", Name: "sys:users", ParentID: "root", Level: 2, Path: "/sys:manage/sys:users"},
		{ID: "leaf", Name: "sys:audit", ParentID: "mid", Level: 3, Path: "/sys:manage/sys:users/sys:audit"},
		{ID: "other", Name: "sys:jobs", ParentID: "root", Level: 2, Path: "/sys:manage/sys:jobs"},
	}
}

// TestWouldCreateCycle tests cycle prevention on re-parenting
func TestWouldCreateCycle(t *testing.T) {
	perms := treeFixture()
	byID, _ := indexPermissions(perms)

	tests := []struct {
		name        string
		id          string
		newParentID string
		expected    bool
	}{
		{"Move to root level", "mid", "", false},
		{"Move under sibling", "mid", "other", false},
		{"Move under own id", "mid", "mid", true},
		{"Move under direct child", "mid", "leaf", true},
		{"Move root under deep descendant", "root", "leaf", true},
		{"Move leaf under root", "leaf", "root", false},
		{"Move under unknown parent", "mid", "ghost", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, wouldCreateCycle(byID, tt.id, tt.newParentID))
		})
	}
}

// TestWouldCreateCycleCorruptChain verifies a pre-existing parent loop does
// not hang the walk
func TestWouldCreateCycleCorruptChain(t *testing.T) {
	perms := []Permission{
		{ID: "a", Name: "a:a", ParentID: "b"},
		{ID: "b", Name: "b:b", ParentID: "a"},
	}
	byID, _ := indexPermissions(perms)

	// Walking b → a → b must terminate and refuse the move
	assert.True(t, wouldCreateCycle(byID, "c", "b"))
}

// TestRecomputeSubtree tests level/path recomputation after a move
func TestRecomputeSubtree(t *testing.T) {
	perms := treeFixture()
	byID, children := indexPermissions(perms)

	// Re-parent mid (and its subtree) under other
	byID["mid"].ParentID = "other"
	modified := recomputeSubtree(byID, children, "mid")

	assert.Len(t, modified, 2)

	// Parent comes before child in the returned order
	assert.Equal(t, "mid", modified[0].ID)
	assert.Equal(t, "leaf", modified[1].ID)

	assert.Equal(t, 3, byID["mid"].Level)
	assert.Equal(t, "/sys:manage/sys:jobs/sys:users", byID["mid"].Path)

	assert.Equal(t, 4, byID["leaf"].Level)
	assert.Equal(t, "/sys:manage/sys:jobs/sys:users/sys:audit", byID["leaf"].Path)

	// Untouched branches keep their values
	assert.Equal(t, 1, byID["root"].Level)
	assert.Equal(t, "/sys:manage/sys:jobs", byID["other"].Path)
}

// TestRecomputeSubtreeToRoot tests promoting a subtree to the top level
func TestRecomputeSubtreeToRoot(t *testing.T) {
	perms := treeFixture()
	byID, children := indexPermissions(perms)

	byID["mid"].ParentID = ""
	modified := recomputeSubtree(byID, children, "mid")

	assert.Len(t, modified, 2)
	assert.Equal(t, rootLevel, byID["mid"].Level)
	assert.Equal(t, "/sys:users", byID["mid"].Path)
	assert.Equal(t, rootLevel+1, byID["leaf"].Level)
	assert.Equal(t, "/sys:users/sys:audit", byID["leaf"].Path)
}

// TestRecomputeSubtreeMissingNode returns nothing for an unknown id
func TestRecomputeSubtreeMissingNode(t *testing.T) {
	byID, children := indexPermissions(treeFixture())
	assert.Nil(t, recomputeSubtree(byID, children, "ghost"))
}

// TestCollectSubtreeIDs tests descendant collection
func TestCollectSubtreeIDs(t *testing.T) {
	_, children := indexPermissions(treeFixture())

	ids := collectSubtreeIDs(children, "root")
	assert.ElementsMatch(t, []string{"root", "mid", "leaf", "other"}, ids)

	ids = collectSubtreeIDs(children, "mid")
	assert.Equal(t, []string{"mid", "leaf"}, ids)

	ids = collectSubtreeIDs(children, "leaf")
	assert.Equal(t, []string{"leaf"}, ids)
}

// TestIndexPermissions tests index construction
func TestIndexPermissions(t *testing.T) {
	perms := treeFixture()
	byID, children := indexPermissions(perms)

	assert.Len(t, byID, 4)
	assert.Len(t, children["root"], 2)
	assert.Len(t, children["mid"], 1)
	assert.Empty(t, children["leaf"])

	// Index entries point into the backing slice, mutations are visible
	byID["root"].Level = 7
	assert.Equal(t, 7, perms[0].Level)
}
