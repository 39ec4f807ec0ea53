package accesskit

import (
	"sort"
)

// Catalog is an immutable snapshot of the full permission set, passed
// explicitly into expansion and tree reads. It is created from one load of
// the permissions table and should be treated as read-only; a new snapshot
// is loaded after catalog writes. The authorization hot path never uses it.
type Catalog struct {
	version int64
	perms   []Permission
	byName  map[string]int
	byID    map[string]int
}

// NewCatalog builds a catalog snapshot from loaded permission rows.
// Version is a caller-supplied monotonic marker (typically the load time in
// unix nanoseconds) used to tell snapshots apart.
func NewCatalog(version int64, perms []Permission) *Catalog {
	c := &Catalog{
		version: version,
		perms:   make([]Permission, len(perms)),
		byName:  make(map[string]int, len(perms)),
		byID:    make(map[string]int, len(perms)),
	}
	copy(c.perms, perms)
	for i := range c.perms {
		c.byName[c.perms[i].Name] = i
		c.byID[c.perms[i].ID] = i
	}
	return c
}

// Version returns the snapshot marker this catalog was built with.
func (c *Catalog) Version() int64 {
	return c.version
}

// Len returns the number of permissions in the catalog.
func (c *Catalog) Len() int {
	return len(c.perms)
}

// Contains reports whether a permission name exists in the catalog.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Get returns a permission by name.
func (c *Catalog) Get(name string) (Permission, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Permission{}, false
	}
	return c.perms[i], true
}

// GetByID returns a permission by id.
func (c *Catalog) GetByID(id string) (Permission, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Permission{}, false
	}
	return c.perms[i], true
}

// Names returns all permission names in the catalog, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.perms))
	for i := range c.perms {
		names = append(names, c.perms[i].Name)
	}
	sort.Strings(names)
	return names
}

// Expand converts a grant set (possibly wildcarded) into the concrete
// subset of the catalog it covers. Literal grants are included only when
// present in the catalog; wildcard grants are matched against every entry.
func (c *Catalog) Expand(grantNames []string) []Permission {
	grants := ParseGrants(grantNames)
	matched := make(map[string]struct{})
	var result []Permission

	for _, g := range grants {
		if g.Kind == GrantLiteral {
			if i, ok := c.byName[g.Name]; ok {
				if _, seen := matched[g.Name]; !seen {
					matched[g.Name] = struct{}{}
					result = append(result, c.perms[i])
				}
			}
			continue
		}
		for i := range c.perms {
			name := c.perms[i].Name
			if _, seen := matched[name]; seen {
				continue
			}
			if g.Matches(name) {
				matched[name] = struct{}{}
				result = append(result, c.perms[i])
			}
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// ExpandNames is Expand returning names only.
func (c *Catalog) ExpandNames(grantNames []string) []string {
	perms := c.Expand(grantNames)
	names := make([]string, len(perms))
	for i := range perms {
		names[i] = perms[i].Name
	}
	return names
}

// PermissionNode is one node of the display tree built from the catalog.
type PermissionNode struct {
	Permission
	Children []*PermissionNode
}

// Tree builds the nested parent/children view of the catalog, roots sorted
// by name, children sorted by name within each parent. Orphaned nodes
// (parent id not present in the snapshot) are treated as roots so a
// partial snapshot still renders.
func (c *Catalog) Tree() []*PermissionNode {
	nodes := make(map[string]*PermissionNode, len(c.perms))
	for i := range c.perms {
		nodes[c.perms[i].ID] = &PermissionNode{Permission: c.perms[i]}
	}

	var roots []*PermissionNode
	for i := range c.perms {
		node := nodes[c.perms[i].ID]
		if parent, ok := nodes[c.perms[i].ParentID]; ok && c.perms[i].ParentID != "" {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	var sortNodes func(ns []*PermissionNode)
	sortNodes = func(ns []*PermissionNode) {
		sort.Slice(ns, func(i, j int) bool { return ns[i].Name < ns[j].Name })
		for _, n := range ns {
			sortNodes(n.Children)
		}
	}
	sortNodes(roots)

	return roots
}
