package accesskit

// Materialized-path helpers for the permission tree. All functions here are
// pure and operate on rows already loaded from the catalog; the service
// layer wraps them in a transaction and writes the results back.

const pathSeparator = "/"

// rootLevel is the level of a permission without a parent.
const rootLevel = 1

// childPath builds the materialized path of a node under a parent path.
// A root node has path "/name".
func childPath(parentPath, name string) string {
	if parentPath == "" {
		return pathSeparator + name
	}
	return parentPath + pathSeparator + name
}

// wouldCreateCycle reports whether re-parenting node id under newParentID
// would create a cycle. It walks the ancestor chain of the new parent up
// to the root and tests membership of id; moving under itself counts.
func wouldCreateCycle(byID map[string]*Permission, id, newParentID string) bool {
	if newParentID == "" {
		return false
	}
	if newParentID == id {
		return true
	}

	seen := make(map[string]bool)
	current := newParentID
	for current != "" {
		if current == id {
			return true
		}
		if seen[current] {
			// Pre-existing corruption; refuse the move rather than loop.
			return true
		}
		seen[current] = true

		node, ok := byID[current]
		if !ok {
			break
		}
		current = node.ParentID
	}
	return false
}

// recomputeSubtree recomputes level and path for node id and every
// descendant, top-down, given the node's (possibly new) parent. The full
// subtree is recomputed rather than patched incrementally. Returns the
// modified nodes in parent-before-child order.
func recomputeSubtree(byID map[string]*Permission, children map[string][]*Permission, id string) []*Permission {
	node, ok := byID[id]
	if !ok {
		return nil
	}

	if node.ParentID == "" {
		node.Level = rootLevel
		node.Path = childPath("", node.Name)
	} else if parent, ok := byID[node.ParentID]; ok {
		node.Level = parent.Level + 1
		node.Path = childPath(parent.Path, node.Name)
	} else {
		// Parent not in the loaded set; keep the node a root.
		node.Level = rootLevel
		node.Path = childPath("", node.Name)
	}

	modified := []*Permission{node}
	for _, child := range children[id] {
		modified = append(modified, recomputeSubtree(byID, children, child.ID)...)
	}
	return modified
}

// indexPermissions builds id and children indexes over loaded rows.
func indexPermissions(perms []Permission) (map[string]*Permission, map[string][]*Permission) {
	byID := make(map[string]*Permission, len(perms))
	for i := range perms {
		byID[perms[i].ID] = &perms[i]
	}
	children := make(map[string][]*Permission)
	for i := range perms {
		if perms[i].ParentID != "" {
			children[perms[i].ParentID] = append(children[perms[i].ParentID], &perms[i])
		}
	}
	return byID, children
}

// collectSubtreeIDs returns id plus the ids of all its descendants.
func collectSubtreeIDs(children map[string][]*Permission, id string) []string {
	ids := []string{id}
	for _, child := range children[id] {
		ids = append(ids, collectSubtreeIDs(children, child.ID)...)
	}
	return ids
}
