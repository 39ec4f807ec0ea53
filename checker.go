package accesskit

// Checker provides permission checking for a specific user over a loaded
// grant set. It is typically created by the Service and stored in context
// for use in handlers, so one request does one ledger read.
type Checker struct {
	userID string
	roles  []Role
	grants []Grant
	names  []string
}

// NewChecker creates a new Checker from a user's active roles and raw
// grant names.
func NewChecker(userID string, roles []Role, grantNames []string) *Checker {
	return &Checker{
		userID: userID,
		roles:  roles,
		grants: ParseGrants(grantNames),
		names:  grantNames,
	}
}

// UserID returns the user ID this checker is for.
func (c *Checker) UserID() string {
	return c.userID
}

// HasPermission checks if the user's grant set covers a permission.
//
// Example:
//
//	if checker.HasPermission("audio:upload") {
//	    // User can upload audio
//	}
func (c *Checker) HasPermission(permission string) bool {
	return matchAnyGrant(c.grants, permission)
}

// HasAnyPermission checks if the user holds any of the specified
// permissions.
func (c *Checker) HasAnyPermission(permissions []string) bool {
	for _, p := range permissions {
		if matchAnyGrant(c.grants, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions checks if the user holds all of the specified
// permissions.
func (c *Checker) HasAllPermissions(permissions []string) bool {
	for _, p := range permissions {
		if !matchAnyGrant(c.grants, p) {
			return false
		}
	}
	return true
}

// HasRole checks if the user holds an active role by name.
func (c *Checker) HasRole(roleName string) bool {
	for i := range c.roles {
		if c.roles[i].Name == roleName {
			return true
		}
	}
	return false
}

// Roles returns the user's active roles.
func (c *Checker) Roles() []Role {
	return c.roles
}

// Grants returns the raw grant names, wildcards as stored.
func (c *Checker) Grants() []string {
	return c.names
}

// EffectivePermissions expands the grant set against a catalog snapshot.
func (c *Checker) EffectivePermissions(catalog *Catalog) []string {
	return catalog.ExpandNames(c.names)
}

// IsEmpty returns true if the user has no grants at all.
func (c *Checker) IsEmpty() bool {
	return len(c.grants) == 0
}
