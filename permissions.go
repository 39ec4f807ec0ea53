package accesskit

import (
	"strings"
)

// GrantKind tags the parsed form of a stored grant string.
type GrantKind int

const (
	// GrantLiteral matches exactly one concrete "module:action" token.
	GrantLiteral GrantKind = iota
	// GrantModulePrefix ("module:*") matches every action of one module.
	GrantModulePrefix
	// GrantActionSuffix ("*:action") matches one action across all modules.
	GrantActionSuffix
	// GrantSuper ("*" or "*:*") matches everything.
	GrantSuper
)

// Grant is the parsed form of a permission grant stored against a role.
// Grants are parsed once when loaded, so matching never re-slices the
// stored string.
type Grant struct {
	Kind   GrantKind
	Name   string // the stored string form
	Module string // set for GrantModulePrefix
	Action string // set for GrantActionSuffix
}

// ParseGrant converts a stored grant string into its tagged form.
//
// Examples:
//
//	ParseGrant("*")           // GrantSuper
//	ParseGrant("*:*")         // GrantSuper
//	ParseGrant("user:*")      // GrantModulePrefix{Module: "user"}
//	ParseGrant("*:read")      // GrantActionSuffix{Action: "read"}
//	ParseGrant("user:read")   // GrantLiteral
func ParseGrant(name string) Grant {
	switch {
	case name == "*" || name == "*:*":
		return Grant{Kind: GrantSuper, Name: name}
	case strings.HasSuffix(name, ":*"):
		return Grant{Kind: GrantModulePrefix, Name: name, Module: strings.TrimSuffix(name, ":*")}
	case strings.HasPrefix(name, "*:"):
		return Grant{Kind: GrantActionSuffix, Name: name, Action: strings.TrimPrefix(name, "*:")}
	default:
		return Grant{Kind: GrantLiteral, Name: name}
	}
}

// ParseGrants converts a set of stored grant strings into tagged form.
func ParseGrants(names []string) []Grant {
	grants := make([]Grant, len(names))
	for i, n := range names {
		grants[i] = ParseGrant(n)
	}
	return grants
}

// Matches reports whether the grant covers a concrete requested permission.
// It is total over the closed variant set.
func (g Grant) Matches(requested string) bool {
	switch g.Kind {
	case GrantSuper:
		return true
	case GrantModulePrefix:
		return strings.HasPrefix(requested, g.Module+":")
	case GrantActionSuffix:
		return strings.HasSuffix(requested, ":"+g.Action)
	default:
		return g.Name == requested
	}
}

// IsWildcard returns true for any non-literal grant.
func (g Grant) IsWildcard() bool {
	return g.Kind != GrantLiteral
}

// PermissionMatcher handles permission matching with wildcard support.
//
// Supported patterns:
//   - "*" and "*:*" match all permissions
//   - "module:*" matches all actions of a module (e.g., "user:*" matches "user:read")
//   - "*:action" matches an action on all modules (e.g., "*:read" matches "user:read")
//   - "module:action" matches exactly
type PermissionMatcher struct{}

// NewPermissionMatcher creates a new PermissionMatcher.
func NewPermissionMatcher() *PermissionMatcher {
	return &PermissionMatcher{}
}

// Match checks if a grant pattern covers a required permission.
//
// Examples:
//
//	Match("*", "user:read")          // true - super grant
//	Match("*:*", "user:read")        // true - super grant
//	Match("user:*", "user:read")     // true - module wildcard
//	Match("*:read", "role:read")     // true - action wildcard
//	Match("user:read", "user:read")  // true - exact match
//	Match("user:*", "role:read")     // false - different module
func (pm *PermissionMatcher) Match(pattern, permission string) bool {
	return ParseGrant(pattern).Matches(permission)
}

// MatchAny checks if any of the patterns cover the required permission.
func (pm *PermissionMatcher) MatchAny(patterns []string, permission string) bool {
	for _, pattern := range patterns {
		if pm.Match(pattern, permission) {
			return true
		}
	}
	return false
}

// matchAnyGrant checks a requested permission against pre-parsed grants.
func matchAnyGrant(grants []Grant, permission string) bool {
	for _, g := range grants {
		if g.Matches(permission) {
			return true
		}
	}
	return false
}

// ExpandPermissions returns all concrete permissions from 'all' that a set
// of grant patterns covers. This is the display/statistics path; the
// authorization check matches raw grants and never expands.
func (pm *PermissionMatcher) ExpandPermissions(patterns []string, all []string) []string {
	grants := ParseGrants(patterns)
	matched := make(map[string]bool)

	for _, permission := range all {
		for _, g := range grants {
			if g.Matches(permission) {
				matched[permission] = true
				break
			}
		}
	}

	result := make([]string, 0, len(matched))
	for p := range matched {
		result = append(result, p)
	}
	return result
}

// Validate checks if a permission name or grant pattern is valid.
// A valid name is "*", "*:*", "module:*", "*:action", or a
// colon-separated pair of identifiers.
func (pm *PermissionMatcher) Validate(permission string) error {
	if permission == "" {
		return NewError(ErrInvalidPermission, "permission cannot be empty")
	}

	if permission == "*" || permission == "*:*" {
		return nil
	}

	parts := strings.Split(permission, ":")
	if len(parts) != 2 {
		return NewError(ErrInvalidPermission, "permission must have two parts (module:action)").
			WithPermission(permission)
	}

	for _, part := range parts {
		if part == "" {
			return NewError(ErrInvalidPermission, "permission parts cannot be empty").
				WithPermission(permission)
		}
		if part == "*" {
			continue
		}
		for _, c := range part {
			if !isValidPermissionChar(c) {
				return NewError(ErrInvalidPermission, "permission contains invalid character").
					WithPermission(permission)
			}
		}
	}

	return nil
}

func isValidPermissionChar(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '_' || c == '-' || c == '.'
}

// DefaultMatcher is the default permission matcher instance.
var DefaultMatcher = NewPermissionMatcher()

// MatchPermission is a convenience function using the default matcher.
func MatchPermission(pattern, permission string) bool {
	return DefaultMatcher.Match(pattern, permission)
}

// MatchAnyPermission is a convenience function using the default matcher.
func MatchAnyPermission(patterns []string, permission string) bool {
	return DefaultMatcher.MatchAny(patterns, permission)
}
