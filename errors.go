package accesskit

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for AccessKit operations.
var (
	// ErrNotFound is returned when a referenced role, permission or
	// assignment does not exist.
	ErrNotFound = errors.New("accesskit: not found")

	// ErrDuplicateName is returned when a role or permission name is
	// already taken.
	ErrDuplicateName = errors.New("accesskit: duplicate name")

	// ErrCycleDetected is returned when moving a permission under itself or
	// one of its own descendants.
	ErrCycleDetected = errors.New("accesskit: cycle detected")

	// ErrSystemImmutable is returned when a structural change targets a
	// system-provenance row.
	ErrSystemImmutable = errors.New("accesskit: system row is immutable")

	// ErrAlreadyAssigned is returned when an assignment pair already exists
	// in the ledger.
	ErrAlreadyAssigned = errors.New("accesskit: already assigned")

	// ErrNotAssigned is returned when revoking an assignment the user does
	// not hold.
	ErrNotAssigned = errors.New("accesskit: not assigned")

	// ErrRoleInUse is returned when deleting a role that still has user
	// assignments.
	ErrRoleInUse = errors.New("accesskit: role in use")

	// ErrInvalidPermission is returned when a permission name or grant
	// pattern is malformed.
	ErrInvalidPermission = errors.New("accesskit: invalid permission")

	// ErrValidation is returned for malformed inputs (empty ids, empty id
	// lists, blank names).
	ErrValidation = errors.New("accesskit: validation failed")

	// ErrUnauthorized is returned when a user doesn't hold the required
	// permission.
	ErrUnauthorized = errors.New("accesskit: unauthorized")

	// ErrNoUserID is returned when user ID is not found in context.
	ErrNoUserID = errors.New("accesskit: no user ID in context")

	// ErrNoActorID is returned when actor ID is not found in context for audit.
	ErrNoActorID = errors.New("accesskit: no actor ID in context")

	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("accesskit: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error    // Underlying sentinel error
	Message    string   // Additional context
	Role       string   // Role involved (if applicable)
	Permission string   // Permission involved (if applicable)
	UserID     string   // User involved (if applicable)
	ActorID    string   // Actor who triggered the error (if applicable)
	InvalidIDs []string // Unresolvable ids for batch validation failures
	Count      int      // Live assignment count for ErrRoleInUse
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.InvalidIDs) > 0 {
		return fmt.Sprintf("%s: %s [%s]", e.Err.Error(), e.Message, strings.Join(e.InvalidIDs, ", "))
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role string) *Error {
	e.Role = role
	return e
}

// WithPermission adds permission information to the error.
func (e *Error) WithPermission(permission string) *Error {
	e.Permission = permission
	return e
}

// WithUser adds user information to the error.
func (e *Error) WithUser(userID string) *Error {
	e.UserID = userID
	return e
}

// WithActor adds actor information to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// WithInvalidIDs records the ids a batch validation could not resolve.
func (e *Error) WithInvalidIDs(ids []string) *Error {
	e.InvalidIDs = ids
	return e
}

// WithCount records the assignment count blocking a role deletion.
func (e *Error) WithCount(n int) *Error {
	e.Count = n
	return e
}

// IsNotFound checks if an error is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateName checks if an error is a unique-name violation.
func IsDuplicateName(err error) bool {
	return errors.Is(err, ErrDuplicateName)
}

// IsCycleDetected checks if an error is a hierarchy cycle rejection.
func IsCycleDetected(err error) bool {
	return errors.Is(err, ErrCycleDetected)
}

// IsSystemImmutable checks if an error is a system-row protection rejection.
func IsSystemImmutable(err error) bool {
	return errors.Is(err, ErrSystemImmutable)
}

// IsAlreadyAssigned checks if an error is a duplicate-assignment report.
func IsAlreadyAssigned(err error) bool {
	return errors.Is(err, ErrAlreadyAssigned)
}

// IsRoleInUse checks if an error is a blocked role deletion.
func IsRoleInUse(err error) bool {
	return errors.Is(err, ErrRoleInUse)
}

// IsUnauthorized checks if an error is an authorization error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
