package accesskit

import (
	"context"
)

// contextKey namespaces the values this package stores in a context.
type contextKey string

const (
	contextKeyUserID    contextKey = "accesskit:user_id"
	contextKeyActorID   contextKey = "accesskit:actor_id"
	contextKeyIPAddress contextKey = "accesskit:ip_address"
	contextKeyUserAgent contextKey = "accesskit:user_agent"
	contextKeyRequestID contextKey = "accesskit:request_id"
	contextKeyChecker   contextKey = "accesskit:checker"
)

// ctxString reads a string value stored under key, empty when absent or of
// the wrong type.
func ctxString(ctx context.Context, key contextKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// WithUserID stores the subject of permission checks in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// GetUserID returns the user ID from context, empty if not set.
func GetUserID(ctx context.Context) string {
	return ctxString(ctx, contextKeyUserID)
}

// MustGetUserID returns the user ID from context and panics if absent.
// For handlers running behind middleware that guarantees a user.
func MustGetUserID(ctx context.Context) string {
	userID := GetUserID(ctx)
	if userID == "" {
		panic("accesskit: user ID not in context")
	}
	return userID
}

// WithActorID stores who performs a mutation, for the audit trail. The
// actor and the checked user differ when an admin acts on someone else.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID, actorID)
}

// GetActorID returns the actor ID, falling back to the user ID so
// self-service mutations need only one value in context.
func GetActorID(ctx context.Context) string {
	if actor := ctxString(ctx, contextKeyActorID); actor != "" {
		return actor
	}
	return GetUserID(ctx)
}

// WithIPAddress stores the client IP for audit rows.
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress returns the client IP from context, empty if not set.
func GetIPAddress(ctx context.Context) string {
	return ctxString(ctx, contextKeyIPAddress)
}

// WithUserAgent stores the client user agent for audit rows.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent returns the user agent from context, empty if not set.
func GetUserAgent(ctx context.Context) string {
	return ctxString(ctx, contextKeyUserAgent)
}

// WithRequestID stores a correlation id linking audit rows and log lines
// of one request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID returns the request ID from context, empty if not set.
func GetRequestID(ctx context.Context) string {
	return ctxString(ctx, contextKeyRequestID)
}

// WithChecker stores a loaded Checker so one request does one grant read.
// Set by LoadChecker and the Require* middleware on success.
func WithChecker(ctx context.Context, checker *Checker) context.Context {
	return context.WithValue(ctx, contextKeyChecker, checker)
}

// GetChecker returns the Checker from context, nil if none was loaded.
func GetChecker(ctx context.Context) *Checker {
	c, _ := ctx.Value(contextKeyChecker).(*Checker)
	return c
}

// FromContext is an alias for GetChecker.
func FromContext(ctx context.Context) *Checker {
	return GetChecker(ctx)
}

// AuditContext bundles the request metadata recorded on audit rows.
type AuditContext struct {
	ActorID   string
	IPAddress string
	UserAgent string
	RequestID string
}

// GetAuditContext collects the audit metadata currently in context.
func GetAuditContext(ctx context.Context) AuditContext {
	return AuditContext{
		ActorID:   GetActorID(ctx),
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	}
}

// WithAuditContext stores every non-empty field of ac in the context.
func WithAuditContext(ctx context.Context, ac AuditContext) context.Context {
	if ac.ActorID != "" {
		ctx = WithActorID(ctx, ac.ActorID)
	}
	if ac.IPAddress != "" {
		ctx = WithIPAddress(ctx, ac.IPAddress)
	}
	if ac.UserAgent != "" {
		ctx = WithUserAgent(ctx, ac.UserAgent)
	}
	if ac.RequestID != "" {
		ctx = WithRequestID(ctx, ac.RequestID)
	}
	return ctx
}
