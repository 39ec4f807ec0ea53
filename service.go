package accesskit

import (
	"context"
	"log/slog"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Service exposes the RBAC engine: permission catalog maintenance, role
// management, assignment ledgers and the authorization check. It integrates
// with the database through dbkit with enhanced error handling.
//
// Error Handling:
// All database operations use dbkit's chainable error wrapping to provide
// detailed context about failed operations. Business failures are reported
// through the accesskit sentinel errors.
//
// Example error handling:
//
//	_, err := service.CreatePermission(ctx, input)
//	if err != nil {
//	    if accesskit.IsDuplicateName(err) {
//	        // Name already taken
//	    }
//	    if accesskit.IsNotFound(err) {
//	        // Parent permission missing
//	    }
//	}
type Service struct {
	db        dbkit.IDB
	logger    *slog.Logger
	cache     *GrantCache
	now       func() time.Time
	txMonitor *transactionMonitor
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the structured logger used for security-relevant events.
// Without it the service logs to a discarding handler.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithGrantCache enables the effective-grants cache. Every write that can
// change a user's effective permissions invalidates the affected entries
// synchronously before the operation returns.
func WithGrantCache(cache *GrantCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithClock overrides the time source used for expiry checks. Intended for
// tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new AccessKit service.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := accesskit.NewService(db,
//	    accesskit.WithLogger(slog.Default()),
//	)
func NewService(db dbkit.IDB, opts ...Option) *Service {
	s := &Service{
		db:        db,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		txMonitor: newTransactionMonitor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// logAudit writes an audit row. Audit failures are reported to the logger
// but never fail the mutation they describe.
func (s *Service) logAudit(ctx context.Context, entry *AuditEntry) error {
	_, err := s.conn(ctx).NewInsert().Model(entry.ToModel()).Exec(ctx)
	err = dbkit.WithErr1(err, "LogAudit").Err()
	if err != nil {
		s.logger.ErrorContext(ctx, "audit write failed",
			slog.String("action", string(entry.Action)),
			slog.String("actor_id", entry.ActorID),
			slog.Any("error", err))
	}
	return err
}

// auditEvent emits the structured log event mirroring an audit entry.
func (s *Service) auditEvent(ctx context.Context, entry *AuditEntry) {
	attrs := []any{
		slog.String("action", string(entry.Action)),
		slog.String("actor_id", entry.ActorID),
	}
	if entry.TargetUserID != "" {
		attrs = append(attrs, slog.String("target_user_id", entry.TargetUserID))
	}
	if entry.RoleName != "" {
		attrs = append(attrs, slog.String("role", entry.RoleName))
	}
	if entry.Permission != "" {
		attrs = append(attrs, slog.String("permission", entry.Permission))
	}
	if entry.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", entry.RequestID))
	}
	s.logger.InfoContext(ctx, "access change", attrs...)
}

// recordAudit writes the audit row and emits the matching log event.
func (s *Service) recordAudit(ctx context.Context, entry *AuditEntry) {
	_ = s.logAudit(ctx, entry)
	s.auditEvent(ctx, entry)
}

// ============================================================================
// AUDIT LOG
// ============================================================================

// GetAuditLog retrieves audit log entries with optional filters.
func (s *Service) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]AccessAuditLog, error) {
	var logs []AccessAuditLog
	q := s.conn(ctx).NewSelect().Model(&logs)
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.TargetUserID != "" {
		q = q.Where("target_user_id = ?", filter.TargetUserID)
	}
	if filter.RoleID != "" {
		q = q.Where("role_id = ?", filter.RoleID)
	}
	if filter.Permission != "" {
		q = q.Where("permission = ?", filter.Permission)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	err := dbkit.WithErr1(q.Scan(ctx), "GetAuditLog").Err()
	if err != nil {
		return nil, err
	}

	return logs, nil
}
