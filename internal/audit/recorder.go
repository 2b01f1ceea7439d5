// Package audit records immutable activity entries. Recording is best-effort
// by contract: a failed audit write must never fail the business operation
// that triggered it, so every failure path here logs and returns nil or an
// empty result instead of an error.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/chemconfig-service/internal/domain"
	"github.com/spec-kit/chemconfig-service/internal/observability"
	"github.com/spec-kit/chemconfig-service/internal/repository"
)

// Input describes one activity to record. Timestamp is always assigned
// server-side; caller-supplied values are ignored.
type Input struct {
	Action        domain.AuditAction
	EntityType    domain.EntityType
	EntityID      string
	UserID        string
	UserName      string
	UserRole      domain.UserRole
	PreviousValue map[string]any
	NewValue      map[string]any
	Details       string
	IPAddress     string
	UserAgent     string
}

// Recorder builds and persists audit entries and serves history queries.
type Recorder struct {
	logs    repository.AuditLogRepository
	logger  *zap.Logger
	metrics *observability.Metrics
	clock   func() time.Time
}

// NewRecorder constructs a recorder using the wall clock.
func NewRecorder(logs repository.AuditLogRepository, logger *zap.Logger) *Recorder {
	return &Recorder{logs: logs, logger: logger, clock: time.Now}
}

// WithMetrics attaches the counter that makes dropped entries observable.
func (r *Recorder) WithMetrics(metrics *observability.Metrics) *Recorder {
	r.metrics = metrics
	return r
}

// WithClock overrides the timestamp source. Used by tests.
func (r *Recorder) WithClock(clock func() time.Time) *Recorder {
	r.clock = clock
	return r
}

// Record validates, sanitizes and persists one entry. Returns the stored
// entry, or nil when validation or persistence fails. The triggering
// business operation has already committed by the time Record runs; there is
// no rollback coupling between the two writes.
func (r *Recorder) Record(ctx context.Context, input Input) *domain.AuditLogEntry {
	if input.Action == "" || input.EntityType == "" || input.EntityID == "" || input.UserID == "" {
		r.logger.Warn("audit entry missing required fields",
			zap.String("action", string(input.Action)),
			zap.String("entity_type", string(input.EntityType)))
		r.metrics.RecordAuditDrop()
		return nil
	}
	if !domain.ValidAuditAction(input.Action) {
		r.logger.Warn("invalid audit action", zap.String("action", string(input.Action)))
		r.metrics.RecordAuditDrop()
		return nil
	}
	if !domain.ValidEntityType(input.EntityType) {
		r.logger.Warn("invalid audit entity type", zap.String("entity_type", string(input.EntityType)))
		r.metrics.RecordAuditDrop()
		return nil
	}

	entry := &domain.AuditLogEntry{
		Action:        input.Action,
		EntityType:    input.EntityType,
		EntityID:      input.EntityID,
		UserID:        input.UserID,
		UserName:      input.UserName,
		UserRole:      input.UserRole,
		PreviousValue: Sanitize(input.PreviousValue),
		NewValue:      Sanitize(input.NewValue),
		Details:       input.Details,
		Timestamp:     r.clock(),
		IPAddress:     input.IPAddress,
		UserAgent:     input.UserAgent,
	}

	if err := r.logs.Create(ctx, entry); err != nil {
		r.logger.Error("failed to persist audit entry",
			zap.String("action", string(entry.Action)),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err))
		r.metrics.RecordAuditDrop()
		return nil
	}
	return entry
}

// EntityLogs returns entries for one entity, newest first.
func (r *Recorder) EntityLogs(ctx context.Context, entityType domain.EntityType, entityID string, limit, offset int) []domain.AuditLogEntry {
	if entityID == "" || !domain.ValidEntityType(entityType) {
		r.logger.Warn("invalid entity log query",
			zap.String("entity_type", string(entityType)),
			zap.String("entity_id", entityID))
		return []domain.AuditLogEntry{}
	}
	entries, err := r.logs.ListByEntity(ctx, entityType, entityID, limit, offset)
	if err != nil {
		r.logger.Error("failed to fetch entity logs", zap.Error(err))
		return []domain.AuditLogEntry{}
	}
	return entries
}

// StatusHistory returns STATUS_CHANGE entries for a ticket, oldest first,
// reconstructing the forward timeline.
func (r *Recorder) StatusHistory(ctx context.Context, ticketID string) []domain.AuditLogEntry {
	if ticketID == "" {
		r.logger.Warn("missing ticket id for status history query")
		return []domain.AuditLogEntry{}
	}
	entries, err := r.logs.ListStatusChanges(ctx, ticketID)
	if err != nil {
		r.logger.Error("failed to fetch status history", zap.Error(err))
		return []domain.AuditLogEntry{}
	}
	return entries
}

// StatusHistoryInRange returns the total count and one page of STATUS_CHANGE
// entries within [from, to], oldest first.
func (r *Recorder) StatusHistoryInRange(ctx context.Context, ticketID string, from, to time.Time, limit, offset int) (int64, []domain.AuditLogEntry) {
	if ticketID == "" {
		r.logger.Warn("missing ticket id for status history range query")
		return 0, []domain.AuditLogEntry{}
	}
	count, err := r.logs.CountStatusChangesInRange(ctx, ticketID, from, to)
	if err != nil {
		r.logger.Error("failed to count status history", zap.Error(err))
		return 0, []domain.AuditLogEntry{}
	}
	entries, err := r.logs.ListStatusChangesInRange(ctx, ticketID, from, to, limit, offset)
	if err != nil {
		r.logger.Error("failed to fetch status history page", zap.Error(err))
		return 0, []domain.AuditLogEntry{}
	}
	return count, entries
}

// RecentActivity returns the newest entries across all entities.
func (r *Recorder) RecentActivity(ctx context.Context, limit, offset int) []domain.AuditLogEntry {
	entries, err := r.logs.ListRecent(ctx, limit, offset)
	if err != nil {
		r.logger.Error("failed to fetch recent activity", zap.Error(err))
		return []domain.AuditLogEntry{}
	}
	return entries
}

// UserActivity returns entries recorded for one actor, newest first.
func (r *Recorder) UserActivity(ctx context.Context, userID string, limit, offset int) []domain.AuditLogEntry {
	if userID == "" {
		r.logger.Warn("missing user id for activity query")
		return []domain.AuditLogEntry{}
	}
	entries, err := r.logs.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		r.logger.Error("failed to fetch user activity", zap.Error(err))
		return []domain.AuditLogEntry{}
	}
	return entries
}
