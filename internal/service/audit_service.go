package service

import (
	"context"
	"time"

	"github.com/spec-kit/chemconfig-service/internal/audit"
	"github.com/spec-kit/chemconfig-service/internal/domain"
	apperrors "github.com/spec-kit/chemconfig-service/pkg/util"
)

// AuditQueryService authorizes who may read audit data. The recorder's query
// methods never fail; the only errors produced here are authorization ones.
type AuditQueryService struct {
	recorder *audit.Recorder
	clock    func() time.Time
}

// NewAuditQueryService constructs the service.
func NewAuditQueryService(recorder *audit.Recorder) *AuditQueryService {
	return &AuditQueryService{recorder: recorder, clock: time.Now}
}

// StatusHistoryPage is one page of a ticket's status timeline.
type StatusHistoryPage struct {
	Entries   []domain.AuditLogEntry
	Total     int64
	Page      int
	Limit     int
	StartDate time.Time
	EndDate   time.Time
}

// TicketStatusHistory returns the paginated STATUS_CHANGE timeline for a
// ticket, oldest first. Any authenticated principal may read it.
func (s *AuditQueryService) TicketStatusHistory(ctx context.Context, principal domain.Principal, ticketID string, startDate, endDate *time.Time, page, limit int) (*StatusHistoryPage, error) {
	if principal.ID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	end := s.clock()
	if endDate != nil {
		end = *endDate
	}
	start := end.AddDate(0, 0, -30)
	if startDate != nil {
		start = *startDate
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	total, entries := s.recorder.StatusHistoryInRange(ctx, ticketID, start, end, limit, (page-1)*limit)
	return &StatusHistoryPage{
		Entries:   entries,
		Total:     total,
		Page:      page,
		Limit:     limit,
		StartDate: start,
		EndDate:   end,
	}, nil
}

// TicketLogs returns the complete audit trail for a ticket. ADMIN only.
func (s *AuditQueryService) TicketLogs(ctx context.Context, principal domain.Principal, ticketID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	if principal.ID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if principal.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("not authorized to view complete audit logs")
	}
	return s.recorder.EntityLogs(ctx, domain.EntityTicket, ticketID, limit, offset), nil
}

// RecentActivity returns system-wide activity, newest first. ADMIN only.
func (s *AuditQueryService) RecentActivity(ctx context.Context, principal domain.Principal, limit, offset int) ([]domain.AuditLogEntry, error) {
	if principal.ID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if principal.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("not authorized to view system activity")
	}
	return s.recorder.RecentActivity(ctx, limit, offset), nil
}

// UserActivity returns one actor's entries, newest first. Admins may query
// anyone; everyone else only themselves.
func (s *AuditQueryService) UserActivity(ctx context.Context, principal domain.Principal, targetUserID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	if principal.ID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if principal.Role != domain.RoleAdmin && principal.ID != targetUserID {
		return nil, apperrors.NewForbidden("not authorized to view other user activities")
	}
	return s.recorder.UserActivity(ctx, targetUserID, limit, offset), nil
}
