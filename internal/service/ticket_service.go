package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/chemconfig-service/internal/audit"
	"github.com/spec-kit/chemconfig-service/internal/domain"
	"github.com/spec-kit/chemconfig-service/internal/events"
	"github.com/spec-kit/chemconfig-service/internal/repository"
	"github.com/spec-kit/chemconfig-service/internal/workflow"
	apperrors "github.com/spec-kit/chemconfig-service/pkg/util"
)

// TicketService coordinates the request/approval workflow. Every successful
// mutation is followed by an audit entry; the entry is recorded after the
// ticket write commits and its failure never surfaces to the caller.
type TicketService struct {
	tickets         repository.TicketRepository
	users           repository.UserRepository
	recorder        *audit.Recorder
	dispatcher      events.Dispatcher
	deleteAdminOnly bool
	clock           func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo      repository.TicketRepository
	UserRepo        repository.UserRepository
	Recorder        *audit.Recorder
	Dispatcher      events.Dispatcher
	DeleteAdminOnly bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:         deps.TicketRepo,
		users:           deps.UserRepo,
		recorder:        deps.Recorder,
		dispatcher:      deps.Dispatcher,
		deleteAdminOnly: deps.DeleteAdminOnly,
		clock:           time.Now,
	}
}

// WithClock overrides the timestamp source. Used by tests.
func (s *TicketService) WithClock(clock func() time.Time) *TicketService {
	s.clock = clock
	return s
}

// RequestMeta carries transport metadata copied into audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AttachmentInput is stored-upload metadata awaiting the uploader stamp.
type AttachmentInput struct {
	ID        string
	Name      string
	URL       string
	MimeType  string
	SizeBytes int64
}

// TicketCreateInput describes ticket creation payload. ChemicalConfigJSON is
// the raw client payload; it is parsed, not validated beyond that.
type TicketCreateInput struct {
	Title              string
	Description        string
	ChemicalConfigJSON string
	Attachments        []AttachmentInput
}

// TicketPatch describes a partial update. Nil fields are left untouched.
// RequesterID, Department and RequestDate cannot be patched at all.
type TicketPatch struct {
	Title              *string
	Description        *string
	ChemicalConfigJSON *string
	Status             *domain.TicketStatus
	Attachments        []AttachmentInput
}

// TicketListFilter describes listing parameters. An unset date range
// defaults to the last 30 days ending now.
type TicketListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// TicketPage is one page of listing results with the effective window.
type TicketPage struct {
	Tickets   []domain.Ticket
	Total     int64
	Page      int
	Limit     int
	StartDate time.Time
	EndDate   time.Time
}

// CreateTicket creates a DRAFT ticket owned by the principal.
func (s *TicketService) CreateTicket(ctx context.Context, principal domain.Principal, input TicketCreateInput, meta RequestMeta) (*domain.Ticket, error) {
	if principal.ID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	requester, err := s.users.GetByID(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.MapError(err)
	}

	cfg, err := parseChemicalConfig(input.ChemicalConfigJSON)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		ChemicalConfig: *cfg,
		Attachments:    s.stampAttachments(input.Attachments, principal.ID),
		Status:         domain.TicketStatusDraft,
		RequesterID:    requester.ID,
		Department:     requester.Department,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.recorder.Record(ctx, audit.Input{
		Action:     domain.ActionCreate,
		EntityType: domain.EntityTicket,
		EntityID:   ticket.ID,
		UserID:     principal.ID,
		UserName:   requester.FullName,
		UserRole:   principal.Role,
		NewValue:   ticketSnapshot(ticket),
		Details:    "Ticket created",
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	})

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: principal.ID, Role: principal.Role},
		Payload: events.TicketCreatedPayload{
			Title:       ticket.Title,
			Department:  ticket.Department,
			MachineID:   ticket.ChemicalConfig.MachineID,
			Attachments: len(ticket.Attachments),
		},
	})
	return ticket, nil
}

// GetTicket fetches one ticket. Reads are not audited.
func (s *TicketService) GetTicket(ctx context.Context, principal domain.Principal, ticketID string) (*domain.Ticket, error) {
	if principal.ID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns tickets visible to the principal within the date
// window. Visibility is role-scoped: admins see everything, approvers see
// decided and pending tickets plus their own, requesters only their own.
func (s *TicketService) ListTickets(ctx context.Context, principal domain.Principal, filter TicketListFilter) (*TicketPage, error) {
	if principal.ID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	end := s.clock()
	if filter.EndDate != nil {
		end = *filter.EndDate
	}
	start := end.AddDate(0, 0, -30)
	if filter.StartDate != nil {
		start = *filter.StartDate
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	repoFilter := repository.TicketFilter{
		RequestedFrom: &start,
		RequestedTo:   &end,
		Limit:         limit,
		Offset:        (page - 1) * limit,
	}
	switch principal.Role {
	case domain.RoleRequester:
		id := principal.ID
		repoFilter.RequesterID = &id
	case domain.RoleApprover:
		id := principal.ID
		repoFilter.ApproverScopeUserID = &id
	}

	total, err := s.tickets.CountWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &TicketPage{
		Tickets:   tickets,
		Total:     total,
		Page:      page,
		Limit:     limit,
		StartDate: start,
		EndDate:   end,
	}, nil
}

// UpdateTicket applies a partial update, authorizing any status change
// through the workflow policy. A status change emits one STATUS_CHANGE entry
// plus a supplementary APPROVE or REJECT entry when the ticket is decided;
// a plain field update emits a single UPDATE entry with full snapshots.
func (s *TicketService) UpdateTicket(ctx context.Context, principal domain.Principal, ticketID string, patch TicketPatch, meta RequestMeta) (*domain.Ticket, error) {
	if principal.ID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if patch.Status != nil && !domain.ValidStatus(*patch.Status) {
		return nil, apperrors.NewValidationError("invalid ticket status", map[string]any{"status": *patch.Status})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}

	isOwner := ticket.RequesterID == principal.ID
	allowed := principal.Role == domain.RoleAdmin ||
		isOwner ||
		(principal.Role == domain.RoleApprover && patch.Status != nil &&
			workflow.CanTransition(principal.Role, isOwner, ticket.Status, *patch.Status))
	if !allowed {
		return nil, apperrors.NewForbidden("not authorized to update this ticket")
	}

	before := ticketSnapshot(ticket)
	previousStatus := ticket.Status
	statusChanged := patch.Status != nil && *patch.Status != ticket.Status

	// Config parse failures abort before any field is touched.
	var cfg *domain.ChemicalConfig
	if patch.ChemicalConfigJSON != nil {
		cfg, err = parseChemicalConfig(*patch.ChemicalConfigJSON)
		if err != nil {
			return nil, err
		}
	}

	if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" {
		ticket.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) != "" {
		ticket.Description = strings.TrimSpace(*patch.Description)
	}
	if cfg != nil {
		ticket.ChemicalConfig = *cfg
	}
	if statusChanged {
		ticket.Status = *patch.Status
	}
	// Attachments merge; existing entries are never replaced.
	ticket.Attachments = append(ticket.Attachments, s.stampAttachments(patch.Attachments, principal.ID)...)

	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}

	if statusChanged {
		s.recorder.Record(ctx, audit.Input{
			Action:        domain.ActionStatusChange,
			EntityType:    domain.EntityTicket,
			EntityID:      ticket.ID,
			UserID:        principal.ID,
			UserName:      principal.FullName,
			UserRole:      principal.Role,
			PreviousValue: map[string]any{"status": previousStatus},
			NewValue:      map[string]any{"status": ticket.Status},
			Details:       fmt.Sprintf("Status changed from %s to %s", previousStatus, ticket.Status),
			IPAddress:     meta.IPAddress,
			UserAgent:     meta.UserAgent,
		})
		s.recordDecision(ctx, principal, ticket, meta)
		s.publishStatusEvents(ctx, principal, ticket, previousStatus)
	} else {
		s.recorder.Record(ctx, audit.Input{
			Action:        domain.ActionUpdate,
			EntityType:    domain.EntityTicket,
			EntityID:      ticket.ID,
			UserID:        principal.ID,
			UserName:      principal.FullName,
			UserRole:      principal.Role,
			PreviousValue: before,
			NewValue:      ticketSnapshot(ticket),
			Details:       "Ticket updated",
			IPAddress:     meta.IPAddress,
			UserAgent:     meta.UserAgent,
		})
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: ticket.ID,
			Actor:    events.Actor{UserID: principal.ID, Role: principal.Role},
		})
	}

	return ticket, nil
}

// DeleteTicket removes a ticket, retaining its audit trail. The snapshot is
// captured before deletion so the DELETE entry can carry it.
func (s *TicketService) DeleteTicket(ctx context.Context, principal domain.Principal, ticketID string, meta RequestMeta) error {
	if principal.ID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	if s.deleteAdminOnly && principal.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("not authorized to delete tickets")
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", nil)
		}
		return apperrors.MapError(err)
	}

	snapshot := ticketSnapshot(ticket)

	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", nil)
		}
		return apperrors.MapError(err)
	}

	s.recorder.Record(ctx, audit.Input{
		Action:        domain.ActionDelete,
		EntityType:    domain.EntityTicket,
		EntityID:      ticket.ID,
		UserID:        principal.ID,
		UserName:      principal.FullName,
		UserRole:      principal.Role,
		PreviousValue: snapshot,
		Details:       "Ticket deleted",
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
	})

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: principal.ID, Role: principal.Role},
		Payload: events.TicketDeletedPayload{
			Title:  ticket.Title,
			Status: ticket.Status,
		},
	})
	return nil
}

func (s *TicketService) recordDecision(ctx context.Context, principal domain.Principal, ticket *domain.Ticket, meta RequestMeta) {
	var action domain.AuditAction
	var details string
	switch ticket.Status {
	case domain.TicketStatusApproved:
		action, details = domain.ActionApprove, "Ticket approved"
	case domain.TicketStatusRejected:
		action, details = domain.ActionReject, "Ticket rejected"
	default:
		return
	}
	s.recorder.Record(ctx, audit.Input{
		Action:     action,
		EntityType: domain.EntityTicket,
		EntityID:   ticket.ID,
		UserID:     principal.ID,
		UserName:   principal.FullName,
		UserRole:   principal.Role,
		Details:    details,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	})
}

func (s *TicketService) publishStatusEvents(ctx context.Context, principal domain.Principal, ticket *domain.Ticket, previous domain.TicketStatus) {
	actor := events.Actor{UserID: principal.ID, Role: principal.Role}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: previous,
			NewStatus: ticket.Status,
		},
	})
	switch ticket.Status {
	case domain.TicketStatusApproved:
		s.publishEvent(ctx, events.Event{Type: events.EventTicketApproved, TicketID: ticket.ID, Actor: actor})
	case domain.TicketStatusRejected:
		s.publishEvent(ctx, events.Event{Type: events.EventTicketRejected, TicketID: ticket.ID, Actor: actor})
	}
}

func (s *TicketService) stampAttachments(inputs []AttachmentInput, uploaderID string) []domain.Attachment {
	if len(inputs) == 0 {
		return nil
	}
	now := s.clock()
	attachments := make([]domain.Attachment, 0, len(inputs))
	for _, in := range inputs {
		attachments = append(attachments, domain.Attachment{
			ID:         in.ID,
			Name:       in.Name,
			URL:        in.URL,
			MimeType:   in.MimeType,
			SizeBytes:  in.SizeBytes,
			UploadedBy: uploaderID,
			UploadedAt: now,
		})
	}
	return attachments
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func parseChemicalConfig(raw string) (*domain.ChemicalConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.NewValidationError("chemical configuration required", nil)
	}
	var cfg domain.ChemicalConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, apperrors.NewValidationError("invalid chemical configuration format", nil)
	}
	return &cfg, nil
}

// ticketSnapshot flattens a ticket for audit before/after payloads. Keys
// mirror the wire field names.
func ticketSnapshot(t *domain.Ticket) map[string]any {
	attachments := make([]map[string]any, 0, len(t.Attachments))
	for _, a := range t.Attachments {
		attachments = append(attachments, map[string]any{
			"id":         a.ID,
			"name":       a.Name,
			"url":        a.URL,
			"mimeType":   a.MimeType,
			"sizeBytes":  a.SizeBytes,
			"uploadedBy": a.UploadedBy,
			"uploadedAt": a.UploadedAt,
		})
	}
	return map[string]any{
		"id":             t.ID,
		"title":          t.Title,
		"description":    t.Description,
		"chemicalConfig": t.ChemicalConfig,
		"attachments":    attachments,
		"status":         string(t.Status),
		"requesterId":    t.RequesterID,
		"department":     string(t.Department),
		"requestDate":    t.RequestDate,
	}
}
