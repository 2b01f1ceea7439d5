package dto

import (
	"time"

	"github.com/spec-kit/chemconfig-service/internal/domain"
)

// AuditLogResponse is the wire shape of an audit entry.
type AuditLogResponse struct {
	ID            string             `json:"id"`
	Action        domain.AuditAction `json:"action"`
	EntityType    domain.EntityType  `json:"entityType"`
	EntityID      string             `json:"entityId"`
	UserID        string             `json:"userId"`
	UserName      string             `json:"userName"`
	UserRole      domain.UserRole    `json:"userRole"`
	PreviousValue map[string]any     `json:"previousValue,omitempty"`
	NewValue      map[string]any     `json:"newValue,omitempty"`
	Details       string             `json:"details"`
	Timestamp     time.Time          `json:"timestamp"`
	IPAddress     string             `json:"ipAddress,omitempty"`
	UserAgent     string             `json:"userAgent,omitempty"`
}

// StatusHistoryItem is one step of a ticket's status timeline, formatted for
// the board UI.
type StatusHistoryItem struct {
	ID             string             `json:"id"`
	TicketID       string             `json:"ticketId"`
	PreviousStatus string             `json:"previousStatus"`
	NewStatus      string             `json:"newStatus"`
	ChangedBy      StatusHistoryActor `json:"changedBy"`
	ChangedAt      time.Time          `json:"changedAt"`
	Comments       string             `json:"comments"`
}

// StatusHistoryActor identifies who moved the ticket.
type StatusHistoryActor struct {
	ID       string          `json:"id"`
	FullName string          `json:"fullName"`
	Role     domain.UserRole `json:"role"`
}

// StatusHistoryResponse is the timeline envelope.
type StatusHistoryResponse struct {
	StatusHistory []StatusHistoryItem `json:"statusHistory"`
	Pagination    Pagination          `json:"pagination"`
	DateRange     DateRange           `json:"dateRange"`
}

// FromAuditEntry maps a domain entry to its response shape.
func FromAuditEntry(e *domain.AuditLogEntry) AuditLogResponse {
	return AuditLogResponse{
		ID:            e.ID,
		Action:        e.Action,
		EntityType:    e.EntityType,
		EntityID:      e.EntityID,
		UserID:        e.UserID,
		UserName:      e.UserName,
		UserRole:      e.UserRole,
		PreviousValue: e.PreviousValue,
		NewValue:      e.NewValue,
		Details:       e.Details,
		Timestamp:     e.Timestamp,
		IPAddress:     e.IPAddress,
		UserAgent:     e.UserAgent,
	}
}

// FromStatusChange formats one STATUS_CHANGE entry as a timeline step.
func FromStatusChange(e *domain.AuditLogEntry) StatusHistoryItem {
	item := StatusHistoryItem{
		ID:        e.ID,
		TicketID:  e.EntityID,
		ChangedBy: StatusHistoryActor{ID: e.UserID, FullName: e.UserName, Role: e.UserRole},
		ChangedAt: e.Timestamp,
		Comments:  e.Details,
	}
	if s, ok := e.PreviousValue["status"].(string); ok {
		item.PreviousStatus = s
	}
	if s, ok := e.NewValue["status"].(string); ok {
		item.NewStatus = s
	}
	return item
}
