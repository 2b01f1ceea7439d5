package dto

import (
	"time"

	"github.com/spec-kit/chemconfig-service/internal/domain"
)

// TicketResponse is the wire shape of a ticket.
type TicketResponse struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	ChemicalConfig domain.ChemicalConfig `json:"chemicalConfig"`
	Attachments    []domain.Attachment   `json:"attachments"`
	Status         domain.TicketStatus   `json:"status"`
	RequesterID    string                `json:"requesterId"`
	Department     domain.Department     `json:"department"`
	RequestDate    time.Time             `json:"requestDate"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// Pagination describes one result page.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

// DateRange echoes the effective query window.
type DateRange struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// TicketListResponse is the listing envelope.
type TicketListResponse struct {
	Tickets    []TicketResponse `json:"tickets"`
	Pagination Pagination       `json:"pagination"`
	DateRange  DateRange        `json:"dateRange"`
}

// FromTicket maps a domain ticket to its response shape.
func FromTicket(t *domain.Ticket) TicketResponse {
	attachments := t.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return TicketResponse{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		ChemicalConfig: t.ChemicalConfig,
		Attachments:    attachments,
		Status:         t.Status,
		RequesterID:    t.RequesterID,
		Department:     t.Department,
		RequestDate:    t.RequestDate,
		UpdatedAt:      t.UpdatedAt,
	}
}
