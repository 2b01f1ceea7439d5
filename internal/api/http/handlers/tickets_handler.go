package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chemconfig-service/internal/api/dto"
	"github.com/spec-kit/chemconfig-service/internal/auth"
	"github.com/spec-kit/chemconfig-service/internal/domain"
	"github.com/spec-kit/chemconfig-service/internal/service"
	"github.com/spec-kit/chemconfig-service/internal/storage"
	apperrors "github.com/spec-kit/chemconfig-service/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
	store   *storage.LocalStore
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, store *storage.LocalStore) *TicketsHandler {
	return &TicketsHandler{service: ticketService, store: store}
}

// CreateTicket POST /tickets (multipart).
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	input := service.TicketCreateInput{
		Title:              c.FormValue("title"),
		Description:        c.FormValue("description"),
		ChemicalConfigJSON: c.FormValue("chemicalConfig"),
	}
	if input.Title == "" {
		return apperrors.NewValidationError("title required", nil)
	}

	attachments, err := h.saveUploads(c)
	if err != nil {
		return err
	}
	input.Attachments = attachments

	ticket, err := h.service.CreateTicket(c.UserContext(), *principal, input, requestMeta(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.FromTicket(ticket))
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter := service.TicketListFilter{
		StartDate: parseTime(c.Query("startDate")),
		EndDate:   parseTime(c.Query("endDate")),
		Page:      parseInt(c.Query("page"), 1),
		Limit:     parseInt(c.Query("limit"), 20),
	}

	page, err := h.service.ListTickets(c.UserContext(), *principal, filter)
	if err != nil {
		return err
	}

	items := make([]dto.TicketResponse, 0, len(page.Tickets))
	for i := range page.Tickets {
		items = append(items, dto.FromTicket(&page.Tickets[i]))
	}
	return c.JSON(dto.TicketListResponse{
		Tickets:    items,
		Pagination: paginationOf(page.Total, page.Page, page.Limit),
		DateRange:  dto.DateRange{StartDate: page.StartDate, EndDate: page.EndDate},
	})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.GetTicket(c.UserContext(), *principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

// UpdateTicket PUT /tickets/:id (multipart).
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var patch service.TicketPatch
	if v := c.FormValue("title"); v != "" {
		patch.Title = &v
	}
	if v := c.FormValue("description"); v != "" {
		patch.Description = &v
	}
	if v := c.FormValue("chemicalConfig"); v != "" {
		patch.ChemicalConfigJSON = &v
	}
	if v := c.FormValue("status"); v != "" {
		status := domain.TicketStatus(v)
		patch.Status = &status
	}

	attachments, err := h.saveUploads(c)
	if err != nil {
		return err
	}
	patch.Attachments = attachments

	ticket, err := h.service.UpdateTicket(c.UserContext(), *principal, c.Params("id"), patch, requestMeta(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteTicket(c.UserContext(), *principal, c.Params("id"), requestMeta(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "ticket deleted"})
}

func (h *TicketsHandler) saveUploads(c *fiber.Ctx) ([]service.AttachmentInput, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, nil
	}
	files := form.File["files"]
	if len(files) == 0 {
		return nil, nil
	}

	attachments := make([]service.AttachmentInput, 0, len(files))
	for _, header := range files {
		stored, err := h.store.Save(header)
		if err != nil {
			return nil, apperrors.NewValidationError("failed to store upload", map[string]any{"file": header.Filename})
		}
		attachments = append(attachments, service.AttachmentInput{
			ID:        stored.Filename,
			Name:      stored.OriginalName,
			URL:       stored.URL,
			MimeType:  stored.MimeType,
			SizeBytes: stored.SizeBytes,
		})
	}
	return attachments, nil
}
