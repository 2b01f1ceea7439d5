package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chemconfig-service/internal/api/dto"
	"github.com/spec-kit/chemconfig-service/internal/auth"
	"github.com/spec-kit/chemconfig-service/internal/domain"
	"github.com/spec-kit/chemconfig-service/internal/service"
	apperrors "github.com/spec-kit/chemconfig-service/pkg/util"
)

// AuditLogsHandler serves audit history endpoints.
type AuditLogsHandler struct {
	service *service.AuditQueryService
}

// NewAuditLogsHandler constructs handler.
func NewAuditLogsHandler(auditService *service.AuditQueryService) *AuditLogsHandler {
	return &AuditLogsHandler{service: auditService}
}

// StatusHistory GET /audit-logs/tickets/:id/status-history.
func (h *AuditLogsHandler) StatusHistory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	page, err := h.service.TicketStatusHistory(c.UserContext(), *principal, c.Params("id"),
		parseTime(c.Query("startDate")), parseTime(c.Query("endDate")),
		parseInt(c.Query("page"), 1), parseInt(c.Query("limit"), 20))
	if err != nil {
		return err
	}

	items := make([]dto.StatusHistoryItem, 0, len(page.Entries))
	for i := range page.Entries {
		items = append(items, dto.FromStatusChange(&page.Entries[i]))
	}
	return c.JSON(dto.StatusHistoryResponse{
		StatusHistory: items,
		Pagination:    paginationOf(page.Total, page.Page, page.Limit),
		DateRange:     dto.DateRange{StartDate: page.StartDate, EndDate: page.EndDate},
	})
}

// TicketLogs GET /audit-logs/tickets/:id/logs.
func (h *AuditLogsHandler) TicketLogs(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	entries, err := h.service.TicketLogs(c.UserContext(), *principal, c.Params("id"),
		parseInt(c.Query("limit"), 100), parseIntAllowZero(c.Query("skip")))
	if err != nil {
		return err
	}
	return c.JSON(auditResponses(entries))
}

// RecentActivity GET /audit-logs/recent.
func (h *AuditLogsHandler) RecentActivity(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	entries, err := h.service.RecentActivity(c.UserContext(), *principal,
		parseInt(c.Query("limit"), 50), parseIntAllowZero(c.Query("skip")))
	if err != nil {
		return err
	}
	return c.JSON(auditResponses(entries))
}

// UserActivity GET /audit-logs/users/:userId.
func (h *AuditLogsHandler) UserActivity(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	entries, err := h.service.UserActivity(c.UserContext(), *principal, c.Params("userId"),
		parseInt(c.Query("limit"), 50), parseIntAllowZero(c.Query("skip")))
	if err != nil {
		return err
	}
	return c.JSON(auditResponses(entries))
}

func parseIntAllowZero(val string) int {
	if val == "" {
		return 0
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func auditResponses(entries []domain.AuditLogEntry) []dto.AuditLogResponse {
	items := make([]dto.AuditLogResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.FromAuditEntry(&entries[i]))
	}
	return items
}
