package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chemconfig-service/internal/api/dto"
	"github.com/spec-kit/chemconfig-service/internal/auth"
	"github.com/spec-kit/chemconfig-service/internal/service"
	apperrors "github.com/spec-kit/chemconfig-service/pkg/util"
)

// UsersHandler manages authentication and account directory endpoints.
type UsersHandler struct {
	service *service.AuthService
	users   *service.UserService
	version string
	env     string
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, userService *service.UserService, version, env string) *UsersHandler {
	return &UsersHandler{service: authService, users: userService, version: version, env: env}
}

// Login POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	user, token, expiresAt, err := h.service.Login(c.UserContext(), req.Username, req.Password, requestMeta(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      dto.FromUser(user),
	})
}

// Logout POST /auth/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	h.service.Logout(c.UserContext(), *principal, requestMeta(c))
	return c.JSON(fiber.Map{"message": "logged out"})
}

// ListUsers GET /users. Password hashes are stripped by the DTO layer.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	users, err := h.users.ListUsers(c.UserContext(), *principal)
	if err != nil {
		return err
	}

	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.FromUser(&users[i]))
	}
	return c.JSON(items)
}

// GetUser GET /users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	user, err := h.users.GetUser(c.UserContext(), *principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromUser(user))
}

// Status GET /auth/status. Connectivity probe used by the board UI.
func (h *UsersHandler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "online",
		"timestamp":   time.Now(),
		"version":     h.version,
		"environment": h.env,
	})
}
