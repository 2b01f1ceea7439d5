package dto

import (
	"time"

	"github.com/spec-kit/chemconfig-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is the wire shape of an account, password hash excluded.
type UserResponse struct {
	ID         string            `json:"id"`
	Username   string            `json:"username"`
	FullName   string            `json:"fullName"`
	Role       domain.UserRole   `json:"role"`
	Department domain.Department `json:"department"`
}

// LoginResponse carries the issued token and its subject.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// FromUser maps a domain user to its response shape.
func FromUser(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		Role:       u.Role,
		Department: u.Department,
	}
}
