package domain

import "time"

// UserRole enumerates workflow roles.
type UserRole string

const (
	RoleRequester UserRole = "REQUESTER"
	RoleApprover  UserRole = "APPROVER"
	RoleAdmin     UserRole = "ADMIN"
)

// Department enumerates plant departments a user belongs to.
type Department string

const (
	DepartmentProduction  Department = "PRODUCTION"
	DepartmentQuality     Department = "QUALITY"
	DepartmentMaintenance Department = "MAINTENANCE"
	DepartmentEngineering Department = "ENGINEERING"
)

// User is the domain model for accounts that submit or review tickets.
type User struct {
	ID           string
	Username     string
	FullName     string
	PasswordHash string
	Role         UserRole
	Department   Department
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the authenticated actor attached to a request. Only ID and
// Role drive authorization; the rest is metadata copied into audit entries.
type Principal struct {
	ID         string
	Role       UserRole
	FullName   string
	Department Department
}

// PrincipalOf builds a principal from a resolved user record.
func PrincipalOf(u *User) Principal {
	return Principal{
		ID:         u.ID,
		Role:       u.Role,
		FullName:   u.FullName,
		Department: u.Department,
	}
}
