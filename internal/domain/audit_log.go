package domain

import "time"

// AuditAction enumerates recordable activities.
type AuditAction string

const (
	ActionCreate       AuditAction = "CREATE"
	ActionUpdate       AuditAction = "UPDATE"
	ActionDelete       AuditAction = "DELETE"
	ActionStatusChange AuditAction = "STATUS_CHANGE"
	ActionView         AuditAction = "VIEW"
	ActionLogin        AuditAction = "LOGIN"
	ActionLogout       AuditAction = "LOGOUT"
	ActionApprove      AuditAction = "APPROVE"
	ActionReject       AuditAction = "REJECT"
)

// EntityType enumerates audit subjects.
type EntityType string

const (
	EntityTicket         EntityType = "TICKET"
	EntityUser           EntityType = "USER"
	EntityChemicalConfig EntityType = "CHEMICAL_CONFIG"
	EntityAttachment     EntityType = "ATTACHMENT"
	EntitySystem         EntityType = "SYSTEM"
)

// ValidAuditAction reports whether a belongs to the closed action set.
func ValidAuditAction(a AuditAction) bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionStatusChange,
		ActionView, ActionLogin, ActionLogout, ActionApprove, ActionReject:
		return true
	}
	return false
}

// ValidEntityType reports whether e belongs to the closed entity set.
func ValidEntityType(e EntityType) bool {
	switch e {
	case EntityTicket, EntityUser, EntityChemicalConfig, EntityAttachment, EntitySystem:
		return true
	}
	return false
}

// AuditLogEntry is an immutable record of one state-changing action. Entries
// are never updated or deleted, and survive deletion of their subject.
// Seq preserves insertion order for entries sharing a timestamp.
type AuditLogEntry struct {
	ID            string
	Seq           int64
	Action        AuditAction
	EntityType    EntityType
	EntityID      string
	UserID        string
	UserName      string
	UserRole      UserRole
	PreviousValue map[string]any
	NewValue      map[string]any
	Details       string
	Timestamp     time.Time
	IPAddress     string
	UserAgent     string
}
