package domain

import "time"

// TicketStatus enumerates workflow states for configuration requests.
type TicketStatus string

const (
	TicketStatusDraft    TicketStatus = "DRAFT"
	TicketStatusPending  TicketStatus = "PENDING"
	TicketStatusApproved TicketStatus = "APPROVED"
	TicketStatusRejected TicketStatus = "REJECTED"
)

// ValidStatus reports whether s is one of the four workflow states.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusDraft, TicketStatusPending, TicketStatusApproved, TicketStatusRejected:
		return true
	}
	return false
}

// ChemicalConfig is the machine configuration payload carried by a ticket.
// The core checks presence, not content.
type ChemicalConfig struct {
	MachineID        string         `json:"machineId"`
	MachineName      string         `json:"machineName"`
	ChemicalType     string         `json:"chemicalType"`
	Concentration    float64        `json:"concentration"`
	Temperature      float64        `json:"temperature"`
	FlowRate         float64        `json:"flowRate"`
	AdditionalParams map[string]any `json:"additionalParams,omitempty"`
}

// Attachment is uploaded file metadata embedded in a ticket. The attachment
// list is append-only: new uploads are added, existing entries are never
// replaced or reordered.
type Attachment struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	UploadedBy string    `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Ticket is the aggregate for chemical configuration requests.
// RequesterID, Department and RequestDate are fixed at creation and are
// never written again afterwards.
type Ticket struct {
	ID             string
	Title          string
	Description    string
	ChemicalConfig ChemicalConfig
	Attachments    []Attachment
	Status         TicketStatus
	RequesterID    string
	Department     Department
	RequestDate    time.Time
	UpdatedAt      time.Time
}
