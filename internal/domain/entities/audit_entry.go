package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Audit actions recorded for a form record.
const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
)

// AuditEntry is one row of the audit trail: the old values, new values and
// per-field reasons of a single submission, stored as JSONB, plus the
// flattened human-readable summary for list views.
type AuditEntry struct {
	ID            uuid.UUID      `json:"id" db:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	RecordID      uuid.UUID      `json:"record_id" db:"record_id" gorm:"type:uuid;not null;index"`
	FormType      string         `json:"form_type" db:"form_type" gorm:"not null"`
	Action        string         `json:"action" db:"action" gorm:"not null"`
	OldData       datatypes.JSON `json:"old_data" db:"old_data" gorm:"type:jsonb"`
	NewData       datatypes.JSON `json:"new_data" db:"new_data" gorm:"type:jsonb"`
	Reasons       datatypes.JSON `json:"reasons" db:"reasons" gorm:"type:jsonb"`
	ReasonSummary string         `json:"reason_summary" db:"reason_summary"`
	SubmittedBy   *string        `json:"submitted_by,omitempty" db:"submitted_by"`
	IPAddress     *string        `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at" gorm:"not null"`
}
