package dtos

import (
	"time"

	"github.com/google/uuid"
)

// FieldReasonDTO is one per-field justification inside an audit entry, with
// the display label denormalized in.
type FieldReasonDTO struct {
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// AuditEntryDTO represents one audit-trail row in API responses.
type AuditEntryDTO struct {
	ID            uuid.UUID                 `json:"id"`
	RecordID      uuid.UUID                 `json:"record_id"`
	FormType      string                    `json:"form_type"`
	Action        string                    `json:"action"`
	OldData       map[string]string         `json:"old_data"`
	NewData       map[string]string         `json:"new_data"`
	Reasons       map[string]FieldReasonDTO `json:"reasons"`
	ReasonSummary string                    `json:"reason_summary"`
	SubmittedBy   string                    `json:"submitted_by,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
}
