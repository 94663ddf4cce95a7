package dtos

import "github.com/google/uuid"

// FormSubmission is one parsed multipart submission of a governed form: the
// native field values plus the four audit hidden fields extracted from the
// POST body.
type FormSubmission struct {
	FormType      string            `json:"formType" validate:"required"`
	RecordID      uuid.UUID         `json:"recordId"` // uuid.Nil for a create
	Fields        map[string]string `json:"fields"`
	OldDataJSON   string            `json:"oldDataJson"`
	NewDataJSON   string            `json:"newDataJson"`
	ReasonsJSON   string            `json:"reasonsJson"`
	ReasonSummary string            `json:"reasonSummary"`
	SubmittedBy   string            `json:"submittedBy,omitempty"`
	IPAddress     string            `json:"ipAddress,omitempty"`
}

// IsCreate reports whether the submission targets a brand-new record.
func (s FormSubmission) IsCreate() bool { return s.RecordID == uuid.Nil }
