// Package mappers converts between wire DTOs and persistence entities.
package mappers

import (
	"encoding/json"
	"fmt"

	"ressync-audit-service/internal/domain/dtos"
	"ressync-audit-service/internal/domain/entities"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MapSubmissionToRecord builds the FormRecord entity for a submission. The
// native field values are stored as one JSONB document.
func MapSubmissionToRecord(submission dtos.FormSubmission, recordID uuid.UUID) (*entities.FormRecord, error) {
	if submission.FormType == "" {
		return nil, fmt.Errorf("form type is required")
	}
	fields, err := json.Marshal(submission.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshalling field values: %w", err)
	}
	return &entities.FormRecord{
		ID:       recordID,
		FormType: submission.FormType,
		Fields:   datatypes.JSON(fields),
	}, nil
}

// MapSubmissionToAuditEntry builds the AuditEntry entity for a submission.
// The three audit documents are validated as JSON before they are stored;
// empty documents (the no-changes path) persist as empty objects.
func MapSubmissionToAuditEntry(submission dtos.FormSubmission, recordID uuid.UUID) (*entities.AuditEntry, error) {
	action := entities.AuditActionUpdate
	if submission.IsCreate() {
		action = entities.AuditActionCreate
	}

	entry := &entities.AuditEntry{
		RecordID:      recordID,
		FormType:      submission.FormType,
		Action:        action,
		OldData:       datatypes.JSON(normalizeDocument(submission.OldDataJSON)),
		NewData:       datatypes.JSON(normalizeDocument(submission.NewDataJSON)),
		Reasons:       datatypes.JSON(normalizeDocument(submission.ReasonsJSON)),
		ReasonSummary: submission.ReasonSummary,
	}
	for _, doc := range []datatypes.JSON{entry.OldData, entry.NewData, entry.Reasons} {
		if !json.Valid(doc) {
			return nil, fmt.Errorf("invalid audit document for record %s", recordID)
		}
	}
	if submission.SubmittedBy != "" {
		entry.SubmittedBy = &submission.SubmittedBy
	}
	if submission.IPAddress != "" {
		entry.IPAddress = &submission.IPAddress
	}
	return entry, nil
}

func normalizeDocument(doc string) []byte {
	if doc == "" {
		return []byte("{}")
	}
	return []byte(doc)
}

// MapAuditEntryToDTO converts a persisted audit entry back into its API
// representation, parsing the JSONB documents.
func MapAuditEntryToDTO(entry *entities.AuditEntry) (dtos.AuditEntryDTO, error) {
	dto := dtos.AuditEntryDTO{
		ID:            entry.ID,
		RecordID:      entry.RecordID,
		FormType:      entry.FormType,
		Action:        entry.Action,
		OldData:       make(map[string]string),
		NewData:       make(map[string]string),
		Reasons:       make(map[string]dtos.FieldReasonDTO),
		ReasonSummary: entry.ReasonSummary,
		CreatedAt:     entry.CreatedAt,
	}
	if entry.SubmittedBy != nil {
		dto.SubmittedBy = *entry.SubmittedBy
	}
	if len(entry.OldData) > 0 {
		if err := json.Unmarshal(entry.OldData, &dto.OldData); err != nil {
			return dto, fmt.Errorf("parsing old-data document of entry %s: %w", entry.ID, err)
		}
	}
	if len(entry.NewData) > 0 {
		if err := json.Unmarshal(entry.NewData, &dto.NewData); err != nil {
			return dto, fmt.Errorf("parsing new-data document of entry %s: %w", entry.ID, err)
		}
	}
	if len(entry.Reasons) > 0 {
		if err := json.Unmarshal(entry.Reasons, &dto.Reasons); err != nil {
			return dto, fmt.Errorf("parsing reasons document of entry %s: %w", entry.ID, err)
		}
	}
	return dto, nil
}
