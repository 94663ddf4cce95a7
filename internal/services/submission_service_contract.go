package services

import (
	"context"

	"ressync-audit-service/internal/domain/dtos"

	"github.com/google/uuid"
)

// SubmissionServiceContract defines the operations for processing governed
// form submissions and serving their audit trails.
type SubmissionServiceContract interface {
	// Start begins the background processing of queued submissions.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the submission workers.
	Stop(ctx context.Context) error
	// SubmitForm validates a submission and queues it for persistence.
	// It returns the identifier of the affected record (freshly minted for
	// a create).
	SubmitForm(ctx context.Context, submission dtos.FormSubmission) (uuid.UUID, error)
	// GetAuditTrail returns the audit entries of one record, oldest first.
	GetAuditTrail(ctx context.Context, recordID uuid.UUID) ([]dtos.AuditEntryDTO, error)
}
