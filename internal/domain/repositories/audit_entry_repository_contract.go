package repositories

import (
	"context"

	"ressync-audit-service/internal/domain/entities"

	"github.com/google/uuid"
)

// AuditEntryRepositoryContract defines the operations of the audit-trail store.
type AuditEntryRepositoryContract interface {
	Create(ctx context.Context, entry *entities.AuditEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.AuditEntry, error)
	FindByRecordID(ctx context.Context, recordID uuid.UUID) ([]*entities.AuditEntry, error)
	ListAll(ctx context.Context) ([]*entities.AuditEntry, error)
}
