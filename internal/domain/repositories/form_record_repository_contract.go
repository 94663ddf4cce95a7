package repositories

import (
	"context"

	"ressync-audit-service/internal/domain/entities"

	"github.com/google/uuid"
)

// FormRecordRepositoryContract defines the operations of the form-record store.
type FormRecordRepositoryContract interface {
	Create(ctx context.Context, record *entities.FormRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.FormRecord, error)
	Update(ctx context.Context, record *entities.FormRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByFormType(ctx context.Context, formType string) ([]*entities.FormRecord, error)
	ListAll(ctx context.Context) ([]*entities.FormRecord, error)
}
