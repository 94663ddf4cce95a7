package repositories

import (
	"context"
	"errors"
	"fmt"

	"ressync-audit-service/internal/domain/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFormRecordRepository is the PostgreSQL-backed form-record store.
type GormFormRecordRepository struct {
	db *gorm.DB
}

// Compile-time check against the contract.
var _ FormRecordRepositoryContract = (*GormFormRecordRepository)(nil)

// NewGormFormRecordRepository creates a form-record repository on the given
// GORM handle.
func NewGormFormRecordRepository(db *gorm.DB) *GormFormRecordRepository {
	return &GormFormRecordRepository{db: db}
}

func (r *GormFormRecordRepository) Create(ctx context.Context, record *entities.FormRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("creating %s record: %w", record.FormType, err)
	}
	return nil
}

func (r *GormFormRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.FormRecord, error) {
	var record entities.FormRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching record %s: %w", id, err)
	}
	return &record, nil
}

func (r *GormFormRecordRepository) Update(ctx context.Context, record *entities.FormRecord) error {
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("updating record %s: %w", record.ID, err)
	}
	return nil
}

func (r *GormFormRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&entities.FormRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	return nil
}

func (r *GormFormRecordRepository) FindByFormType(ctx context.Context, formType string) ([]*entities.FormRecord, error) {
	var records []*entities.FormRecord
	err := r.db.WithContext(ctx).
		Where("form_type = ?", formType).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing %s records: %w", formType, err)
	}
	return records, nil
}

func (r *GormFormRecordRepository) ListAll(ctx context.Context) ([]*entities.FormRecord, error) {
	var records []*entities.FormRecord
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return records, nil
}
