package repositories

import (
	"context"
	"errors"
	"fmt"

	"ressync-audit-service/internal/domain/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditEntryRepository is the PostgreSQL-backed audit-trail store.
type GormAuditEntryRepository struct {
	db *gorm.DB
}

// Compile-time check against the contract.
var _ AuditEntryRepositoryContract = (*GormAuditEntryRepository)(nil)

// NewGormAuditEntryRepository creates an audit-entry repository on the given
// GORM handle.
func NewGormAuditEntryRepository(db *gorm.DB) *GormAuditEntryRepository {
	return &GormAuditEntryRepository{db: db}
}

func (r *GormAuditEntryRepository) Create(ctx context.Context, entry *entities.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("creating audit entry for record %s: %w", entry.RecordID, err)
	}
	return nil
}

func (r *GormAuditEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.AuditEntry, error) {
	var entry entities.AuditEntry
	err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching audit entry %s: %w", id, err)
	}
	return &entry, nil
}

func (r *GormAuditEntryRepository) FindByRecordID(ctx context.Context, recordID uuid.UUID) ([]*entities.AuditEntry, error) {
	var entries []*entities.AuditEntry
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("listing audit entries for record %s: %w", recordID, err)
	}
	return entries, nil
}

func (r *GormAuditEntryRepository) ListAll(ctx context.Context) ([]*entities.AuditEntry, error) {
	var entries []*entities.AuditEntry
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	return entries, nil
}
