package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FormRecord is one persisted instance of a governed clinical form
// (enrollment, discharge, follow-up, microbiology). The submitted field
// values are stored as JSONB.
type FormRecord struct {
	ID        uuid.UUID      `json:"id" db:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	FormType  string         `json:"form_type" db:"form_type" gorm:"not null;index"`
	Fields    datatypes.JSON `json:"fields" db:"fields" gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `json:"created_at" db:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at" gorm:"not null"`
}
