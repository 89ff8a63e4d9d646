package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubsidyScheme is a read-mostly catalog entry pointing at a government
// program.
type SubsidyScheme struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name                string          `gorm:"column:name;not null"`
	Description         string          `gorm:"column:description;not null"`
	EligibilityCriteria string          `gorm:"column:eligibility_criteria;not null"`
	SubsidyAmount       decimal.Decimal `gorm:"column:subsidy_amount;type:numeric(12,2);not null"`
	Link                string          `gorm:"column:link;not null"`
	IsActive            bool            `gorm:"column:is_active;not null;default:true"`
	AddedBy             *uuid.UUID      `gorm:"column:added_by;type:uuid"`
	AddedAt             time.Time       `gorm:"column:added_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
