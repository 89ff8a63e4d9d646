package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CultivationSlot is admin-managed land leased out to farmers by the acre.
type CultivationSlot struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name               string          `gorm:"column:name;not null"`
	Location           string          `gorm:"column:location;not null"`
	AvailableAreaAcres decimal.Decimal `gorm:"column:available_area_acres;type:numeric(7,2);not null;default:0"`
	PricePerAcre       decimal.Decimal `gorm:"column:price_per_acre;type:numeric(12,2);not null"`
	CropGuidance       string          `gorm:"column:crop_guidance"`
	IsActive           bool            `gorm:"column:is_active;not null;default:true"`
	CreatedBy          *uuid.UUID      `gorm:"column:created_by;type:uuid"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
