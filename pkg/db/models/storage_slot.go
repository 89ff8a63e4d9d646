package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// StorageSlot is an admin-managed storage facility with a bookable capacity.
type StorageSlot struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Name           string                `gorm:"column:name;not null"`
	Location       string                `gorm:"column:location;not null"`
	CapacityTons   int                   `gorm:"column:capacity_tons;not null"`
	AvailableSlots int                   `gorm:"column:available_slots;not null;default:0"`
	PricePerSlot   decimal.Decimal       `gorm:"column:price_per_slot;type:numeric(12,2);not null"`
	SlotType       enums.StorageSlotType `gorm:"column:slot_type;type:storage_slot_type;not null"`
	IsActive       bool                  `gorm:"column:is_active;not null;default:true"`
	CreatedBy      *uuid.UUID            `gorm:"column:created_by;type:uuid"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
