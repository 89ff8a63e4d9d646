package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// StorageBooking reserves a number of slots in a storage facility.
type StorageBooking struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	SlotID      uuid.UUID           `gorm:"column:slot_id;type:uuid;not null;index"`
	BookedSlots int                 `gorm:"column:booked_slots;not null"`
	StartDate   time.Time           `gorm:"column:start_date;not null"`
	EndDate     time.Time           `gorm:"column:end_date;not null"`
	TotalPrice  decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status      enums.BookingStatus `gorm:"column:status;type:booking_status;not null;default:pending"`
	ApprovedBy  *uuid.UUID          `gorm:"column:approved_by;type:uuid"`
	BookedAt    time.Time           `gorm:"column:booked_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
