package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// CultivationBooking leases cultivation land to a farmer by the acre.
type CultivationBooking struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	SlotID          uuid.UUID           `gorm:"column:slot_id;type:uuid;not null;index"`
	BookedAreaAcres decimal.Decimal     `gorm:"column:booked_area_acres;type:numeric(7,2);not null"`
	StartDate       time.Time           `gorm:"column:start_date;not null"`
	EndDate         time.Time           `gorm:"column:end_date;not null"`
	TotalPrice      decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status          enums.BookingStatus `gorm:"column:status;type:booking_status;not null;default:pending"`
	GuidanceNotes   string              `gorm:"column:guidance_notes"`
	ApprovedBy      *uuid.UUID          `gorm:"column:approved_by;type:uuid"`
	BookedAt        time.Time           `gorm:"column:booked_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
