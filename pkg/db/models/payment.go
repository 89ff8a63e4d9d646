package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// Payment tracks a single gateway attempt, keyed by the opaque reference the
// webhook echoes back.
type Payment struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Amount    decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Method    enums.PaymentMethod `gorm:"column:method;type:payment_method;not null;default:upi"`
	Status    enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:initiated"`
	Reference string              `gorm:"column:reference;type:text;not null;uniqueIndex"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	PaidAt    *time.Time          `gorm:"column:paid_at"`
}
