package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// UniquePurchasePerBid is the constraint that makes bid payment initiation
// idempotent: RelatedBidID is NULL for direct purchases so those never collide.
const UniquePurchasePerBid = "ux_purchases_buyer_listing_bid"

// Purchase snapshots price and quantity at initiation time.
type Purchase struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID      uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null;index;uniqueIndex:ux_purchases_buyer_listing_bid"`
	ListingID    uuid.UUID            `gorm:"column:listing_id;type:uuid;not null;index;uniqueIndex:ux_purchases_buyer_listing_bid"`
	PurchaseType enums.PurchaseType   `gorm:"column:purchase_type;type:purchase_type;not null;default:regular"`
	Quantity     int                  `gorm:"column:quantity;not null"`
	UnitPrice    decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice   decimal.Decimal      `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status       enums.PurchaseStatus `gorm:"column:status;type:purchase_status;not null;default:pending_payment"`
	PaymentID    *uuid.UUID           `gorm:"column:payment_id;type:uuid"`
	RelatedBidID *uuid.UUID           `gorm:"column:related_bid_id;type:uuid;uniqueIndex:ux_purchases_buyer_listing_bid"`
	Payment      *Payment             `gorm:"foreignKey:PaymentID"`
	PurchasedAt  time.Time            `gorm:"column:purchased_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
