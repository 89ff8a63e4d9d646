package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// Bid is an append-only ledger row. Bids are never updated except for the
// payment bookkeeping fields flipped by purchase confirmation.
type Bid struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	ListingID     uuid.UUID              `gorm:"column:listing_id;type:uuid;not null;index"`
	BidderID      uuid.UUID              `gorm:"column:bidder_id;type:uuid;not null;index"`
	Amount        decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	Quantity      int                    `gorm:"column:quantity;not null"`
	PlacedAt      time.Time              `gorm:"column:placed_at;autoCreateTime"`
	IsAccepted    bool                   `gorm:"column:is_accepted;not null;default:false"`
	PaymentStatus enums.BidPaymentStatus `gorm:"column:payment_status;type:bid_payment_status;not null;default:pending"`
}
