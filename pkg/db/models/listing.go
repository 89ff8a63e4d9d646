package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Listing represents a farmer's produce lot. Lifecycle state is never stored;
// it is derived from the bidding window and the bid/purchase ledger at read
// time. IsActive is a soft-close flag, not a state machine.
type Listing struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	FarmerID       uuid.UUID       `gorm:"column:farmer_id;type:uuid;not null;index"`
	Name           string          `gorm:"column:name;not null"`
	Description    string          `gorm:"column:description;not null"`
	CropType       string          `gorm:"column:crop_type;not null"`
	Location       string          `gorm:"column:location;not null"`
	Certifications pq.StringArray  `gorm:"column:certifications;type:text[]"`
	Quantity       int             `gorm:"column:quantity;not null"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	BidStartAt     *time.Time      `gorm:"column:bid_start_at"`
	BidEndAt       *time.Time      `gorm:"column:bid_end_at"`
	ImageURL       *string         `gorm:"column:image_url"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	Bids           []Bid           `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// HasAuction reports whether the listing carries a bidding window.
func (l Listing) HasAuction() bool {
	return l.BidStartAt != nil
}
