package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// ListingCreatedEvent signals a farmer published a new lot.
type ListingCreatedEvent struct {
	ListingID  uuid.UUID  `json:"listing_id"`
	FarmerID   uuid.UUID  `json:"farmer_id"`
	CropType   string     `json:"crop_type"`
	Quantity   int        `json:"quantity"`
	Price      string     `json:"price"`
	BidStartAt *time.Time `json:"bid_start_at,omitempty"`
	BidEndAt   *time.Time `json:"bid_end_at,omitempty"`
}

// ListingClosedEvent is emitted once when a listing leaves circulation, either
// because the lot sold out or the payment grace window lapsed unpaid.
type ListingClosedEvent struct {
	ListingID uuid.UUID `json:"listing_id"`
	FarmerID  uuid.UUID `json:"farmer_id"`
	Outcome   string    `json:"outcome"`
	ClosedAt  time.Time `json:"closed_at"`
}

// BidPlacedEvent records an accepted entry in the bid ledger.
type BidPlacedEvent struct {
	BidID     uuid.UUID       `json:"bid_id"`
	ListingID uuid.UUID       `json:"listing_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Quantity  int             `json:"quantity"`
	PlacedAt  time.Time       `json:"placed_at"`
}

// BidWonEvent is emitted when the winning bid's payment settles.
type BidWonEvent struct {
	BidID     uuid.UUID       `json:"bid_id"`
	ListingID uuid.UUID       `json:"listing_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// PurchaseCreatedEvent records a pending purchase awaiting payment.
type PurchaseCreatedEvent struct {
	PurchaseID   uuid.UUID          `json:"purchase_id"`
	ListingID    uuid.UUID          `json:"listing_id"`
	BuyerID      uuid.UUID          `json:"buyer_id"`
	PurchaseType enums.PurchaseType `json:"purchase_type"`
	Quantity     int                `json:"quantity"`
	TotalPrice   decimal.Decimal    `json:"total_price"`
}

// PaymentConfirmedEvent is emitted by the single authoritative payment
// transition.
type PaymentConfirmedEvent struct {
	PurchaseID uuid.UUID       `json:"purchase_id"`
	PaymentID  uuid.UUID       `json:"payment_id"`
	ListingID  uuid.UUID       `json:"listing_id"`
	BuyerID    uuid.UUID       `json:"buyer_id"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAt     time.Time       `json:"paid_at"`
}

// PaymentCancelledEvent reports an abandoned or failed payment.
type PaymentCancelledEvent struct {
	PurchaseID uuid.UUID `json:"purchase_id"`
	PaymentID  uuid.UUID `json:"payment_id"`
	ListingID  uuid.UUID `json:"listing_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	Reason     string    `json:"reason,omitempty"`
}

// BookingRequestedEvent covers both storage and cultivation bookings.
type BookingRequestedEvent struct {
	BookingID  uuid.UUID       `json:"booking_id"`
	SlotID     uuid.UUID       `json:"slot_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Kind       string          `json:"kind"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// BookingDecidedEvent reports an admin decision on a booking.
type BookingDecidedEvent struct {
	BookingID uuid.UUID           `json:"booking_id"`
	SlotID    uuid.UUID           `json:"slot_id"`
	UserID    uuid.UUID           `json:"user_id"`
	Kind      string              `json:"kind"`
	Status    enums.BookingStatus `json:"status"`
	DecidedBy uuid.UUID           `json:"decided_by"`
}
