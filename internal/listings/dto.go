package listings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/internal/marketplace"
	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// Actor is the authenticated identity performing a listing operation.
type Actor struct {
	UserID     uuid.UUID
	Role       enums.Role
	IsApproved bool
}

// CreateListingInput carries the fields a farmer submits for a new lot.
type CreateListingInput struct {
	Actor          Actor
	Name           string
	Description    string
	CropType       string
	Location       string
	Certifications []string
	Quantity       int
	Price          decimal.Decimal
	BidStartAt     *time.Time
	BidEndAt       *time.Time
	ImageURL       *string
}

// UpdateListingInput carries partial updates. Nil fields are left untouched.
type UpdateListingInput struct {
	Actor       Actor
	ListingID   uuid.UUID
	Name        *string
	Description *string
	Location    *string
	Price       *decimal.Decimal
	Quantity    *int
	ImageURL    *string
}

// ListFilters narrows and pages the listing feed.
type ListFilters struct {
	CropType   string
	Location   string
	FarmerID   *uuid.UUID
	OnlyActive bool
	Limit      int
	Cursor     string
}

// View is the read-side projection of a listing: the stored row plus
// everything derived from the ledgers at request time.
type View struct {
	Listing           models.Listing           `json:"listing"`
	State             marketplace.ListingState `json:"state"`
	AvailableQuantity int                      `json:"available_quantity"`
	HighestBid        *models.Bid              `json:"highest_bid,omitempty"`
	WinningBid        *models.Bid              `json:"winning_bid,omitempty"`
}
