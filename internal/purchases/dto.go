package purchases

import (
	"github.com/google/uuid"

	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// Actor is the authenticated identity performing a purchase operation.
type Actor struct {
	UserID     uuid.UUID
	Role       enums.Role
	IsApproved bool
}

// DirectPurchaseInput is a buy-now request at the listed price.
type DirectPurchaseInput struct {
	Actor     Actor
	ListingID uuid.UUID
	Quantity  int
	Method    enums.PaymentMethod
}

// BidPaymentInput settles the winning bid during the payment window.
type BidPaymentInput struct {
	Actor  Actor
	BidID  uuid.UUID
	Method enums.PaymentMethod
}

// ListFilters narrows a buyer's purchase history.
type ListFilters struct {
	BuyerID uuid.UUID
	Status  *enums.PurchaseStatus
	Limit   int
	Cursor  string
}
