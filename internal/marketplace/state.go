package marketplace

import (
	"time"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// ListingState is derived from the bidding window and the ledger at read
// time. It is never persisted; two readers with the same inputs always agree.
type ListingState string

const (
	StateDirectSale    ListingState = "no_auction"
	StatePreAuction    ListingState = "pre_auction"
	StateBiddingOpen   ListingState = "bidding_open"
	StatePaymentWindow ListingState = "payment_window"
	StateClosedPaid    ListingState = "closed_paid"
	StateClosedUnpaid  ListingState = "closed_unpaid"
)

// StateAt derives the lifecycle state of a listing at the given instant.
// grace is how long the winning bidder has to pay after bid_end.
func StateAt(listing models.Listing, bids []models.Bid, now time.Time, grace time.Duration) ListingState {
	if !listing.HasAuction() {
		return StateDirectSale
	}
	if now.Before(*listing.BidStartAt) {
		return StatePreAuction
	}
	// Open-ended windows stay in bidding until a bid_end is set.
	if listing.BidEndAt == nil || now.Before(*listing.BidEndAt) {
		return StateBiddingOpen
	}

	winner := HighestBid(bids)
	if winner == nil {
		return StateClosedUnpaid
	}
	if winner.PaymentStatus == enums.BidPaymentStatusCompleted {
		return StateClosedPaid
	}
	// The window includes its last instant: the winner may still pay at
	// exactly bid_end + grace.
	if !now.After(listing.BidEndAt.Add(grace)) {
		return StatePaymentWindow
	}
	return StateClosedUnpaid
}

// HighestBid returns the leading ledger entry: greatest amount, with the
// earliest placed_at winning ties. Returns nil for an empty ledger.
func HighestBid(bids []models.Bid) *models.Bid {
	var leader *models.Bid
	for i := range bids {
		candidate := &bids[i]
		if leader == nil {
			leader = candidate
			continue
		}
		if candidate.Amount.GreaterThan(leader.Amount) {
			leader = candidate
			continue
		}
		if candidate.Amount.Equal(leader.Amount) && candidate.PlacedAt.Before(leader.PlacedAt) {
			leader = candidate
		}
	}
	return leader
}

// WinningBid is only defined once bidding has ended: during the payment
// window and after the winner has paid. In every other state it is nil.
func WinningBid(listing models.Listing, bids []models.Bid, now time.Time, grace time.Duration) *models.Bid {
	switch StateAt(listing, bids, now, grace) {
	case StatePaymentWindow, StateClosedPaid:
		return HighestBid(bids)
	default:
		return nil
	}
}

// AvailableQuantity recomputes remaining stock from the purchase ledger.
// soldQuantity is the sum of quantities across non-cancelled purchases;
// the result is floored at zero so oversold rows never surface as negative
// availability.
func AvailableQuantity(listing models.Listing, soldQuantity int) int {
	remaining := listing.Quantity - soldQuantity
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsBiddingOpen reports whether a bid may be appended to the ledger now.
func IsBiddingOpen(listing models.Listing, now time.Time) bool {
	if !listing.IsActive || !listing.HasAuction() {
		return false
	}
	if now.Before(*listing.BidStartAt) {
		return false
	}
	return listing.BidEndAt == nil || now.Before(*listing.BidEndAt)
}

// IsOpenForDirectPurchase reports whether a buyer can buy at the listed
// price. Direct sales are open outside auctions and again once an auction
// has fully resolved, as long as stock remains.
func IsOpenForDirectPurchase(listing models.Listing, bids []models.Bid, soldQuantity int, now time.Time, grace time.Duration) bool {
	if !listing.IsActive {
		return false
	}
	if AvailableQuantity(listing, soldQuantity) <= 0 {
		return false
	}
	switch StateAt(listing, bids, now, grace) {
	case StateDirectSale, StateClosedPaid, StateClosedUnpaid:
		return true
	default:
		return false
	}
}
