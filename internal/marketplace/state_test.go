package marketplace

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

const grace = 6 * time.Hour

func auctionListing(start, end *time.Time) models.Listing {
	return models.Listing{
		ID:         uuid.New(),
		FarmerID:   uuid.New(),
		Quantity:   100,
		Price:      decimal.NewFromInt(50),
		BidStartAt: start,
		BidEndAt:   end,
		IsActive:   true,
	}
}

func bidAt(amount int64, placedAt time.Time) models.Bid {
	return models.Bid{
		ID:            uuid.New(),
		Amount:        decimal.NewFromInt(amount),
		Quantity:      100,
		PlacedAt:      placedAt,
		PaymentStatus: enums.BidPaymentStatusPending,
	}
}

func TestStateAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-2 * time.Hour)
	future := now.Add(2 * time.Hour)
	longPast := now.Add(-8 * time.Hour)
	graceEdge := now.Add(-grace)

	paidBid := bidAt(80, past)
	paidBid.PaymentStatus = enums.BidPaymentStatusCompleted

	cases := []struct {
		name    string
		listing models.Listing
		bids    []models.Bid
		want    ListingState
	}{
		{
			name:    "no auction window",
			listing: auctionListing(nil, nil),
			want:    StateDirectSale,
		},
		{
			name:    "before bid start",
			listing: auctionListing(&future, nil),
			want:    StatePreAuction,
		},
		{
			name:    "open ended window",
			listing: auctionListing(&past, nil),
			want:    StateBiddingOpen,
		},
		{
			name:    "window still open",
			listing: auctionListing(&past, &future),
			bids:    []models.Bid{bidAt(60, past)},
			want:    StateBiddingOpen,
		},
		{
			name:    "ended without bids",
			listing: auctionListing(&longPast, &past),
			want:    StateClosedUnpaid,
		},
		{
			name:    "ended with unpaid winner inside grace",
			listing: auctionListing(&longPast, &past),
			bids:    []models.Bid{bidAt(60, longPast)},
			want:    StatePaymentWindow,
		},
		{
			name:    "unpaid winner at the exact grace deadline",
			listing: auctionListing(&longPast, &graceEdge),
			bids:    []models.Bid{bidAt(60, longPast)},
			want:    StatePaymentWindow,
		},
		{
			name:    "ended with paid winner",
			listing: auctionListing(&longPast, &past),
			bids:    []models.Bid{paidBid},
			want:    StateClosedPaid,
		},
		{
			name:    "grace expired unpaid",
			listing: auctionListing(&longPast, &longPast),
			bids:    []models.Bid{bidAt(60, longPast)},
			want:    StateClosedUnpaid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := StateAt(tc.listing, tc.bids, now, grace)
			if got != tc.want {
				t.Fatalf("StateAt = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHighestBidTiebreak(t *testing.T) {
	now := time.Now()
	early := bidAt(70, now.Add(-3*time.Hour))
	late := bidAt(70, now.Add(-1*time.Hour))
	low := bidAt(55, now.Add(-4*time.Hour))

	leader := HighestBid([]models.Bid{late, low, early})
	if leader == nil {
		t.Fatal("expected a leader")
	}
	if leader.ID != early.ID {
		t.Fatalf("leader = %s, want earliest equal-amount bid %s", leader.ID, early.ID)
	}

	if got := HighestBid(nil); got != nil {
		t.Fatalf("empty ledger should have no leader, got %v", got)
	}
}

func TestWinningBidVisibility(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	start := now.Add(-5 * time.Hour)
	future := now.Add(time.Hour)

	top := bidAt(90, start)
	bids := []models.Bid{bidAt(60, start), top}

	open := auctionListing(&start, &future)
	if got := WinningBid(open, bids, now, grace); got != nil {
		t.Fatalf("no winner while bidding is open, got %v", got)
	}

	ended := auctionListing(&start, &past)
	got := WinningBid(ended, bids, now, grace)
	if got == nil || got.ID != top.ID {
		t.Fatalf("winner in payment window = %v, want %s", got, top.ID)
	}
}

func TestAvailableQuantityFloor(t *testing.T) {
	l := models.Listing{Quantity: 10}
	if got := AvailableQuantity(l, 4); got != 6 {
		t.Fatalf("available = %d, want 6", got)
	}
	if got := AvailableQuantity(l, 15); got != 0 {
		t.Fatalf("oversold availability = %d, want 0", got)
	}
}

func TestIsBiddingOpen(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	open := auctionListing(&past, &future)
	if !IsBiddingOpen(open, now) {
		t.Fatal("expected bidding open inside window")
	}

	inactive := auctionListing(&past, &future)
	inactive.IsActive = false
	if IsBiddingOpen(inactive, now) {
		t.Fatal("inactive listing must not accept bids")
	}

	direct := auctionListing(nil, nil)
	if IsBiddingOpen(direct, now) {
		t.Fatal("listing without auction must not accept bids")
	}
}

func TestIsOpenForDirectPurchase(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	direct := auctionListing(nil, nil)
	if !IsOpenForDirectPurchase(direct, nil, 0, now, grace) {
		t.Fatal("direct sale listing with stock should be purchasable")
	}
	if IsOpenForDirectPurchase(direct, nil, direct.Quantity, now, grace) {
		t.Fatal("exhausted listing must not be purchasable")
	}

	open := auctionListing(&past, &future)
	if IsOpenForDirectPurchase(open, nil, 0, now, grace) {
		t.Fatal("listing with open bidding must not allow direct purchase")
	}

	resolved := auctionListing(&past, &past)
	if !IsOpenForDirectPurchase(resolved, nil, 0, now, grace) {
		t.Fatal("resolved auction with stock should reopen direct purchase")
	}
}
