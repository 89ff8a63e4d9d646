package listings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

func seedListing(t *testing.T, repo Repository, farmerID uuid.UUID, crop string, createdAt time.Time) models.Listing {
	t.Helper()
	listing := models.Listing{
		ID:        uuid.New(),
		FarmerID:  farmerID,
		Name:      "Lot " + crop,
		CropType:  crop,
		Location:  "Nashik",
		Quantity:  100,
		Price:     decimal.NewFromInt(40),
		IsActive:  true,
		CreatedAt: createdAt,
	}
	if err := repo.Create(context.Background(), &listing); err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return listing
}

func TestRepositoryFindByIDPreloadsBids(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := seedListing(t, repo, uuid.New(), "wheat", time.Now())
	bid := models.Bid{
		ID:            uuid.New(),
		ListingID:     listing.ID,
		BidderID:      uuid.New(),
		Amount:        decimal.NewFromInt(55),
		Quantity:      listing.Quantity,
		PaymentStatus: enums.BidPaymentStatusPending,
	}
	if err := db.Create(&bid).Error; err != nil {
		t.Fatalf("seed bid: %v", err)
	}

	loaded, err := repo.FindByID(ctx, listing.ID)
	if err != nil {
		t.Fatalf("find listing: %v", err)
	}
	if len(loaded.Bids) != 1 || loaded.Bids[0].ID != bid.ID {
		t.Fatalf("bids not preloaded: %+v", loaded.Bids)
	}
}

func TestRepositoryListFiltersAndPaginates(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	farmerID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedListing(t, repo, farmerID, "wheat", base.Add(time.Duration(i)*time.Minute))
	}
	seedListing(t, repo, uuid.New(), "rice", base)

	rows, err := repo.List(ctx, ListFilters{CropType: "wheat", OnlyActive: true, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// Limit plus the next-page probe row.
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows with buffer, got %d", len(rows))
	}
	for _, row := range rows {
		if row.CropType != "wheat" {
			t.Fatalf("crop filter leaked %q", row.CropType)
		}
	}
	if rows[0].CreatedAt.Before(rows[1].CreatedAt) {
		t.Fatalf("expected newest first ordering")
	}
}

func TestRepositorySoldQuantityIgnoresCancelled(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := seedListing(t, repo, uuid.New(), "onion", time.Now())
	buyerID := uuid.New()
	rows := []models.Purchase{
		{
			ID:        uuid.New(),
			BuyerID:   buyerID,
			ListingID: listing.ID,
			Quantity:  10,
			Status:    enums.PurchaseStatusPaymentCompleted,
		},
		{
			ID:        uuid.New(),
			BuyerID:   uuid.New(),
			ListingID: listing.ID,
			Quantity:  5,
			Status:    enums.PurchaseStatusPendingPayment,
		},
		{
			ID:        uuid.New(),
			BuyerID:   uuid.New(),
			ListingID: listing.ID,
			Quantity:  50,
			Status:    enums.PurchaseStatusCancelled,
		},
	}
	for i := range rows {
		rows[i].UnitPrice = decimal.NewFromInt(40)
		rows[i].TotalPrice = decimal.NewFromInt(int64(rows[i].Quantity) * 40)
		rows[i].PurchaseType = enums.PurchaseTypeRegular
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed purchase: %v", err)
		}
	}

	cutoff := time.Now().Add(-6 * time.Hour)
	sold, err := repo.SoldQuantity(ctx, listing.ID, cutoff)
	if err != nil {
		t.Fatalf("sold quantity: %v", err)
	}
	if sold != 15 {
		t.Fatalf("sold = %d, want 15 (cancelled excluded)", sold)
	}

	byID, err := repo.SoldQuantities(ctx, []uuid.UUID{listing.ID}, cutoff)
	if err != nil {
		t.Fatalf("sold quantities: %v", err)
	}
	if byID[listing.ID] != 15 {
		t.Fatalf("batched sold = %d, want 15", byID[listing.ID])
	}
}

func TestRepositorySoldQuantityDropsLapsedBidHold(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	start := time.Now().Add(-48 * time.Hour)
	end := time.Now().Add(-10 * time.Hour)
	listing := models.Listing{
		ID:         uuid.New(),
		FarmerID:   uuid.New(),
		Name:       "Lapsed lot",
		CropType:   "soy",
		Location:   "Nagpur",
		Quantity:   100,
		Price:      decimal.NewFromInt(40),
		BidStartAt: &start,
		BidEndAt:   &end,
		IsActive:   true,
	}
	if err := repo.Create(ctx, &listing); err != nil {
		t.Fatalf("seed listing: %v", err)
	}

	purchase := models.Purchase{
		ID:           uuid.New(),
		BuyerID:      uuid.New(),
		ListingID:    listing.ID,
		PurchaseType: enums.PurchaseTypeBid,
		Quantity:     100,
		UnitPrice:    decimal.NewFromInt(55),
		TotalPrice:   decimal.NewFromInt(5500),
		Status:       enums.PurchaseStatusPendingPayment,
	}
	if err := db.Create(&purchase).Error; err != nil {
		t.Fatalf("seed purchase: %v", err)
	}

	// Payment window still open: the pending bid purchase holds the stock.
	held, err := repo.SoldQuantity(ctx, listing.ID, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("sold quantity: %v", err)
	}
	if held != 100 {
		t.Fatalf("sold = %d, want 100 while the window is open", held)
	}

	// Window lapsed: the unpaid hold no longer counts.
	released, err := repo.SoldQuantity(ctx, listing.ID, time.Now().Add(-6*time.Hour))
	if err != nil {
		t.Fatalf("sold quantity: %v", err)
	}
	if released != 0 {
		t.Fatalf("sold = %d, want 0 after the window lapses", released)
	}
}
