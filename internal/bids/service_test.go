package bids

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/agrimandi/agrimandi-backend/pkg/db"
	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:bids_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	ddl := `CREATE TABLE listings (
		id TEXT PRIMARY KEY,
		farmer_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		crop_type TEXT NOT NULL,
		location TEXT NOT NULL,
		certifications TEXT,
		quantity INTEGER NOT NULL,
		price NUMERIC NOT NULL,
		bid_start_at DATETIME,
		bid_end_at DATETIME,
		image_url TEXT,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at DATETIME,
		updated_at DATETIME
	)`
	if err := conn.Exec(ddl).Error; err != nil {
		t.Fatalf("create listings table: %v", err)
	}
	if err := conn.AutoMigrate(&models.Bid{}); err != nil {
		t.Fatalf("migrate bids: %v", err)
	}
	return conn
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newTestService(t *testing.T, conn *gorm.DB, ob *stubOutboxPublisher) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), dbpkg.NewWithConn(conn), ob)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedAuctionListing(t *testing.T, conn *gorm.DB, price int64, start, end *time.Time) models.Listing {
	t.Helper()
	listing := models.Listing{
		ID:         uuid.New(),
		FarmerID:   uuid.New(),
		Name:       "Auction lot",
		CropType:   "wheat",
		Location:   "Indore",
		Quantity:   200,
		Price:      decimal.NewFromInt(price),
		BidStartAt: start,
		BidEndAt:   end,
		IsActive:   true,
	}
	if err := conn.Create(&listing).Error; err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return listing
}

func buyerInput(listingID uuid.UUID, amount int64) PlaceBidInput {
	return PlaceBidInput{
		ListingID:     listingID,
		Amount:        decimal.NewFromInt(amount),
		ActorID:       uuid.New(),
		ActorRole:     enums.RoleBuyer,
		ActorApproved: true,
	}
}

func TestPlaceBidAppendsFullLotEntry(t *testing.T) {
	conn := openTestDB(t)
	ob := &stubOutboxPublisher{}
	svc := newTestService(t, conn, ob)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	listing := seedAuctionListing(t, conn, 50, &start, &end)

	bid, err := svc.PlaceBid(context.Background(), buyerInput(listing.ID, 60))
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if bid.Quantity != listing.Quantity {
		t.Fatalf("bid quantity = %d, want full lot %d", bid.Quantity, listing.Quantity)
	}
	if bid.PaymentStatus != enums.BidPaymentStatusPending {
		t.Fatalf("payment status = %s, want pending", bid.PaymentStatus)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventBidPlaced {
		t.Fatalf("expected bid_placed event, got %+v", ob.events)
	}

	var count int64
	if err := conn.Model(&models.Bid{}).Where("listing_id = ?", listing.ID).Count(&count).Error; err != nil {
		t.Fatalf("count bids: %v", err)
	}
	if count != 1 {
		t.Fatalf("ledger rows = %d, want 1", count)
	}
}

func TestPlaceBidRejectsLowAmounts(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, &stubOutboxPublisher{})

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	listing := seedAuctionListing(t, conn, 50, &start, &end)

	// At or below the listed price.
	if _, err := svc.PlaceBid(context.Background(), buyerInput(listing.ID, 50)); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("bid at listing price: got %v, want VALIDATION_ERROR", err)
	}

	if _, err := svc.PlaceBid(context.Background(), buyerInput(listing.ID, 70)); err != nil {
		t.Fatalf("leading bid: %v", err)
	}

	// Matching the leader is still too low; the earlier bid keeps the tie.
	if _, err := svc.PlaceBid(context.Background(), buyerInput(listing.ID, 70)); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("bid equal to leader: got %v, want VALIDATION_ERROR", err)
	}

	if _, err := svc.PlaceBid(context.Background(), buyerInput(listing.ID, 71)); err != nil {
		t.Fatalf("outbid: %v", err)
	}
}

func TestPlaceBidRejectsOutsideWindow(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, &stubOutboxPublisher{})

	future := time.Now().Add(time.Hour)
	farFuture := future.Add(time.Hour)
	notStarted := seedAuctionListing(t, conn, 50, &future, &farFuture)
	if _, err := svc.PlaceBid(context.Background(), buyerInput(notStarted.ID, 60)); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("bid before start: got %v, want VALIDATION_ERROR", err)
	}

	past := time.Now().Add(-2 * time.Hour)
	justPast := time.Now().Add(-time.Hour)
	ended := seedAuctionListing(t, conn, 50, &past, &justPast)
	if _, err := svc.PlaceBid(context.Background(), buyerInput(ended.ID, 60)); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("bid after end: got %v, want VALIDATION_ERROR", err)
	}

	direct := seedAuctionListing(t, conn, 50, nil, nil)
	if _, err := svc.PlaceBid(context.Background(), buyerInput(direct.ID, 60)); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("bid on direct sale: got %v, want VALIDATION_ERROR", err)
	}
}

func TestPlaceBidRejectsInactiveOrMissingListing(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, &stubOutboxPublisher{})

	if _, err := svc.PlaceBid(context.Background(), buyerInput(uuid.New(), 60)); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("missing listing: got %v, want NOT_FOUND", err)
	}

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	listing := seedAuctionListing(t, conn, 50, &start, &end)
	if err := conn.Model(&models.Listing{}).Where("id = ?", listing.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.PlaceBid(context.Background(), buyerInput(listing.ID, 60)); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("inactive listing: got %v, want VALIDATION_ERROR", err)
	}
}

func TestPlaceBidRequiresApprovedBuyer(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, &stubOutboxPublisher{})

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	listing := seedAuctionListing(t, conn, 50, &start, &end)

	farmer := buyerInput(listing.ID, 60)
	farmer.ActorRole = enums.RoleFarmer
	if _, err := svc.PlaceBid(context.Background(), farmer); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("farmer bid: got %v, want FORBIDDEN", err)
	}

	unapproved := buyerInput(listing.ID, 60)
	unapproved.ActorApproved = false
	if _, err := svc.PlaceBid(context.Background(), unapproved); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("unapproved bid: got %v, want FORBIDDEN", err)
	}
}

func TestListForListingReturnsLedgerInOrder(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, &stubOutboxPublisher{})

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	listing := seedAuctionListing(t, conn, 50, &start, &end)

	for _, amount := range []int64{60, 65, 72} {
		if _, err := svc.PlaceBid(context.Background(), buyerInput(listing.ID, amount)); err != nil {
			t.Fatalf("place %d: %v", amount, err)
		}
	}

	ledger, err := svc.ListForListing(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ledger) != 3 {
		t.Fatalf("ledger rows = %d, want 3", len(ledger))
	}
	for i := 1; i < len(ledger); i++ {
		if ledger[i].PlacedAt.Before(ledger[i-1].PlacedAt) {
			t.Fatal("ledger not in placement order")
		}
	}
}
