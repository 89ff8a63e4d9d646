package listings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/internal/marketplace"
	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox"
)

type stubListingsRepo struct {
	listings map[uuid.UUID]*models.Listing
	sold     map[uuid.UUID]int
	updates  map[string]any
}

func newStubListingsRepo() *stubListingsRepo {
	return &stubListingsRepo{
		listings: map[uuid.UUID]*models.Listing{},
		sold:     map[uuid.UUID]int{},
	}
}

func (s *stubListingsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubListingsRepo) Create(ctx context.Context, listing *models.Listing) error {
	s.listings[listing.ID] = listing
	return nil
}

func (s *stubListingsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, ok := s.listings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *listing
	return &copied, nil
}

func (s *stubListingsRepo) List(ctx context.Context, filters ListFilters) ([]models.Listing, error) {
	rows := make([]models.Listing, 0, len(s.listings))
	for _, listing := range s.listings {
		rows = append(rows, *listing)
	}
	return rows, nil
}

func (s *stubListingsRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = updates
	listing, ok := s.listings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if active, ok := updates["is_active"].(bool); ok {
		listing.IsActive = active
	}
	if price, ok := updates["price"].(decimal.Decimal); ok {
		listing.Price = price
	}
	if qty, ok := updates["quantity"].(int); ok {
		listing.Quantity = qty
	}
	if name, ok := updates["name"].(string); ok {
		listing.Name = name
	}
	return nil
}

func (s *stubListingsRepo) SoldQuantity(ctx context.Context, listingID uuid.UUID, graceCutoff time.Time) (int, error) {
	return s.sold[listingID], nil
}

func (s *stubListingsRepo) SoldQuantities(ctx context.Context, listingIDs []uuid.UUID, graceCutoff time.Time) (map[uuid.UUID]int, error) {
	return s.sold, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository, ob *stubOutboxPublisher) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, ob, 6*time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func approvedFarmer() Actor {
	return Actor{UserID: uuid.New(), Role: enums.RoleFarmer, IsApproved: true}
}

func TestCreateListingEmitsEvent(t *testing.T) {
	repo := newStubListingsRepo()
	ob := &stubOutboxPublisher{}
	svc := newTestService(t, repo, ob)

	start := time.Now().Add(time.Hour)
	end := start.Add(24 * time.Hour)
	listing, err := svc.Create(context.Background(), CreateListingInput{
		Actor:      approvedFarmer(),
		Name:       "Basmati lot",
		CropType:   "rice",
		Location:   "Karnal",
		Quantity:   500,
		Price:      decimal.NewFromInt(60),
		BidStartAt: &start,
		BidEndAt:   &end,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if listing.ID == uuid.Nil {
		t.Fatal("listing id not assigned")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventListingCreated {
		t.Fatalf("expected listing_created event, got %+v", ob.events)
	}
}

func TestCreateListingRejectsUnapprovedOrWrongRole(t *testing.T) {
	repo := newStubListingsRepo()
	svc := newTestService(t, repo, &stubOutboxPublisher{})

	input := CreateListingInput{
		Name:     "Lot",
		CropType: "wheat",
		Location: "Indore",
		Quantity: 10,
		Price:    decimal.NewFromInt(30),
	}

	input.Actor = Actor{UserID: uuid.New(), Role: enums.RoleBuyer, IsApproved: true}
	if _, err := svc.Create(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("buyer create: got %v, want FORBIDDEN", err)
	}

	input.Actor = Actor{UserID: uuid.New(), Role: enums.RoleFarmer, IsApproved: false}
	if _, err := svc.Create(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("unapproved create: got %v, want FORBIDDEN", err)
	}
}

func TestCreateListingValidatesWindow(t *testing.T) {
	svc := newTestService(t, newStubListingsRepo(), &stubOutboxPublisher{})

	end := time.Now().Add(time.Hour)
	_, err := svc.Create(context.Background(), CreateListingInput{
		Actor:    approvedFarmer(),
		Name:     "Lot",
		CropType: "wheat",
		Location: "Indore",
		Quantity: 10,
		Price:    decimal.NewFromInt(30),
		BidEndAt: &end,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("end without start: got %v, want VALIDATION_ERROR", err)
	}
}

func TestUpdateLocksTermsAfterBiddingStarts(t *testing.T) {
	repo := newStubListingsRepo()
	svc := newTestService(t, repo, &stubOutboxPublisher{})

	actor := approvedFarmer()
	start := time.Now().Add(-time.Hour)
	listing := &models.Listing{
		ID:         uuid.New(),
		FarmerID:   actor.UserID,
		Name:       "Lot",
		CropType:   "wheat",
		Location:   "Indore",
		Quantity:   10,
		Price:      decimal.NewFromInt(30),
		BidStartAt: &start,
		IsActive:   true,
	}
	repo.listings[listing.ID] = listing

	newPrice := decimal.NewFromInt(45)
	_, err := svc.Update(context.Background(), UpdateListingInput{
		Actor:     actor,
		ListingID: listing.ID,
		Price:     &newPrice,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("price update after start: got %v, want STATE_CONFLICT", err)
	}

	name := "Renamed lot"
	updated, err := svc.Update(context.Background(), UpdateListingInput{
		Actor:     actor,
		ListingID: listing.ID,
		Name:      &name,
	})
	if err != nil {
		t.Fatalf("name update: %v", err)
	}
	if updated.Name != name {
		t.Fatalf("name = %q, want %q", updated.Name, name)
	}
}

func TestUpdateRejectsNonOwner(t *testing.T) {
	repo := newStubListingsRepo()
	svc := newTestService(t, repo, &stubOutboxPublisher{})

	listing := &models.Listing{
		ID:       uuid.New(),
		FarmerID: uuid.New(),
		Quantity: 10,
		Price:    decimal.NewFromInt(30),
		IsActive: true,
	}
	repo.listings[listing.ID] = listing

	name := "Hijack"
	_, err := svc.Update(context.Background(), UpdateListingInput{
		Actor:     approvedFarmer(),
		ListingID: listing.ID,
		Name:      &name,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("non-owner update: got %v, want FORBIDDEN", err)
	}
}

func TestDeactivateBlockedWhileBiddingOpen(t *testing.T) {
	repo := newStubListingsRepo()
	svc := newTestService(t, repo, &stubOutboxPublisher{})

	actor := approvedFarmer()
	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	listing := &models.Listing{
		ID:         uuid.New(),
		FarmerID:   actor.UserID,
		Quantity:   10,
		Price:      decimal.NewFromInt(30),
		BidStartAt: &start,
		BidEndAt:   &end,
		IsActive:   true,
	}
	repo.listings[listing.ID] = listing

	err := svc.Deactivate(context.Background(), actor, listing.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("deactivate during bidding: got %v, want STATE_CONFLICT", err)
	}
}

func TestGetProjectsDerivedState(t *testing.T) {
	repo := newStubListingsRepo()
	svc := newTestService(t, repo, &stubOutboxPublisher{})

	start := time.Now().Add(-2 * time.Hour)
	end := time.Now().Add(2 * time.Hour)
	listing := &models.Listing{
		ID:         uuid.New(),
		FarmerID:   uuid.New(),
		Quantity:   100,
		Price:      decimal.NewFromInt(30),
		BidStartAt: &start,
		BidEndAt:   &end,
		IsActive:   true,
		Bids: []models.Bid{
			{
				ID:            uuid.New(),
				Amount:        decimal.NewFromInt(42),
				Quantity:      100,
				PlacedAt:      time.Now().Add(-time.Hour),
				PaymentStatus: enums.BidPaymentStatusPending,
			},
		},
	}
	repo.listings[listing.ID] = listing
	repo.sold[listing.ID] = 25

	view, err := svc.Get(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.State != marketplace.StateBiddingOpen {
		t.Fatalf("state = %q, want bidding_open", view.State)
	}
	if view.AvailableQuantity != 75 {
		t.Fatalf("available = %d, want 75", view.AvailableQuantity)
	}
	if view.HighestBid == nil || !view.HighestBid.Amount.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("highest bid not projected: %+v", view.HighestBid)
	}
	if view.WinningBid != nil {
		t.Fatal("winner must be hidden while bidding is open")
	}
}
