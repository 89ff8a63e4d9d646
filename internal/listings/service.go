package listings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/internal/marketplace"
	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox/payloads"
	"github.com/agrimandi/agrimandi-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines listing lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateListingInput) (*models.Listing, error)
	Get(ctx context.Context, id uuid.UUID) (*View, error)
	List(ctx context.Context, filters ListFilters) ([]View, string, error)
	Update(ctx context.Context, input UpdateListingInput) (*models.Listing, error)
	Deactivate(ctx context.Context, actor Actor, listingID uuid.UUID) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	grace  time.Duration
	now    func() time.Time
}

// NewService builds a listings service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, grace time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if grace <= 0 {
		return nil, fmt.Errorf("bid grace period must be positive")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: ob,
		grace:  grace,
		now:    time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateListingInput) (*models.Listing, error) {
	if err := requireApprovedSeller(input.Actor); err != nil {
		return nil, err
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	listing := &models.Listing{
		ID:             uuid.New(),
		FarmerID:       input.Actor.UserID,
		Name:           strings.TrimSpace(input.Name),
		Description:    strings.TrimSpace(input.Description),
		CropType:       strings.TrimSpace(input.CropType),
		Location:       strings.TrimSpace(input.Location),
		Certifications: pq.StringArray(input.Certifications),
		Quantity:       input.Quantity,
		Price:          input.Price,
		BidStartAt:     input.BidStartAt,
		BidEndAt:       input.BidEndAt,
		ImageURL:       input.ImageURL,
		IsActive:       true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, listing); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingCreated,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.ListingCreatedEvent{
				ListingID:  listing.ID,
				FarmerID:   listing.FarmerID,
				CropType:   listing.CropType,
				Quantity:   listing.Quantity,
				Price:      listing.Price.String(),
				BidStartAt: listing.BidStartAt,
				BidEndAt:   listing.BidEndAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}

	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}

	sold, err := s.repo.SoldQuantity(ctx, listing.ID, s.now().Add(-s.grace))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sold quantity")
	}

	view := s.project(*listing, sold)
	return &view, nil
}

func (s *service) List(ctx context.Context, filters ListFilters) ([]View, string, error) {
	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}

	limit := pagination.NormalizeLimit(filters.Limit)
	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	sold, err := s.repo.SoldQuantities(ctx, ids, s.now().Add(-s.grace))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sold quantities")
	}

	views := make([]View, 0, len(rows))
	for _, row := range rows {
		views = append(views, s.project(row, sold[row.ID]))
	}
	return views, nextCursor, nil
}

func (s *service) Update(ctx context.Context, input UpdateListingInput) (*models.Listing, error) {
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	updates, err := buildUpdates(input)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var updated *models.Listing
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindByID(ctx, input.ListingID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if err := requireOwnerOrAdmin(input.Actor, listing.FarmerID); err != nil {
			return err
		}

		// Price and quantity are frozen once bidding has started; bids were
		// placed against those terms.
		if auctionStarted(*listing, s.now()) {
			if _, ok := updates["price"]; ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "price is locked after bidding starts")
			}
			if _, ok := updates["quantity"]; ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "quantity is locked after bidding starts")
			}
		}

		if err := repo.Update(ctx, listing.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
		}

		updated, err = repo.FindByID(ctx, listing.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload listing")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Deactivate(ctx context.Context, actor Actor, listingID uuid.UUID) error {
	if listingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindByID(ctx, listingID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if err := requireOwnerOrAdmin(actor, listing.FarmerID); err != nil {
			return err
		}
		if marketplace.IsBiddingOpen(*listing, s.now()) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot deactivate while bidding is open")
		}
		if !listing.IsActive {
			return nil
		}
		if err := repo.Update(ctx, listing.ID, map[string]any{"is_active": false}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate listing")
		}
		return nil
	})
}

func (s *service) project(listing models.Listing, sold int) View {
	now := s.now()
	return View{
		Listing:           listing,
		State:             marketplace.StateAt(listing, listing.Bids, now, s.grace),
		AvailableQuantity: marketplace.AvailableQuantity(listing, sold),
		HighestBid:        marketplace.HighestBid(listing.Bids),
		WinningBid:        marketplace.WinningBid(listing, listing.Bids, now, s.grace),
	}
}

func validateCreate(input CreateListingInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if strings.TrimSpace(input.CropType) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "crop type required")
	}
	if strings.TrimSpace(input.Location) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "location required")
	}
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !input.Price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.BidEndAt != nil && input.BidStartAt == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bid end requires a bid start")
	}
	if input.BidStartAt != nil && input.BidEndAt != nil && !input.BidEndAt.After(*input.BidStartAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "bid end must be after bid start")
	}
	return nil
}

func buildUpdates(input UpdateListingInput) (map[string]any, error) {
	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Location != nil {
		if strings.TrimSpace(*input.Location) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "location cannot be empty")
		}
		updates["location"] = strings.TrimSpace(*input.Location)
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		updates["price"] = *input.Price
	}
	if input.Quantity != nil {
		if *input.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		updates["quantity"] = *input.Quantity
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	return updates, nil
}

func requireApprovedSeller(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.Role.CanSell() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only farmers can create listings")
	}
	if !actor.IsApproved {
		return pkgerrors.New(pkgerrors.CodeForbidden, "account pending approval")
	}
	return nil
}

func requireOwnerOrAdmin(actor Actor, ownerID uuid.UUID) error {
	if actor.Role.CanAdminister() {
		return nil
	}
	if actor.UserID != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "listing does not belong to user")
	}
	return nil
}

func auctionStarted(listing models.Listing, now time.Time) bool {
	return listing.HasAuction() && !now.Before(*listing.BidStartAt)
}

func actorRef(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   actor.Role.String(),
	}
}
