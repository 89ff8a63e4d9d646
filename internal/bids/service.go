package bids

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/internal/marketplace"
	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PlaceBidInput captures a buyer's attempt to take the lead on a listing.
type PlaceBidInput struct {
	ListingID     uuid.UUID
	Amount        decimal.Decimal
	ActorID       uuid.UUID
	ActorRole     enums.Role
	ActorApproved bool
}

// Service defines bid ledger operations.
type Service interface {
	PlaceBid(ctx context.Context, input PlaceBidInput) (*models.Bid, error)
	ListForListing(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds a bids service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bids repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: ob,
		now:    time.Now,
	}, nil
}

func (s *service) PlaceBid(ctx context.Context, input PlaceBidInput) (*models.Bid, error) {
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.CanBuy() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers can place bids")
	}
	if !input.ActorApproved {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account pending approval")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var placed *models.Bid
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.LockListing(ctx, input.ListingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock listing")
		}
		if !locked {
			if _, err := repo.FindListing(ctx, input.ListingID); err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "bidding closed")
		}

		listing, err := repo.FindListing(ctx, input.ListingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if !marketplace.IsBiddingOpen(*listing, s.now()) {
			return pkgerrors.New(pkgerrors.CodeValidation, "bidding closed")
		}

		// Re-validated under the lock so a racing bidder that committed first
		// is already visible here.
		ledger, err := repo.ListForListing(ctx, listing.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid ledger")
		}
		if err := validateAmount(input.Amount, listing.Price, marketplace.HighestBid(ledger)); err != nil {
			return err
		}

		bid := &models.Bid{
			ID:            uuid.New(),
			ListingID:     listing.ID,
			BidderID:      input.ActorID,
			Amount:        input.Amount,
			Quantity:      listing.Quantity,
			PaymentStatus: enums.BidPaymentStatusPending,
		}
		if err := repo.Insert(ctx, bid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert bid")
		}
		placed = bid

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBidPlaced,
			AggregateType: enums.AggregateBid,
			AggregateID:   bid.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole.String()},
			Data: payloads.BidPlacedEvent{
				BidID:     bid.ID,
				ListingID: bid.ListingID,
				BidderID:  bid.BidderID,
				Amount:    bid.Amount,
				Quantity:  bid.Quantity,
				PlacedAt:  bid.PlacedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

func (s *service) ListForListing(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error) {
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if _, err := s.repo.FindListing(ctx, listingID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	ledger, err := s.repo.ListForListing(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid ledger")
	}
	return ledger, nil
}

func validateAmount(amount, listingPrice decimal.Decimal, leader *models.Bid) error {
	if amount.LessThanOrEqual(listingPrice) {
		return pkgerrors.New(pkgerrors.CodeValidation, "bid too low").
			WithDetails(map[string]string{"minimum": listingPrice.String()})
	}
	if leader != nil && amount.LessThanOrEqual(leader.Amount) {
		return pkgerrors.New(pkgerrors.CodeValidation, "bid too low").
			WithDetails(map[string]string{"leading": leader.Amount.String()})
	}
	return nil
}
