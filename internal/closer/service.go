package closer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/internal/marketplace"
	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
	"github.com/agrimandi/agrimandi-backend/pkg/logger"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type idempotentPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Outcomes recorded on the listing_closed event.
const (
	OutcomePaid   = "paid"
	OutcomeUnpaid = "unpaid"
)

// SweepResult summarizes one closer pass.
type SweepResult struct {
	Scanned int
	Closed  int
	Paid    int
	Unpaid  int
}

// Service resolves expired auction windows. Every read path already derives
// the same truth lazily; the sweep only emits the one-shot closed event and
// flips the terminal is_active flag for exhausted lots.
type Service interface {
	SweepOnce(ctx context.Context) (SweepResult, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    idempotentPublisher
	logg      *logger.Logger
	grace     time.Duration
	batchSize int
	now       func() time.Time
}

// NewService builds a closer service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob idempotentPublisher, logg *logger.Logger, grace time.Duration, batchSize int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("closer repository required")
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
	if batchSize <= 0 {
		batchSize = 100
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    ob,
		logg:      logg,
		grace:     grace,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

func (s *service) SweepOnce(ctx context.Context) (SweepResult, error) {
	now := s.now()
	cutoff := now.Add(-s.grace)

	expired, err := s.repo.FindExpired(ctx, cutoff, s.batchSize)
	if err != nil {
		return SweepResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find expired listings")
	}

	result := SweepResult{Scanned: len(expired)}
	var errs error
	for _, listing := range expired {
		outcome, err := s.closeListing(ctx, listing, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("listing %s: %w", listing.ID, err))
			continue
		}
		result.Closed++
		switch outcome {
		case OutcomePaid:
			result.Paid++
		case OutcomeUnpaid:
			result.Unpaid++
		}
	}
	return result, errs
}

func (s *service) closeListing(ctx context.Context, listing models.Listing, now time.Time) (string, error) {
	state := marketplace.StateAt(listing, listing.Bids, now, s.grace)
	outcome := OutcomeUnpaid
	if state == marketplace.StateClosedPaid {
		outcome = OutcomePaid
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// A winner who never paid forfeits the claim; the pending purchase
		// row stops reserving stock and is voided here so the ledger matches.
		if _, err := repo.CancelStaleBidPurchases(ctx, listing.ID); err != nil {
			return err
		}

		sold, err := repo.SoldQuantity(ctx, listing.ID, now.Add(-s.grace))
		if err != nil {
			return err
		}
		if marketplace.AvailableQuantity(listing, sold) <= 0 && listing.IsActive {
			if err := repo.DeactivateListing(ctx, listing.ID); err != nil {
				return err
			}
		}

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingClosed,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Version:       1,
			Data: payloads.ListingClosedEvent{
				ListingID: listing.ID,
				FarmerID:  listing.FarmerID,
				Outcome:   outcome,
				ClosedAt:  now,
			},
		})
	})
	if err != nil {
		return "", err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"listing_id": listing.ID.String(),
			"outcome":    outcome,
		})
		s.logg.Info(logCtx, "auction resolved")
	}
	return outcome, nil
}
