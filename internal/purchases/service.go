package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/internal/marketplace"
	dbpkg "github.com/agrimandi/agrimandi-backend/pkg/db"
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

// Service defines purchase reconciliation operations. ConfirmPayment is the
// single mutation that settles money against the ledger; everything else
// creates pending rows or derives.
type Service interface {
	InitiateDirectPurchase(ctx context.Context, input DirectPurchaseInput) (*models.Purchase, error)
	InitiateBidPayment(ctx context.Context, input BidPaymentInput) (*models.Purchase, error)
	ConfirmPayment(ctx context.Context, purchaseID uuid.UUID) error
	CancelPayment(ctx context.Context, purchaseID uuid.UUID, reason string) error
	ResolveByReference(ctx context.Context, reference string, status enums.PaymentStatus) error
	Get(ctx context.Context, actor Actor, purchaseID uuid.UUID) (*models.Purchase, error)
	ListForBuyer(ctx context.Context, filters ListFilters) ([]models.Purchase, string, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	grace  time.Duration
	now    func() time.Time
}

// NewService builds a purchases service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, grace time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchases repository required")
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

func (s *service) InitiateDirectPurchase(ctx context.Context, input DirectPurchaseInput) (*models.Purchase, error) {
	if err := requireApprovedBuyer(input.Actor); err != nil {
		return nil, err
	}
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	method, err := normalizeMethod(input.Method)
	if err != nil {
		return nil, err
	}

	var created *models.Purchase
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.LockListing(ctx, input.ListingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock listing")
		}
		if !locked {
			if _, err := repo.FindListing(ctx, input.ListingID); err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "listing is closed")
		}

		listing, err := repo.FindListing(ctx, input.ListingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		ledger, err := repo.ListBids(ctx, listing.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid ledger")
		}
		now := s.now()
		sold, err := repo.SoldQuantity(ctx, listing.ID, now.Add(-s.grace))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sold quantity")
		}

		if !marketplace.IsOpenForDirectPurchase(*listing, ledger, sold, now, s.grace) {
			if marketplace.AvailableQuantity(*listing, sold) <= 0 {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "listing is sold out")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "listing not open for direct purchase")
		}
		if input.Quantity > marketplace.AvailableQuantity(*listing, sold) {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]int{"available": marketplace.AvailableQuantity(*listing, sold)})
		}

		unitPrice := listing.Price
		totalPrice := unitPrice.Mul(decimal.NewFromInt(int64(input.Quantity)))

		payment := &models.Payment{
			ID:        uuid.New(),
			UserID:    input.Actor.UserID,
			Amount:    totalPrice,
			Method:    method,
			Status:    enums.PaymentStatusInitiated,
			Reference: newPaymentReference(),
		}
		if err := repo.InsertPayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment")
		}

		purchase := &models.Purchase{
			ID:           uuid.New(),
			BuyerID:      input.Actor.UserID,
			ListingID:    listing.ID,
			PurchaseType: enums.PurchaseTypeRegular,
			Quantity:     input.Quantity,
			UnitPrice:    unitPrice,
			TotalPrice:   totalPrice,
			Status:       enums.PurchaseStatusPendingPayment,
			PaymentID:    &payment.ID,
		}
		if err := repo.InsertPurchase(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert purchase")
		}
		purchase.Payment = payment
		created = purchase

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseCreated,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.PurchaseCreatedEvent{
				PurchaseID:   purchase.ID,
				ListingID:    purchase.ListingID,
				BuyerID:      purchase.BuyerID,
				PurchaseType: purchase.PurchaseType,
				Quantity:     purchase.Quantity,
				TotalPrice:   purchase.TotalPrice,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) InitiateBidPayment(ctx context.Context, input BidPaymentInput) (*models.Purchase, error) {
	if err := requireApprovedBuyer(input.Actor); err != nil {
		return nil, err
	}
	if input.BidID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid id required")
	}
	method, err := normalizeMethod(input.Method)
	if err != nil {
		return nil, err
	}

	var result *models.Purchase
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		bid, err := repo.FindBid(ctx, input.BidID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid")
		}
		if bid.BidderID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "bid does not belong to user")
		}

		// Repeat calls return the purchase created the first time. A
		// cancelled row is revived below instead, so an abandoned attempt
		// does not forfeit the win while the window is still open.
		var revived *models.Purchase
		existing, err := repo.FindPurchaseByBid(ctx, bid.BidderID, bid.ListingID, bid.ID)
		if err == nil {
			if existing.Status != enums.PurchaseStatusCancelled {
				result = existing
				return nil
			}
			revived = existing
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing purchase")
		}

		listing, err := repo.FindListing(ctx, bid.ListingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		ledger, err := repo.ListBids(ctx, listing.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid ledger")
		}

		winner := marketplace.WinningBid(*listing, ledger, s.now(), s.grace)
		if winner == nil || winner.ID != bid.ID {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bid is not the current winner")
		}
		if bid.PaymentStatus != enums.BidPaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bid payment already settled")
		}

		unitPrice := bid.Amount
		totalPrice := unitPrice.Mul(decimal.NewFromInt(int64(bid.Quantity)))

		payment := &models.Payment{
			ID:        uuid.New(),
			UserID:    bid.BidderID,
			Amount:    totalPrice,
			Method:    method,
			Status:    enums.PaymentStatusInitiated,
			Reference: newPaymentReference(),
		}
		if err := repo.InsertPayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment")
		}

		if revived != nil {
			if err := repo.UpdatePurchase(ctx, revived.ID, map[string]any{
				"status":     enums.PurchaseStatusPendingPayment,
				"payment_id": payment.ID,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revive purchase")
			}
			revived.Status = enums.PurchaseStatusPendingPayment
			revived.PaymentID = &payment.ID
			revived.Payment = payment
			result = revived
			return nil
		}

		relatedBidID := bid.ID
		purchase := &models.Purchase{
			ID:           uuid.New(),
			BuyerID:      bid.BidderID,
			ListingID:    bid.ListingID,
			PurchaseType: enums.PurchaseTypeBid,
			Quantity:     bid.Quantity,
			UnitPrice:    unitPrice,
			TotalPrice:   totalPrice,
			Status:       enums.PurchaseStatusPendingPayment,
			PaymentID:    &payment.ID,
			RelatedBidID: &relatedBidID,
		}
		if err := repo.InsertPurchase(ctx, purchase); err != nil {
			// A concurrent initiation won the insert; hand back its row.
			if dbpkg.IsUniqueViolation(err, models.UniquePurchasePerBid) {
				existing, findErr := repo.FindPurchaseByBid(ctx, bid.BidderID, bid.ListingID, bid.ID)
				if findErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeConflict, findErr, "purchase initiation race")
				}
				result = existing
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert purchase")
		}
		purchase.Payment = payment
		result = purchase

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseCreated,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.PurchaseCreatedEvent{
				PurchaseID:   purchase.ID,
				ListingID:    purchase.ListingID,
				BuyerID:      purchase.BuyerID,
				PurchaseType: purchase.PurchaseType,
				Quantity:     purchase.Quantity,
				TotalPrice:   purchase.TotalPrice,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ConfirmPayment(ctx context.Context, purchaseID uuid.UUID) error {
	if purchaseID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		purchase, err := repo.FindPurchase(ctx, purchaseID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
		}

		switch purchase.Status {
		case enums.PurchaseStatusPaymentCompleted:
			return nil
		case enums.PurchaseStatusCancelled:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase already cancelled")
		}

		// Serialize against concurrent purchases so the soft-close decision
		// sees a settled ledger. The lock may fail when the listing is already
		// inactive; confirmation still proceeds then.
		if _, err := repo.LockListing(ctx, purchase.ListingID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock listing")
		}

		now := s.now()
		if err := repo.UpdatePurchase(ctx, purchase.ID, map[string]any{
			"status": enums.PurchaseStatusPaymentCompleted,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase")
		}
		if purchase.PaymentID != nil {
			if err := repo.UpdatePayment(ctx, *purchase.PaymentID, map[string]any{
				"status":  enums.PaymentStatusSuccess,
				"paid_at": now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
			}
		}

		if purchase.RelatedBidID != nil {
			if err := repo.UpdateBid(ctx, *purchase.RelatedBidID, map[string]any{
				"payment_status": enums.BidPaymentStatusCompleted,
				"is_accepted":    true,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bid")
			}
		}

		listing, err := repo.FindListing(ctx, purchase.ListingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		sold, err := repo.SoldQuantity(ctx, purchase.ListingID, now.Add(-s.grace))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sold quantity")
		}
		if marketplace.AvailableQuantity(*listing, sold) <= 0 && listing.IsActive {
			if err := repo.DeactivateListing(ctx, listing.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "soft-close listing")
			}
		}

		if purchase.RelatedBidID != nil {
			bid, err := repo.FindBid(ctx, *purchase.RelatedBidID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid")
			}
			err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventBidWon,
				AggregateType: enums.AggregateBid,
				AggregateID:   bid.ID,
				Version:       1,
				Data: payloads.BidWonEvent{
					BidID:     bid.ID,
					ListingID: bid.ListingID,
					BidderID:  bid.BidderID,
					Amount:    bid.Amount,
				},
			})
			if err != nil {
				return err
			}
		}

		paymentID := uuid.Nil
		if purchase.PaymentID != nil {
			paymentID = *purchase.PaymentID
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentConfirmed,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Version:       1,
			Data: payloads.PaymentConfirmedEvent{
				PurchaseID: purchase.ID,
				PaymentID:  paymentID,
				ListingID:  purchase.ListingID,
				BuyerID:    purchase.BuyerID,
				Amount:     purchase.TotalPrice,
				PaidAt:     now,
			},
		})
	})
}

func (s *service) CancelPayment(ctx context.Context, purchaseID uuid.UUID, reason string) error {
	if purchaseID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		purchase, err := repo.FindPurchase(ctx, purchaseID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
		}

		switch purchase.Status {
		case enums.PurchaseStatusCancelled:
			return nil
		case enums.PurchaseStatusPaymentCompleted:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase already settled")
		}

		if err := repo.UpdatePurchase(ctx, purchase.ID, map[string]any{
			"status": enums.PurchaseStatusCancelled,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase")
		}
		if purchase.PaymentID != nil {
			if err := repo.UpdatePayment(ctx, *purchase.PaymentID, map[string]any{
				"status": enums.PaymentStatusCancelled,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
			}
		}

		// The related bid stays pending; the grace window expiring is what
		// releases the stock back to direct sale.

		paymentID := uuid.Nil
		if purchase.PaymentID != nil {
			paymentID = *purchase.PaymentID
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCancelled,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Version:       1,
			Data: payloads.PaymentCancelledEvent{
				PurchaseID: purchase.ID,
				PaymentID:  paymentID,
				ListingID:  purchase.ListingID,
				BuyerID:    purchase.BuyerID,
				Reason:     reason,
			},
		})
	})
}

// ResolveByReference maps a gateway callback onto the confirm/cancel
// transitions using the opaque payment reference.
func (s *service) ResolveByReference(ctx context.Context, reference string, status enums.PaymentStatus) error {
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}

	payment, err := s.repo.FindPaymentByReference(ctx, reference)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	purchase, err := s.findPurchaseByPayment(ctx, payment.ID)
	if err != nil {
		return err
	}

	switch status {
	case enums.PaymentStatusSuccess:
		return s.ConfirmPayment(ctx, purchase.ID)
	case enums.PaymentStatusFailed:
		// A failed attempt marks the payment only. The purchase stays
		// pending so the buyer can retry while the window allows it.
		return s.markPaymentFailed(ctx, purchase.ID)
	case enums.PaymentStatusCancelled:
		return s.CancelPayment(ctx, purchase.ID, "gateway reported "+status.String())
	default:
		// "initiated" carries no transition.
		return nil
	}
}

func (s *service) markPaymentFailed(ctx context.Context, purchaseID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		purchase, err := repo.FindPurchase(ctx, purchaseID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
		}

		// A settled purchase wins over a late failure callback.
		if purchase.Status != enums.PurchaseStatusPendingPayment || purchase.PaymentID == nil {
			return nil
		}
		if err := repo.UpdatePayment(ctx, *purchase.PaymentID, map[string]any{
			"status": enums.PaymentStatusFailed,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, actor Actor, purchaseID uuid.UUID) (*models.Purchase, error) {
	if purchaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}
	purchase, err := s.repo.FindPurchase(ctx, purchaseID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	if purchase.BuyerID != actor.UserID && !actor.Role.CanAdminister() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "purchase does not belong to user")
	}
	return purchase, nil
}

func (s *service) ListForBuyer(ctx context.Context, filters ListFilters) ([]models.Purchase, string, error) {
	if filters.BuyerID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListForBuyer(ctx, filters)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}

	limit := pagination.NormalizeLimit(filters.Limit)
	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.PurchasedAt,
			ID:        last.ID,
		})
	}
	return rows, nextCursor, nil
}

func (s *service) findPurchaseByPayment(ctx context.Context, paymentID uuid.UUID) (*models.Purchase, error) {
	purchase, err := s.repo.FindPurchaseByPayment(ctx, paymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found for payment")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	return purchase, nil
}

func requireApprovedBuyer(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.Role.CanBuy() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only buyers can purchase")
	}
	if !actor.IsApproved {
		return pkgerrors.New(pkgerrors.CodeForbidden, "account pending approval")
	}
	return nil
}

func normalizeMethod(method enums.PaymentMethod) (enums.PaymentMethod, error) {
	if method == "" {
		return enums.PaymentMethodUPI, nil
	}
	if !method.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	return method, nil
}

func actorRef(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
}

func newPaymentReference() string {
	return "pay_" + uuid.NewString()
}
