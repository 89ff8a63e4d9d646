package closer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// Repository is the persistence surface for the auction closer sweep.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.Listing, error)
	SoldQuantity(ctx context.Context, listingID uuid.UUID, graceCutoff time.Time) (int, error)
	CancelStaleBidPurchases(ctx context.Context, listingID uuid.UUID) (int64, error)
	DeactivateListing(ctx context.Context, listingID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a closer repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindExpired returns listings whose payment grace window lapsed before
// cutoff and whose listing_closed event has not been emitted yet, oldest
// first. The outbox check keeps the sweep from rescanning resolved auctions.
func (r *repository) FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.Listing, error) {
	var rows []models.Listing
	err := r.db.WithContext(ctx).
		Preload("Bids").
		Where("bid_end_at IS NOT NULL AND bid_end_at < ?", cutoff).
		Where(
			"NOT EXISTS (SELECT 1 FROM outbox_events oe WHERE oe.event_type = ? AND oe.aggregate_id = listings.id)",
			enums.EventListingClosed,
		).
		Order("bid_end_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SoldQuantity sums the quantities that still reserve stock. Pending bid
// purchases on listings whose bidding ended before graceCutoff are excluded;
// the unpaid winner's claim has lapsed.
func (r *repository) SoldQuantity(ctx context.Context, listingID uuid.UUID, graceCutoff time.Time) (int, error) {
	var sold int
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Joins("JOIN listings ON listings.id = purchases.listing_id").
		Select("COALESCE(SUM(purchases.quantity), 0)").
		Where("purchases.listing_id = ? AND purchases.status <> ?", listingID, enums.PurchaseStatusCancelled).
		Where(
			"NOT (purchases.purchase_type = ? AND purchases.status = ? AND listings.bid_end_at IS NOT NULL AND listings.bid_end_at < ?)",
			enums.PurchaseTypeBid, enums.PurchaseStatusPendingPayment, graceCutoff,
		).
		Scan(&sold).Error
	if err != nil {
		return 0, err
	}
	return sold, nil
}

// CancelStaleBidPurchases voids pending bid purchases left behind by a winner
// who never paid, along with their initiated payments. Late gateway callbacks
// for these rows are rejected as state conflicts afterwards.
func (r *repository) CancelStaleBidPurchases(ctx context.Context, listingID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE payments SET status = ? WHERE status = ? AND id IN (
			SELECT payment_id FROM purchases
			WHERE listing_id = ? AND purchase_type = ? AND status = ? AND payment_id IS NOT NULL
		)`,
		enums.PaymentStatusCancelled, enums.PaymentStatusInitiated,
		listingID, enums.PurchaseTypeBid, enums.PurchaseStatusPendingPayment,
	)
	if res.Error != nil {
		return 0, res.Error
	}

	res = r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("listing_id = ? AND purchase_type = ? AND status = ?",
			listingID, enums.PurchaseTypeBid, enums.PurchaseStatusPendingPayment).
		Update("status", enums.PurchaseStatusCancelled)
	return res.RowsAffected, res.Error
}

func (r *repository) DeactivateListing(ctx context.Context, listingID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", listingID).
		Update("is_active", false).Error
}
