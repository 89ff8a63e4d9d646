package purchases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	"github.com/agrimandi/agrimandi-backend/pkg/pagination"
)

// Repository is the persistence surface for purchases and payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockListing(ctx context.Context, listingID uuid.UUID) (bool, error)
	FindListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	ListBids(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error)
	FindBid(ctx context.Context, bidID uuid.UUID) (*models.Bid, error)
	UpdateBid(ctx context.Context, bidID uuid.UUID, updates map[string]any) error
	SoldQuantity(ctx context.Context, listingID uuid.UUID, graceCutoff time.Time) (int, error)
	InsertPurchase(ctx context.Context, purchase *models.Purchase) error
	FindPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	FindPurchaseByBid(ctx context.Context, buyerID, listingID, bidID uuid.UUID) (*models.Purchase, error)
	FindPurchaseByPayment(ctx context.Context, paymentID uuid.UUID) (*models.Purchase, error)
	UpdatePurchase(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListForBuyer(ctx context.Context, filters ListFilters) ([]models.Purchase, error)
	InsertPayment(ctx context.Context, payment *models.Payment) error
	FindPaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeactivateListing(ctx context.Context, listingID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a purchases repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockListing takes a row write lock so availability checks and the insert
// they guard see a stable purchase ledger. Returns false when the listing is
// missing or soft-closed.
func (r *repository) LockListing(ctx context.Context, listingID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		"UPDATE listings SET updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_active = ?",
		listingID, true,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).Where("id = ?", listingID).First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) ListBids(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error) {
	var ledger []models.Bid
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("placed_at ASC, id ASC").
		Find(&ledger).Error
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

func (r *repository) FindBid(ctx context.Context, bidID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.WithContext(ctx).Where("id = ?", bidID).First(&bid).Error
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *repository) UpdateBid(ctx context.Context, bidID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("id = ?", bidID).
		Updates(updates).Error
}

// SoldQuantity sums the quantities that still reserve stock. A pending bid
// purchase whose listing's bidding ended before graceCutoff no longer counts;
// the winner's payment window has lapsed and the claim is forfeit.
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

func (r *repository) InsertPurchase(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *repository) FindPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Preload("Payment").
		Where("id = ?", id).
		First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) FindPurchaseByBid(ctx context.Context, buyerID, listingID, bidID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Preload("Payment").
		Where("buyer_id = ? AND listing_id = ? AND related_bid_id = ?", buyerID, listingID, bidID).
		First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) FindPurchaseByPayment(ctx context.Context, paymentID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Preload("Payment").
		Where("payment_id = ?", paymentID).
		First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) UpdatePurchase(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListForBuyer(ctx context.Context, filters ListFilters) ([]models.Purchase, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Preload("Payment").
		Where("buyer_id = ?", filters.BuyerID)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	cursor, err := pagination.ParseCursor(filters.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(purchased_at < ?) OR (purchased_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Purchase
	err = query.
		Order("purchased_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(filters.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) InsertPayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) UpdatePayment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) DeactivateListing(ctx context.Context, listingID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", listingID).
		Update("is_active", false).Error
}
