package listings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	"github.com/agrimandi/agrimandi-backend/pkg/pagination"
)

// Repository is the persistence surface for listings and their ledgers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	List(ctx context.Context, filters ListFilters) ([]models.Listing, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SoldQuantity(ctx context.Context, listingID uuid.UUID, graceCutoff time.Time) (int, error)
	SoldQuantities(ctx context.Context, listingIDs []uuid.UUID, graceCutoff time.Time) (map[uuid.UUID]int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a listings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Preload("Bids").
		Where("id = ?", id).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]models.Listing, error) {
	query := r.db.WithContext(ctx).Model(&models.Listing{}).Preload("Bids")

	if filters.CropType != "" {
		query = query.Where("crop_type = ?", filters.CropType)
	}
	if filters.Location != "" {
		query = query.Where("location = ?", filters.Location)
	}
	if filters.FarmerID != nil {
		query = query.Where("farmer_id = ?", *filters.FarmerID)
	}
	if filters.OnlyActive {
		query = query.Where("is_active = ?", true)
	}

	cursor, err := pagination.ParseCursor(filters.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Listing
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(filters.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SoldQuantity sums the quantities that still reserve stock. Pending bid
// purchases stop counting once the listing's bidding ended before
// graceCutoff; the unpaid winner's claim is forfeit by then.
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

func (r *repository) SoldQuantities(ctx context.Context, listingIDs []uuid.UUID, graceCutoff time.Time) (map[uuid.UUID]int, error) {
	sold := make(map[uuid.UUID]int, len(listingIDs))
	if len(listingIDs) == 0 {
		return sold, nil
	}

	type row struct {
		ListingID uuid.UUID
		Sold      int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Joins("JOIN listings ON listings.id = purchases.listing_id").
		Select("purchases.listing_id, COALESCE(SUM(purchases.quantity), 0) AS sold").
		Where("purchases.listing_id IN ? AND purchases.status <> ?", listingIDs, enums.PurchaseStatusCancelled).
		Where(
			"NOT (purchases.purchase_type = ? AND purchases.status = ? AND listings.bid_end_at IS NOT NULL AND listings.bid_end_at < ?)",
			enums.PurchaseTypeBid, enums.PurchaseStatusPendingPayment, graceCutoff,
		).
		Group("purchases.listing_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, entry := range rows {
		sold[entry.ListingID] = entry.Sold
	}
	return sold, nil
}
