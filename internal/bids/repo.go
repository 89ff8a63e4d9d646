package bids

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
)

// Repository is the persistence surface for the bid ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockListing(ctx context.Context, listingID uuid.UUID) (bool, error)
	FindListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	ListForListing(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error)
	Insert(ctx context.Context, bid *models.Bid) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bids repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockListing takes a row write lock on the listing for the rest of the
// transaction. Concurrent placements serialize here, so leader re-validation
// after the lock sees every committed bid. Returns false when the listing is
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

func (r *repository) ListForListing(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error) {
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

func (r *repository) Insert(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}
