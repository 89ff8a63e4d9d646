package bookings

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/pagination"
)

// Repository is the persistence surface for slot bookings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindStorageSlot(ctx context.Context, id uuid.UUID) (*models.StorageSlot, error)
	FindCultivationSlot(ctx context.Context, id uuid.UUID) (*models.CultivationSlot, error)

	ReserveStorageSlots(ctx context.Context, slotID uuid.UUID, slots int) (bool, error)
	ReleaseStorageSlots(ctx context.Context, slotID uuid.UUID, slots int) error
	ReserveCultivationArea(ctx context.Context, slotID uuid.UUID, acres decimal.Decimal) (bool, error)
	ReleaseCultivationArea(ctx context.Context, slotID uuid.UUID, acres decimal.Decimal) error

	InsertStorageBooking(ctx context.Context, booking *models.StorageBooking) error
	FindStorageBooking(ctx context.Context, id uuid.UUID) (*models.StorageBooking, error)
	UpdateStorageBooking(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListStorageForUser(ctx context.Context, filters ListFilters) ([]models.StorageBooking, error)

	InsertCultivationBooking(ctx context.Context, booking *models.CultivationBooking) error
	FindCultivationBooking(ctx context.Context, id uuid.UUID) (*models.CultivationBooking, error)
	UpdateCultivationBooking(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListCultivationForUser(ctx context.Context, filters ListFilters) ([]models.CultivationBooking, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bookings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindStorageSlot(ctx context.Context, id uuid.UUID) (*models.StorageSlot, error) {
	var slot models.StorageSlot
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *repository) FindCultivationSlot(ctx context.Context, id uuid.UUID) (*models.CultivationSlot, error) {
	var slot models.CultivationSlot
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

// ReserveStorageSlots takes a row write lock on the slot and decrements its
// availability in one guarded statement. Returns false when the slot is
// missing, inactive, or does not have enough free capacity.
func (r *repository) ReserveStorageSlots(ctx context.Context, slotID uuid.UUID, slots int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		"UPDATE storage_slots SET available_slots = available_slots - ?, updated_at = CURRENT_TIMESTAMP "+
			"WHERE id = ? AND is_active = ? AND available_slots >= ?",
		slots, slotID, true, slots,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ReleaseStorageSlots(ctx context.Context, slotID uuid.UUID, slots int) error {
	return r.db.WithContext(ctx).Exec(
		"UPDATE storage_slots SET available_slots = available_slots + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		slots, slotID,
	).Error
}

// ReserveCultivationArea is the acreage counterpart of ReserveStorageSlots.
func (r *repository) ReserveCultivationArea(ctx context.Context, slotID uuid.UUID, acres decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		"UPDATE cultivation_slots SET available_area_acres = available_area_acres - ?, updated_at = CURRENT_TIMESTAMP "+
			"WHERE id = ? AND is_active = ? AND available_area_acres >= ?",
		acres, slotID, true, acres,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ReleaseCultivationArea(ctx context.Context, slotID uuid.UUID, acres decimal.Decimal) error {
	return r.db.WithContext(ctx).Exec(
		"UPDATE cultivation_slots SET available_area_acres = available_area_acres + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		acres, slotID,
	).Error
}

func (r *repository) InsertStorageBooking(ctx context.Context, booking *models.StorageBooking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) FindStorageBooking(ctx context.Context, id uuid.UUID) (*models.StorageBooking, error) {
	var booking models.StorageBooking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) UpdateStorageBooking(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.StorageBooking{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListStorageForUser(ctx context.Context, filters ListFilters) ([]models.StorageBooking, error) {
	query := r.db.WithContext(ctx).
		Model(&models.StorageBooking{}).
		Where("user_id = ?", filters.UserID)

	cursor, err := pagination.ParseCursor(filters.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(booked_at < ?) OR (booked_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.StorageBooking
	err = query.
		Order("booked_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(filters.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) InsertCultivationBooking(ctx context.Context, booking *models.CultivationBooking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) FindCultivationBooking(ctx context.Context, id uuid.UUID) (*models.CultivationBooking, error) {
	var booking models.CultivationBooking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) UpdateCultivationBooking(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.CultivationBooking{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListCultivationForUser(ctx context.Context, filters ListFilters) ([]models.CultivationBooking, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CultivationBooking{}).
		Where("user_id = ?", filters.UserID)

	cursor, err := pagination.ParseCursor(filters.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(booked_at < ?) OR (booked_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.CultivationBooking
	err = query.
		Order("booked_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(filters.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
