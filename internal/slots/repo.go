package slots

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/pagination"
)

// Repository is the persistence surface for the bookable catalogs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateStorageSlot(ctx context.Context, slot *models.StorageSlot) error
	FindStorageSlot(ctx context.Context, id uuid.UUID) (*models.StorageSlot, error)
	ListStorageSlots(ctx context.Context, filters ListFilters) ([]models.StorageSlot, error)
	UpdateStorageSlot(ctx context.Context, id uuid.UUID, updates map[string]any) error

	CreateCultivationSlot(ctx context.Context, slot *models.CultivationSlot) error
	FindCultivationSlot(ctx context.Context, id uuid.UUID) (*models.CultivationSlot, error)
	ListCultivationSlots(ctx context.Context, filters ListFilters) ([]models.CultivationSlot, error)
	UpdateCultivationSlot(ctx context.Context, id uuid.UUID, updates map[string]any) error

	CreateScheme(ctx context.Context, scheme *models.SubsidyScheme) error
	FindScheme(ctx context.Context, id uuid.UUID) (*models.SubsidyScheme, error)
	ListSchemes(ctx context.Context, filters ListFilters) ([]models.SubsidyScheme, error)
	UpdateScheme(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a slots repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateStorageSlot(ctx context.Context, slot *models.StorageSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *repository) FindStorageSlot(ctx context.Context, id uuid.UUID) (*models.StorageSlot, error) {
	var slot models.StorageSlot
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *repository) ListStorageSlots(ctx context.Context, filters ListFilters) ([]models.StorageSlot, error) {
	var rows []models.StorageSlot
	query, err := r.applyCatalogFilters(r.db.WithContext(ctx).Model(&models.StorageSlot{}), filters, "created_at")
	if err != nil {
		return nil, err
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateStorageSlot(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.StorageSlot{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateCultivationSlot(ctx context.Context, slot *models.CultivationSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *repository) FindCultivationSlot(ctx context.Context, id uuid.UUID) (*models.CultivationSlot, error) {
	var slot models.CultivationSlot
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *repository) ListCultivationSlots(ctx context.Context, filters ListFilters) ([]models.CultivationSlot, error) {
	var rows []models.CultivationSlot
	query, err := r.applyCatalogFilters(r.db.WithContext(ctx).Model(&models.CultivationSlot{}), filters, "created_at")
	if err != nil {
		return nil, err
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateCultivationSlot(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.CultivationSlot{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateScheme(ctx context.Context, scheme *models.SubsidyScheme) error {
	return r.db.WithContext(ctx).Create(scheme).Error
}

func (r *repository) FindScheme(ctx context.Context, id uuid.UUID) (*models.SubsidyScheme, error) {
	var scheme models.SubsidyScheme
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&scheme).Error; err != nil {
		return nil, err
	}
	return &scheme, nil
}

func (r *repository) ListSchemes(ctx context.Context, filters ListFilters) ([]models.SubsidyScheme, error) {
	var rows []models.SubsidyScheme
	query, err := r.applyCatalogFilters(r.db.WithContext(ctx).Model(&models.SubsidyScheme{}), filters, "added_at")
	if err != nil {
		return nil, err
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateScheme(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.SubsidyScheme{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) applyCatalogFilters(query *gorm.DB, filters ListFilters, timeColumn string) (*gorm.DB, error) {
	if filters.OnlyActive {
		query = query.Where("is_active = ?", true)
	}

	cursor, err := pagination.ParseCursor(filters.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"("+timeColumn+" < ?) OR ("+timeColumn+" = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	return query.
		Order(timeColumn + " DESC, id DESC").
		Limit(pagination.LimitWithBuffer(filters.Limit)), nil
}
