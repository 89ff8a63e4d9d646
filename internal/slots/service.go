package slots

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
	"github.com/agrimandi/agrimandi-backend/pkg/pagination"
)

// Service manages the admin-owned catalogs of storage slots, cultivation
// plots, and subsidy schemes. Reads are open to every authenticated role.
type Service interface {
	CreateStorageSlot(ctx context.Context, input CreateStorageSlotInput) (*models.StorageSlot, error)
	UpdateStorageSlot(ctx context.Context, input UpdateStorageSlotInput) (*models.StorageSlot, error)
	GetStorageSlot(ctx context.Context, id uuid.UUID) (*models.StorageSlot, error)
	ListStorageSlots(ctx context.Context, filters ListFilters) ([]models.StorageSlot, string, error)

	CreateCultivationSlot(ctx context.Context, input CreateCultivationSlotInput) (*models.CultivationSlot, error)
	UpdateCultivationSlot(ctx context.Context, input UpdateCultivationSlotInput) (*models.CultivationSlot, error)
	GetCultivationSlot(ctx context.Context, id uuid.UUID) (*models.CultivationSlot, error)
	ListCultivationSlots(ctx context.Context, filters ListFilters) ([]models.CultivationSlot, string, error)

	CreateScheme(ctx context.Context, input CreateSchemeInput) (*models.SubsidyScheme, error)
	UpdateScheme(ctx context.Context, input UpdateSchemeInput) (*models.SubsidyScheme, error)
	GetScheme(ctx context.Context, id uuid.UUID) (*models.SubsidyScheme, error)
	ListSchemes(ctx context.Context, filters ListFilters) ([]models.SubsidyScheme, string, error)
}

type service struct {
	repo Repository
}

// NewService builds a slots service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("slots repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateStorageSlot(ctx context.Context, input CreateStorageSlotInput) (*models.StorageSlot, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if strings.TrimSpace(input.Location) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location required")
	}
	if input.CapacityTons <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
	}
	if input.AvailableSlots < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available slots cannot be negative")
	}
	if !input.PricePerSlot.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per slot must be positive")
	}
	if !input.SlotType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid slot type")
	}

	createdBy := input.Actor.UserID
	slot := &models.StorageSlot{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(input.Name),
		Location:       strings.TrimSpace(input.Location),
		CapacityTons:   input.CapacityTons,
		AvailableSlots: input.AvailableSlots,
		PricePerSlot:   input.PricePerSlot,
		SlotType:       input.SlotType,
		IsActive:       true,
		CreatedBy:      &createdBy,
	}
	if err := s.repo.CreateStorageSlot(ctx, slot); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create storage slot")
	}
	return slot, nil
}

func (s *service) UpdateStorageSlot(ctx context.Context, input UpdateStorageSlotInput) (*models.StorageSlot, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	if input.SlotID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot id required")
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Location != nil {
		updates["location"] = strings.TrimSpace(*input.Location)
	}
	if input.CapacityTons != nil {
		if *input.CapacityTons <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
		}
		updates["capacity_tons"] = *input.CapacityTons
	}
	if input.AvailableSlots != nil {
		if *input.AvailableSlots < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "available slots cannot be negative")
		}
		updates["available_slots"] = *input.AvailableSlots
	}
	if input.PricePerSlot != nil {
		if !input.PricePerSlot.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per slot must be positive")
		}
		updates["price_per_slot"] = *input.PricePerSlot
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.repo.UpdateStorageSlot(ctx, input.SlotID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update storage slot")
	}
	return s.GetStorageSlot(ctx, input.SlotID)
}

func (s *service) GetStorageSlot(ctx context.Context, id uuid.UUID) (*models.StorageSlot, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot id required")
	}
	slot, err := s.repo.FindStorageSlot(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "storage slot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load storage slot")
	}
	return slot, nil
}

func (s *service) ListStorageSlots(ctx context.Context, filters ListFilters) ([]models.StorageSlot, string, error) {
	rows, err := s.repo.ListStorageSlots(ctx, filters)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list storage slots")
	}

	limit := pagination.NormalizeLimit(filters.Limit)
	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

func (s *service) CreateCultivationSlot(ctx context.Context, input CreateCultivationSlotInput) (*models.CultivationSlot, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if strings.TrimSpace(input.Location) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location required")
	}
	if input.AvailableAreaAcres.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available area cannot be negative")
	}
	if !input.PricePerAcre.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per acre must be positive")
	}

	createdBy := input.Actor.UserID
	slot := &models.CultivationSlot{
		ID:                 uuid.New(),
		Name:               strings.TrimSpace(input.Name),
		Location:           strings.TrimSpace(input.Location),
		AvailableAreaAcres: input.AvailableAreaAcres,
		PricePerAcre:       input.PricePerAcre,
		CropGuidance:       strings.TrimSpace(input.CropGuidance),
		IsActive:           true,
		CreatedBy:          &createdBy,
	}
	if err := s.repo.CreateCultivationSlot(ctx, slot); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cultivation slot")
	}
	return slot, nil
}

func (s *service) UpdateCultivationSlot(ctx context.Context, input UpdateCultivationSlotInput) (*models.CultivationSlot, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	if input.SlotID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot id required")
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Location != nil {
		updates["location"] = strings.TrimSpace(*input.Location)
	}
	if input.AvailableAreaAcres != nil {
		if input.AvailableAreaAcres.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "available area cannot be negative")
		}
		updates["available_area_acres"] = *input.AvailableAreaAcres
	}
	if input.PricePerAcre != nil {
		if !input.PricePerAcre.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per acre must be positive")
		}
		updates["price_per_acre"] = *input.PricePerAcre
	}
	if input.CropGuidance != nil {
		updates["crop_guidance"] = strings.TrimSpace(*input.CropGuidance)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.repo.UpdateCultivationSlot(ctx, input.SlotID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cultivation slot")
	}
	return s.GetCultivationSlot(ctx, input.SlotID)
}

func (s *service) GetCultivationSlot(ctx context.Context, id uuid.UUID) (*models.CultivationSlot, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot id required")
	}
	slot, err := s.repo.FindCultivationSlot(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cultivation slot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cultivation slot")
	}
	return slot, nil
}

func (s *service) ListCultivationSlots(ctx context.Context, filters ListFilters) ([]models.CultivationSlot, string, error) {
	rows, err := s.repo.ListCultivationSlots(ctx, filters)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cultivation slots")
	}

	limit := pagination.NormalizeLimit(filters.Limit)
	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

func (s *service) CreateScheme(ctx context.Context, input CreateSchemeInput) (*models.SubsidyScheme, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	if strings.TrimSpace(input.EligibilityCriteria) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "eligibility criteria required")
	}
	if input.SubsidyAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subsidy amount cannot be negative")
	}
	if strings.TrimSpace(input.Link) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "link required")
	}

	addedBy := input.Actor.UserID
	scheme := &models.SubsidyScheme{
		ID:                  uuid.New(),
		Name:                strings.TrimSpace(input.Name),
		Description:         strings.TrimSpace(input.Description),
		EligibilityCriteria: strings.TrimSpace(input.EligibilityCriteria),
		SubsidyAmount:       input.SubsidyAmount,
		Link:                strings.TrimSpace(input.Link),
		IsActive:            true,
		AddedBy:             &addedBy,
	}
	if err := s.repo.CreateScheme(ctx, scheme); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create scheme")
	}
	return scheme, nil
}

func (s *service) UpdateScheme(ctx context.Context, input UpdateSchemeInput) (*models.SubsidyScheme, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	if input.SchemeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheme id required")
	}

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
	if input.EligibilityCriteria != nil {
		updates["eligibility_criteria"] = strings.TrimSpace(*input.EligibilityCriteria)
	}
	if input.SubsidyAmount != nil {
		if input.SubsidyAmount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "subsidy amount cannot be negative")
		}
		updates["subsidy_amount"] = *input.SubsidyAmount
	}
	if input.Link != nil {
		updates["link"] = strings.TrimSpace(*input.Link)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.repo.UpdateScheme(ctx, input.SchemeID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update scheme")
	}
	return s.GetScheme(ctx, input.SchemeID)
}

func (s *service) GetScheme(ctx context.Context, id uuid.UUID) (*models.SubsidyScheme, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheme id required")
	}
	scheme, err := s.repo.FindScheme(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "scheme not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load scheme")
	}
	return scheme, nil
}

func (s *service) ListSchemes(ctx context.Context, filters ListFilters) ([]models.SubsidyScheme, string, error) {
	rows, err := s.repo.ListSchemes(ctx, filters)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list schemes")
	}

	limit := pagination.NormalizeLimit(filters.Limit)
	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.AddedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

func requireAdmin(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.Role.CanAdminister() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}
