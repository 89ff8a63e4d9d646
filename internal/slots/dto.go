package slots

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// Actor identifies the authenticated caller.
type Actor struct {
	UserID     uuid.UUID
	Role       enums.Role
	IsApproved bool
}

// CreateStorageSlotInput captures a new storage facility.
type CreateStorageSlotInput struct {
	Actor          Actor
	Name           string
	Location       string
	CapacityTons   int
	AvailableSlots int
	PricePerSlot   decimal.Decimal
	SlotType       enums.StorageSlotType
}

// UpdateStorageSlotInput mutates a storage facility; nil fields are untouched.
type UpdateStorageSlotInput struct {
	Actor          Actor
	SlotID         uuid.UUID
	Name           *string
	Location       *string
	CapacityTons   *int
	AvailableSlots *int
	PricePerSlot   *decimal.Decimal
	IsActive       *bool
}

// CreateCultivationSlotInput captures a new leasable plot.
type CreateCultivationSlotInput struct {
	Actor              Actor
	Name               string
	Location           string
	AvailableAreaAcres decimal.Decimal
	PricePerAcre       decimal.Decimal
	CropGuidance       string
}

// UpdateCultivationSlotInput mutates a plot; nil fields are untouched.
type UpdateCultivationSlotInput struct {
	Actor              Actor
	SlotID             uuid.UUID
	Name               *string
	Location           *string
	AvailableAreaAcres *decimal.Decimal
	PricePerAcre       *decimal.Decimal
	CropGuidance       *string
	IsActive           *bool
}

// CreateSchemeInput captures a subsidy catalog entry.
type CreateSchemeInput struct {
	Actor               Actor
	Name                string
	Description         string
	EligibilityCriteria string
	SubsidyAmount       decimal.Decimal
	Link                string
}

// UpdateSchemeInput mutates a catalog entry; nil fields are untouched.
type UpdateSchemeInput struct {
	Actor               Actor
	SchemeID            uuid.UUID
	Name                *string
	Description         *string
	EligibilityCriteria *string
	SubsidyAmount       *decimal.Decimal
	Link                *string
	IsActive            *bool
}

// ListFilters narrows catalog listings.
type ListFilters struct {
	OnlyActive bool
	Limit      int
	Cursor     string
}
