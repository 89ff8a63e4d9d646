package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/api/responses"
	"github.com/agrimandi/agrimandi-backend/api/validators"
	slotsvc "github.com/agrimandi/agrimandi-backend/internal/slots"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
	"github.com/agrimandi/agrimandi-backend/pkg/logger"
)

func slotActor(c callerIdentity) slotsvc.Actor {
	return slotsvc.Actor{UserID: c.UserID, Role: c.Role, IsApproved: c.IsApproved}
}

func catalogFilters(r *http.Request) (slotsvc.ListFilters, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
	if err != nil {
		return slotsvc.ListFilters{}, err
	}
	return slotsvc.ListFilters{
		OnlyActive: r.URL.Query().Get("include_inactive") != "true",
		Limit:      limit,
		Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

type createStorageSlotRequest struct {
	Name           string          `json:"name" validate:"required,max=255"`
	Location       string          `json:"location" validate:"required,max=255"`
	CapacityTons   int             `json:"capacity_tons" validate:"required,min=1"`
	AvailableSlots int             `json:"available_slots" validate:"min=0"`
	PricePerSlot   decimal.Decimal `json:"price_per_slot" validate:"required"`
	SlotType       string          `json:"slot_type" validate:"required"`
}

type updateStorageSlotRequest struct {
	Name           *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	Location       *string          `json:"location,omitempty" validate:"omitempty,max=255"`
	CapacityTons   *int             `json:"capacity_tons,omitempty" validate:"omitempty,min=1"`
	AvailableSlots *int             `json:"available_slots,omitempty" validate:"omitempty,min=0"`
	PricePerSlot   *decimal.Decimal `json:"price_per_slot,omitempty"`
	IsActive       *bool            `json:"is_active,omitempty"`
}

// CreateStorageSlot registers a storage facility in the catalog.
func CreateStorageSlot(svc slotsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}

		caller, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createStorageSlotRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slot, err := svc.CreateStorageSlot(r.Context(), slotsvc.CreateStorageSlotInput{
			Actor:          slotActor(caller),
			Name:           validators.SanitizeString(body.Name, 255),
			Location:       validators.SanitizeString(body.Location, 255),
			CapacityTons:   body.CapacityTons,
			AvailableSlots: body.AvailableSlots,
			PricePerSlot:   body.PricePerSlot,
			SlotType:       enums.StorageSlotType(strings.TrimSpace(body.SlotType)),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, slot)
	}
}

// UpdateStorageSlot applies partial edits to a storage facility.
func UpdateStorageSlot(svc slotsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}

		caller, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slotID, err := uuidParam(r, "slotID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateStorageSlotRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slot, err := svc.UpdateStorageSlot(r.Context(), slotsvc.UpdateStorageSlotInput{
			Actor:          slotActor(caller),
			SlotID:         slotID,
			Name:           body.Name,
			Location:       body.Location,
			CapacityTons:   body.CapacityTons,
			AvailableSlots: body.AvailableSlots,
			PricePerSlot:   body.PricePerSlot,
			IsActive:       body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, slot)
	}
}

// GetStorageSlot returns one storage facility.
func GetStorageSlot(svc slotsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}

		slotID, err := uuidParam(r, "slotID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slot, err := svc.GetStorageSlot(r.Context(), slotID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, slot)
	}
}

// ListStorageSlots pages through the storage catalog.
func ListStorageSlots(svc slotsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}

		filters, err := catalogFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, nextCursor, err := svc.ListStorageSlots(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pagedResponse{Items: items, NextCursor: nextCursor})
	}
}

type createCultivationSlotRequest struct {
	Name               string          `json:"name" validate:"required,max=255"`
	Location           string          `json:"location" validate:"required,max=255"`
	AvailableAreaAcres decimal.Decimal `json:"available_area_acres" validate:"required"`
	PricePerAcre       decimal.Decimal `json:"price_per_acre" validate:"required"`
	CropGuidance       string          `json:"crop_guidance,omitempty"`
}

type updateCultivationSlotRequest struct {
	Name               *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	Location           *string          `json:"location,omitempty" validate:"omitempty,max=255"`
	AvailableAreaAcres *decimal.Decimal `json:"available_area_acres,omitempty"`
	PricePerAcre       *decimal.Decimal `json:"price_per_acre,omitempty"`
	CropGuidance       *string          `json:"crop_guidance,omitempty"`
	IsActive           *bool            `json:"is_active,omitempty"`
}

// CreateCultivationSlot registers a leasable plot in the catalog.
func CreateCultivationSlot(svc slotsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}

		caller, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createCultivationSlotRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slot, err := svc.CreateCultivationSlot(r.Context(), slotsvc.CreateCultivationSlotInput{
			Actor:              slotActor(caller),
			Name:               validators.SanitizeString(body.Name, 255),
			Location:           validators.SanitizeString(body.Location, 255),
			AvailableAreaAcres: body.AvailableAreaAcres,
			PricePerAcre:       body.PricePerAcre,
			CropGuidance:       strings.TrimSpace(body.CropGuidance),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, slot)
	}
}

// UpdateCultivationSlot applies partial edits to a plot.
func UpdateCultivationSlot(svc slotsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}

		caller, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slotID, err := uuidParam(r, "slotID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateCultivationSlotRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slot, err := svc.UpdateCultivationSlot(r.Context(), slotsvc.UpdateCultivationSlotInput{
			Actor:              slotActor(caller),
			SlotID:             slotID,
			Name:               body.Name,
			Location:           body.Location,
			AvailableAreaAcres: body.AvailableAreaAcres,
			PricePerAcre:       body.PricePerAcre,
			CropGuidance:       body.CropGuidance,
			IsActive:           body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, slot)
	}
}

// GetCultivationSlot returns one plot.
func GetCultivationSlot(svc slotsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}

		slotID, err := uuidParam(r, "slotID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slot, err := svc.GetCultivationSlot(r.Context(), slotID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, slot)
	}
}

// ListCultivationSlots pages through the cultivation catalog.
func ListCultivationSlots(svc slotsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}

		filters, err := catalogFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, nextCursor, err := svc.ListCultivationSlots(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pagedResponse{Items: items, NextCursor: nextCursor})
	}
}

type createSchemeRequest struct {
	Name                string          `json:"name" validate:"required,max=255"`
	Description         string          `json:"description" validate:"required"`
	EligibilityCriteria string          `json:"eligibility_criteria,omitempty"`
	SubsidyAmount       decimal.Decimal `json:"subsidy_amount" validate:"required"`
	Link                string          `json:"link,omitempty" validate:"omitempty,url"`
}

type updateSchemeRequest struct {
	Name                *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	Description         *string          `json:"description,omitempty"`
	EligibilityCriteria *string          `json:"eligibility_criteria,omitempty"`
	SubsidyAmount       *decimal.Decimal `json:"subsidy_amount,omitempty"`
	Link                *string          `json:"link,omitempty" validate:"omitempty,url"`
	IsActive            *bool            `json:"is_active,omitempty"`
}

// CreateScheme adds a subsidy scheme to the catalog.
func CreateScheme(svc slotsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}

		caller, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createSchemeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scheme, err := svc.CreateScheme(r.Context(), slotsvc.CreateSchemeInput{
			Actor:               slotActor(caller),
			Name:                validators.SanitizeString(body.Name, 255),
			Description:         strings.TrimSpace(body.Description),
			EligibilityCriteria: strings.TrimSpace(body.EligibilityCriteria),
			SubsidyAmount:       body.SubsidyAmount,
			Link:                strings.TrimSpace(body.Link),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, scheme)
	}
}

// UpdateScheme applies partial edits to a subsidy scheme.
func UpdateScheme(svc slotsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}

		caller, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		schemeID, err := uuidParam(r, "schemeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateSchemeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scheme, err := svc.UpdateScheme(r.Context(), slotsvc.UpdateSchemeInput{
			Actor:               slotActor(caller),
			SchemeID:            schemeID,
			Name:                body.Name,
			Description:         body.Description,
			EligibilityCriteria: body.EligibilityCriteria,
			SubsidyAmount:       body.SubsidyAmount,
			Link:                body.Link,
			IsActive:            body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, scheme)
	}
}

// GetScheme returns one subsidy scheme.
func GetScheme(svc slotsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}

		schemeID, err := uuidParam(r, "schemeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scheme, err := svc.GetScheme(r.Context(), schemeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, scheme)
	}
}

// ListSchemes pages through the subsidy catalog.
func ListSchemes(svc slotsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}

		filters, err := catalogFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, nextCursor, err := svc.ListSchemes(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pagedResponse{Items: items, NextCursor: nextCursor})
	}
}
