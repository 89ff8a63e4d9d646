package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/api/responses"
	"github.com/agrimandi/agrimandi-backend/api/validators"
	listingsvc "github.com/agrimandi/agrimandi-backend/internal/listings"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
	"github.com/agrimandi/agrimandi-backend/pkg/logger"
)

type createListingRequest struct {
	Name           string          `json:"name" validate:"required,max=255"`
	Description    string          `json:"description" validate:"required"`
	CropType       string          `json:"crop_type" validate:"required,max=100"`
	Location       string          `json:"location" validate:"required,max=255"`
	Certifications []string        `json:"certifications,omitempty"`
	Quantity       int             `json:"quantity" validate:"required,min=1"`
	Price          decimal.Decimal `json:"price" validate:"required"`
	BidStartAt     *time.Time      `json:"bid_start_at,omitempty"`
	BidEndAt       *time.Time      `json:"bid_end_at,omitempty"`
	ImageURL       *string         `json:"image_url,omitempty"`
}

type updateListingRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	Description *string          `json:"description,omitempty"`
	Location    *string          `json:"location,omitempty" validate:"omitempty,max=255"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    *int             `json:"quantity,omitempty" validate:"omitempty,min=1"`
	ImageURL    *string          `json:"image_url,omitempty"`
}

// CreateListing publishes a new crop lot for the authenticated farmer.
func CreateListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		caller, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Create(r.Context(), listingsvc.CreateListingInput{
			Actor:          listingsvc.Actor{UserID: caller.UserID, Role: caller.Role, IsApproved: caller.IsApproved},
			Name:           validators.SanitizeString(body.Name, 255),
			Description:    strings.TrimSpace(body.Description),
			CropType:       validators.SanitizeString(body.CropType, 100),
			Location:       validators.SanitizeString(body.Location, 255),
			Certifications: body.Certifications,
			Quantity:       body.Quantity,
			Price:          body.Price,
			BidStartAt:     body.BidStartAt,
			BidEndAt:       body.BidEndAt,
			ImageURL:       body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

// GetListing returns a listing with its derived auction state.
func GetListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		listingID, err := uuidParam(r, "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// ListListings pages through the marketplace feed.
func ListListings(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := listingsvc.ListFilters{
			CropType:   strings.TrimSpace(r.URL.Query().Get("crop_type")),
			Location:   strings.TrimSpace(r.URL.Query().Get("location")),
			OnlyActive: r.URL.Query().Get("include_inactive") != "true",
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("farmer_id")); raw != "" {
			farmerID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid farmer_id"))
				return
			}
			filters.FarmerID = &farmerID
		}

		items, nextCursor, err := svc.List(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pagedResponse{Items: items, NextCursor: nextCursor})
	}
}

// UpdateListing applies partial edits to a farmer's own listing.
func UpdateListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		caller, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := uuidParam(r, "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Update(r.Context(), listingsvc.UpdateListingInput{
			Actor:       listingsvc.Actor{UserID: caller.UserID, Role: caller.Role, IsApproved: caller.IsApproved},
			ListingID:   listingID,
			Name:        body.Name,
			Description: body.Description,
			Location:    body.Location,
			Price:       body.Price,
			Quantity:    body.Quantity,
			ImageURL:    body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listing)
	}
}

// DeactivateListing withdraws a listing from the marketplace.
func DeactivateListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		caller, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := uuidParam(r, "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := listingsvc.Actor{UserID: caller.UserID, Role: caller.Role, IsApproved: caller.IsApproved}
		if err := svc.Deactivate(r.Context(), actor, listingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
