package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agrimandi/agrimandi-backend/api/middleware"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
)

// callerIdentity is the authenticated actor as seeded by the auth middleware.
type callerIdentity struct {
	UserID     uuid.UUID
	Role       enums.Role
	IsApproved bool
}

func identityFromRequest(r *http.Request) (callerIdentity, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return callerIdentity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return callerIdentity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return callerIdentity{
		UserID:     userID,
		Role:       enums.Role(middleware.RoleFromContext(r.Context())),
		IsApproved: middleware.ApprovedFromContext(r.Context()),
	}, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

// pagedResponse is the envelope for cursor-paginated collections.
type pagedResponse struct {
	Items      any    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}
