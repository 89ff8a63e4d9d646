package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
	"github.com/agrimandi/agrimandi-backend/pkg/pagination"
)

// Service covers the admin account-management surface.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, filters ListFilters) ([]UserDTO, string, error)
	SetApproval(ctx context.Context, actorRole enums.Role, userID uuid.UUID, approved bool) (*UserDTO, error)
	SetActive(ctx context.Context, actorRole enums.Role, userID uuid.UUID, active bool) (*UserDTO, error)
}

type service struct {
	repo *Repository
}

// NewService builds a users service with the required dependencies.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, filters ListFilters) ([]UserDTO, string, error) {
	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	limit := pagination.NormalizeLimit(filters.Limit)
	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	dtos := make([]UserDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return dtos, nextCursor, nil
}

func (s *service) SetApproval(ctx context.Context, actorRole enums.Role, userID uuid.UUID, approved bool) (*UserDTO, error) {
	if err := s.requireAdmin(actorRole); err != nil {
		return nil, err
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if err := s.repo.SetApproval(ctx, userID, approved); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update approval")
	}
	return s.Get(ctx, userID)
}

func (s *service) SetActive(ctx context.Context, actorRole enums.Role, userID uuid.UUID, active bool) (*UserDTO, error) {
	if err := s.requireAdmin(actorRole); err != nil {
		return nil, err
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update active flag")
	}
	return s.Get(ctx, userID)
}

func (s *service) requireAdmin(role enums.Role) error {
	if !role.CanAdminister() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}
