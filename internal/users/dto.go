package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID        `json:"id"`
	Username    string           `json:"username"`
	Email       string           `json:"email"`
	Role        enums.Role       `json:"role"`
	Mobile      string           `json:"mobile"`
	Address     string           `json:"address"`
	BuyerType   *enums.BuyerType `json:"buyer_type,omitempty"`
	IsApproved  bool             `json:"is_approved"`
	IsActive    bool             `json:"is_active"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
// New accounts always start unapproved; an admin flips the flag.
type CreateUserDTO struct {
	Username     string
	Email        string
	PasswordHash string
	Role         enums.Role
	Mobile       string
	Address      string
	BuyerType    *enums.BuyerType
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		Mobile:      u.Mobile,
		Address:     u.Address,
		BuyerType:   u.BuyerType,
		IsApproved:  u.IsApproved,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		ID:           uuid.New(),
		Username:     c.Username,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Role:         c.Role,
		Mobile:       c.Mobile,
		Address:      c.Address,
		BuyerType:    c.BuyerType,
		IsApproved:   false,
		IsActive:     true,
	}
}
