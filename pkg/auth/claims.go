package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       enums.Role
	IsApproved bool
	BuyerType  *enums.BuyerType
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID        `json:"user_id"`
	Role       enums.Role       `json:"role"`
	IsApproved bool             `json:"is_approved"`
	BuyerType  *enums.BuyerType `json:"buyer_type,omitempty"`
	jwt.RegisteredClaims
}
