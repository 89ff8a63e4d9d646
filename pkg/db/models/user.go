package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Username     string           `gorm:"column:username;type:text;not null;uniqueIndex"`
	Email        string           `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	Role         enums.Role       `gorm:"column:role;type:user_role;not null"`
	Mobile       string           `gorm:"column:mobile;not null"`
	Address      string           `gorm:"column:address;not null"`
	BuyerType    *enums.BuyerType `gorm:"column:buyer_type;type:buyer_type"`
	IsApproved   bool             `gorm:"column:is_approved;not null;default:false"`
	IsActive     bool             `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time       `gorm:"column:last_login_at"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
