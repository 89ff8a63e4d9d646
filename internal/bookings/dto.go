package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimandi/agrimandi-backend/pkg/enums"
)

// Kind values carried on booking events.
const (
	KindStorage     = "storage"
	KindCultivation = "cultivation"
)

// Actor identifies the authenticated caller.
type Actor struct {
	UserID     uuid.UUID
	Role       enums.Role
	IsApproved bool
}

// BookStorageInput requests slots in a storage facility.
type BookStorageInput struct {
	Actor       Actor
	SlotID      uuid.UUID
	BookedSlots int
	StartDate   time.Time
	EndDate     time.Time
}

// BookCultivationInput requests a land lease by the acre.
type BookCultivationInput struct {
	Actor         Actor
	SlotID        uuid.UUID
	AreaAcres     decimal.Decimal
	StartDate     time.Time
	EndDate       time.Time
	GuidanceNotes string
}

// DecideInput approves or rejects a pending booking.
type DecideInput struct {
	Actor     Actor
	BookingID uuid.UUID
	Approve   bool
}

// ListFilters narrows booking listings for a user.
type ListFilters struct {
	UserID uuid.UUID
	Limit  int
	Cursor string
}
