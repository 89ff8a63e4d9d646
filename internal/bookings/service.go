package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox/payloads"
	"github.com/agrimandi/agrimandi-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages the storage and cultivation booking lifecycle. Requests
// start pending; an admin decision approves or rejects them, and approval is
// the point where slot availability is reserved.
type Service interface {
	RequestStorage(ctx context.Context, input BookStorageInput) (*models.StorageBooking, error)
	RequestCultivation(ctx context.Context, input BookCultivationInput) (*models.CultivationBooking, error)
	DecideStorage(ctx context.Context, input DecideInput) (*models.StorageBooking, error)
	DecideCultivation(ctx context.Context, input DecideInput) (*models.CultivationBooking, error)
	CompleteStorage(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.StorageBooking, error)
	CompleteCultivation(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.CultivationBooking, error)
	GetStorage(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.StorageBooking, error)
	GetCultivation(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.CultivationBooking, error)
	ListStorageForUser(ctx context.Context, filters ListFilters) ([]models.StorageBooking, string, error)
	ListCultivationForUser(ctx context.Context, filters ListFilters) ([]models.CultivationBooking, string, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds a bookings service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: ob}, nil
}

func (s *service) RequestStorage(ctx context.Context, input BookStorageInput) (*models.StorageBooking, error) {
	if err := requireApproved(input.Actor); err != nil {
		return nil, err
	}
	if input.SlotID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot id required")
	}
	if input.BookedSlots <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booked slots must be positive")
	}
	if err := validateDates(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	var booking *models.StorageBooking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		slot, err := repo.FindStorageSlot(ctx, input.SlotID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "storage slot not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load storage slot")
		}
		if !slot.IsActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "storage slot is not bookable")
		}
		if slot.AvailableSlots < input.BookedSlots {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough slots available").
				WithDetails(map[string]any{"available": slot.AvailableSlots})
		}

		booking = &models.StorageBooking{
			ID:          uuid.New(),
			UserID:      input.Actor.UserID,
			SlotID:      slot.ID,
			BookedSlots: input.BookedSlots,
			StartDate:   input.StartDate,
			EndDate:     input.EndDate,
			TotalPrice:  slot.PricePerSlot.Mul(decimal.NewFromInt(int64(input.BookedSlots))),
			Status:      enums.BookingStatusPending,
		}
		if err := repo.InsertStorageBooking(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create storage booking")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingRequested,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.BookingRequestedEvent{
				BookingID:  booking.ID,
				SlotID:     booking.SlotID,
				UserID:     booking.UserID,
				Kind:       KindStorage,
				TotalPrice: booking.TotalPrice,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) RequestCultivation(ctx context.Context, input BookCultivationInput) (*models.CultivationBooking, error) {
	if err := requireApproved(input.Actor); err != nil {
		return nil, err
	}
	if !input.Actor.Role.CanSell() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only farmers can lease cultivation land")
	}
	if input.SlotID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot id required")
	}
	if !input.AreaAcres.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "area must be positive")
	}
	if err := validateDates(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	var booking *models.CultivationBooking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		slot, err := repo.FindCultivationSlot(ctx, input.SlotID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cultivation slot not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cultivation slot")
		}
		if !slot.IsActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cultivation slot is not bookable")
		}
		if slot.AvailableAreaAcres.LessThan(input.AreaAcres) {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough area available").
				WithDetails(map[string]any{"available_acres": slot.AvailableAreaAcres.String()})
		}

		booking = &models.CultivationBooking{
			ID:              uuid.New(),
			UserID:          input.Actor.UserID,
			SlotID:          slot.ID,
			BookedAreaAcres: input.AreaAcres,
			StartDate:       input.StartDate,
			EndDate:         input.EndDate,
			TotalPrice:      slot.PricePerAcre.Mul(input.AreaAcres),
			Status:          enums.BookingStatusPending,
			GuidanceNotes:   input.GuidanceNotes,
		}
		if err := repo.InsertCultivationBooking(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cultivation booking")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingRequested,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.BookingRequestedEvent{
				BookingID:  booking.ID,
				SlotID:     booking.SlotID,
				UserID:     booking.UserID,
				Kind:       KindCultivation,
				TotalPrice: booking.TotalPrice,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) DecideStorage(ctx context.Context, input DecideInput) (*models.StorageBooking, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}

	var decided *models.StorageBooking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := repo.FindStorageBooking(ctx, input.BookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.Status != enums.BookingStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking already decided")
		}

		status := enums.BookingStatusRejected
		if input.Approve {
			ok, err := repo.ReserveStorageSlots(ctx, booking.SlotID, booking.BookedSlots)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve storage slots")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough slots available")
			}
			status = enums.BookingStatusApproved
		}

		updates := map[string]any{
			"status":      status,
			"approved_by": input.Actor.UserID,
		}
		if err := repo.UpdateStorageBooking(ctx, booking.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
		}
		booking.Status = status
		approver := input.Actor.UserID
		booking.ApprovedBy = &approver
		decided = booking

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingDecided,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.BookingDecidedEvent{
				BookingID: booking.ID,
				SlotID:    booking.SlotID,
				UserID:    booking.UserID,
				Kind:      KindStorage,
				Status:    status,
				DecidedBy: input.Actor.UserID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

func (s *service) DecideCultivation(ctx context.Context, input DecideInput) (*models.CultivationBooking, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}

	var decided *models.CultivationBooking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := repo.FindCultivationBooking(ctx, input.BookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.Status != enums.BookingStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking already decided")
		}

		status := enums.BookingStatusRejected
		if input.Approve {
			ok, err := repo.ReserveCultivationArea(ctx, booking.SlotID, booking.BookedAreaAcres)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve cultivation area")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough area available")
			}
			status = enums.BookingStatusApproved
		}

		updates := map[string]any{
			"status":      status,
			"approved_by": input.Actor.UserID,
		}
		if err := repo.UpdateCultivationBooking(ctx, booking.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
		}
		booking.Status = status
		approver := input.Actor.UserID
		booking.ApprovedBy = &approver
		decided = booking

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingDecided,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.BookingDecidedEvent{
				BookingID: booking.ID,
				SlotID:    booking.SlotID,
				UserID:    booking.UserID,
				Kind:      KindCultivation,
				Status:    status,
				DecidedBy: input.Actor.UserID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

// CompleteStorage marks an approved booking as finished and returns its slots
// to the pool.
func (s *service) CompleteStorage(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.StorageBooking, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}

	var completed *models.StorageBooking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := repo.FindStorageBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.Status != enums.BookingStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only approved bookings can complete")
		}

		if err := repo.UpdateStorageBooking(ctx, booking.ID, map[string]any{
			"status": enums.BookingStatusCompleted,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
		}
		if err := repo.ReleaseStorageSlots(ctx, booking.SlotID, booking.BookedSlots); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release storage slots")
		}
		booking.Status = enums.BookingStatusCompleted
		completed = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// CompleteCultivation marks an approved lease as finished and returns the
// acreage to the pool.
func (s *service) CompleteCultivation(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.CultivationBooking, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}

	var completed *models.CultivationBooking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := repo.FindCultivationBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.Status != enums.BookingStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only approved bookings can complete")
		}

		if err := repo.UpdateCultivationBooking(ctx, booking.ID, map[string]any{
			"status": enums.BookingStatusCompleted,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
		}
		if err := repo.ReleaseCultivationArea(ctx, booking.SlotID, booking.BookedAreaAcres); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release cultivation area")
		}
		booking.Status = enums.BookingStatusCompleted
		completed = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

func (s *service) GetStorage(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.StorageBooking, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	booking, err := s.repo.FindStorageBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if err := requireOwnerOrAdmin(actor, booking.UserID); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) GetCultivation(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.CultivationBooking, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	booking, err := s.repo.FindCultivationBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if err := requireOwnerOrAdmin(actor, booking.UserID); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) ListStorageForUser(ctx context.Context, filters ListFilters) ([]models.StorageBooking, string, error) {
	if filters.UserID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListStorageForUser(ctx, filters)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list storage bookings")
	}

	limit := pagination.NormalizeLimit(filters.Limit)
	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.BookedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

func (s *service) ListCultivationForUser(ctx context.Context, filters ListFilters) ([]models.CultivationBooking, string, error) {
	if filters.UserID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListCultivationForUser(ctx, filters)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cultivation bookings")
	}

	limit := pagination.NormalizeLimit(filters.Limit)
	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.BookedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

func validateDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end dates required")
	}
	if !end.After(start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}
	return nil
}

func requireApproved(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role.CanAdminister() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admins cannot book slots")
	}
	if !actor.IsApproved {
		return pkgerrors.New(pkgerrors.CodeForbidden, "account pending approval")
	}
	return nil
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

func requireOwnerOrAdmin(actor Actor, ownerID uuid.UUID) error {
	if actor.Role.CanAdminister() {
		return nil
	}
	if actor.UserID != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to user")
	}
	return nil
}

func actorRef(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   actor.Role.String(),
	}
}
