package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/agrimandi/agrimandi-backend/pkg/db"
	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:bookings_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = conn.AutoMigrate(
		&models.StorageSlot{},
		&models.CultivationSlot{},
		&models.StorageBooking{},
		&models.CultivationBooking{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutboxPublisher) has(eventType enums.OutboxEventType) bool {
	for _, event := range s.events {
		if event.EventType == eventType {
			return true
		}
	}
	return false
}

func newTestService(t *testing.T, conn *gorm.DB, ob *stubOutboxPublisher) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), dbpkg.NewWithConn(conn), ob)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedStorageSlot(t *testing.T, conn *gorm.DB, available int) *models.StorageSlot {
	t.Helper()
	slot := &models.StorageSlot{
		ID:             uuid.New(),
		Name:           "Mandi Warehouse",
		Location:       "Nashik",
		CapacityTons:   500,
		AvailableSlots: available,
		PricePerSlot:   decimal.NewFromInt(150),
		SlotType:       enums.StorageSlotTypeWarehouse,
		IsActive:       true,
	}
	if err := conn.Create(slot).Error; err != nil {
		t.Fatalf("seed storage slot: %v", err)
	}
	return slot
}

func seedCultivationSlot(t *testing.T, conn *gorm.DB, acres string) *models.CultivationSlot {
	t.Helper()
	slot := &models.CultivationSlot{
		ID:                 uuid.New(),
		Name:               "River Plot",
		Location:           "Nashik",
		AvailableAreaAcres: decimal.RequireFromString(acres),
		PricePerAcre:       decimal.NewFromInt(2000),
		IsActive:           true,
	}
	if err := conn.Create(slot).Error; err != nil {
		t.Fatalf("seed cultivation slot: %v", err)
	}
	return slot
}

func buyerActor() Actor {
	return Actor{UserID: uuid.New(), Role: enums.RoleBuyer, IsApproved: true}
}

func farmerActor() Actor {
	return Actor{UserID: uuid.New(), Role: enums.RoleFarmer, IsApproved: true}
}

func bookingDates() (time.Time, time.Time) {
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	return start, start.Add(30 * 24 * time.Hour)
}

func TestRequestStorageComputesPriceAndEmits(t *testing.T) {
	conn := openTestDB(t)
	ob := &stubOutboxPublisher{}
	svc := newTestService(t, conn, ob)
	slot := seedStorageSlot(t, conn, 40)
	start, end := bookingDates()

	booking, err := svc.RequestStorage(context.Background(), BookStorageInput{
		Actor:       buyerActor(),
		SlotID:      slot.ID,
		BookedSlots: 4,
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		t.Fatalf("request storage: %v", err)
	}
	if !booking.TotalPrice.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("total price = %s, want 600", booking.TotalPrice)
	}
	if booking.Status != enums.BookingStatusPending {
		t.Fatalf("status = %s, want pending", booking.Status)
	}
	if !ob.has(enums.EventBookingRequested) {
		t.Fatal("booking_requested event not emitted")
	}

	// Availability is reserved at approval, not request.
	var reloaded models.StorageSlot
	if err := conn.First(&reloaded, "id = ?", slot.ID).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	if reloaded.AvailableSlots != 40 {
		t.Fatalf("available slots = %d, want 40", reloaded.AvailableSlots)
	}
}

func TestApprovalReservesAvailability(t *testing.T) {
	conn := openTestDB(t)
	ob := &stubOutboxPublisher{}
	svc := newTestService(t, conn, ob)
	slot := seedStorageSlot(t, conn, 5)
	admin := Actor{UserID: uuid.New(), Role: enums.RoleAdmin, IsApproved: true}
	start, end := bookingDates()

	booking, err := svc.RequestStorage(context.Background(), BookStorageInput{
		Actor:       buyerActor(),
		SlotID:      slot.ID,
		BookedSlots: 3,
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		t.Fatalf("request storage: %v", err)
	}

	decided, err := svc.DecideStorage(context.Background(), DecideInput{
		Actor:     admin,
		BookingID: booking.ID,
		Approve:   true,
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if decided.Status != enums.BookingStatusApproved {
		t.Fatalf("status = %s, want approved", decided.Status)
	}
	if !ob.has(enums.EventBookingDecided) {
		t.Fatal("booking_decided event not emitted")
	}

	var reloaded models.StorageSlot
	if err := conn.First(&reloaded, "id = ?", slot.ID).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	if reloaded.AvailableSlots != 2 {
		t.Fatalf("available slots = %d, want 2", reloaded.AvailableSlots)
	}

	// A second decision on the same booking is rejected.
	_, err = svc.DecideStorage(context.Background(), DecideInput{
		Actor:     admin,
		BookingID: booking.ID,
		Approve:   false,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("second decision: got %v, want STATE_CONFLICT", err)
	}
}

func TestApprovalFailsWhenCapacityGone(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, &stubOutboxPublisher{})
	slot := seedStorageSlot(t, conn, 3)
	admin := Actor{UserID: uuid.New(), Role: enums.RoleAdmin, IsApproved: true}
	start, end := bookingDates()

	first, err := svc.RequestStorage(context.Background(), BookStorageInput{
		Actor: buyerActor(), SlotID: slot.ID, BookedSlots: 3, StartDate: start, EndDate: end,
	})
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := svc.RequestStorage(context.Background(), BookStorageInput{
		Actor: buyerActor(), SlotID: slot.ID, BookedSlots: 2, StartDate: start, EndDate: end,
	})
	if err != nil {
		t.Fatalf("second request: %v", err)
	}

	if _, err := svc.DecideStorage(context.Background(), DecideInput{Actor: admin, BookingID: first.ID, Approve: true}); err != nil {
		t.Fatalf("approve first: %v", err)
	}
	_, err = svc.DecideStorage(context.Background(), DecideInput{Actor: admin, BookingID: second.ID, Approve: true})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("approve beyond capacity: got %v, want INSUFFICIENT_STOCK", err)
	}

	// Failed approval rolls back; the booking stays pending for a retry.
	var reloaded models.StorageBooking
	if err := conn.First(&reloaded, "id = ?", second.ID).Error; err != nil {
		t.Fatalf("reload booking: %v", err)
	}
	if reloaded.Status != enums.BookingStatusPending {
		t.Fatalf("status = %s, want pending", reloaded.Status)
	}
}

func TestCultivationFarmerOnly(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, &stubOutboxPublisher{})
	slot := seedCultivationSlot(t, conn, "10.50")
	start, end := bookingDates()

	_, err := svc.RequestCultivation(context.Background(), BookCultivationInput{
		Actor:     buyerActor(),
		SlotID:    slot.ID,
		AreaAcres: decimal.NewFromInt(2),
		StartDate: start,
		EndDate:   end,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("buyer lease: got %v, want FORBIDDEN", err)
	}

	booking, err := svc.RequestCultivation(context.Background(), BookCultivationInput{
		Actor:     farmerActor(),
		SlotID:    slot.ID,
		AreaAcres: decimal.RequireFromString("2.25"),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		t.Fatalf("farmer lease: %v", err)
	}
	if !booking.TotalPrice.Equal(decimal.RequireFromString("4500")) {
		t.Fatalf("total price = %s, want 4500", booking.TotalPrice)
	}
}

func TestCompleteReturnsCapacity(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, &stubOutboxPublisher{})
	slot := seedStorageSlot(t, conn, 10)
	admin := Actor{UserID: uuid.New(), Role: enums.RoleAdmin, IsApproved: true}
	start, end := bookingDates()

	booking, err := svc.RequestStorage(context.Background(), BookStorageInput{
		Actor: buyerActor(), SlotID: slot.ID, BookedSlots: 4, StartDate: start, EndDate: end,
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := svc.DecideStorage(context.Background(), DecideInput{Actor: admin, BookingID: booking.ID, Approve: true}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	completed, err := svc.CompleteStorage(context.Background(), admin, booking.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != enums.BookingStatusCompleted {
		t.Fatalf("status = %s, want completed", completed.Status)
	}

	var reloaded models.StorageSlot
	if err := conn.First(&reloaded, "id = ?", slot.ID).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	if reloaded.AvailableSlots != 10 {
		t.Fatalf("available slots = %d, want 10", reloaded.AvailableSlots)
	}

	// Completion is terminal.
	if _, err := svc.CompleteStorage(context.Background(), admin, booking.ID); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("repeat complete: got %v, want STATE_CONFLICT", err)
	}
}

func TestRejectLeavesAvailability(t *testing.T) {
	conn := openTestDB(t)
	ob := &stubOutboxPublisher{}
	svc := newTestService(t, conn, ob)
	slot := seedCultivationSlot(t, conn, "8")
	admin := Actor{UserID: uuid.New(), Role: enums.RoleAdmin, IsApproved: true}
	start, end := bookingDates()

	booking, err := svc.RequestCultivation(context.Background(), BookCultivationInput{
		Actor:     farmerActor(),
		SlotID:    slot.ID,
		AreaAcres: decimal.NewFromInt(3),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	decided, err := svc.DecideCultivation(context.Background(), DecideInput{
		Actor:     admin,
		BookingID: booking.ID,
		Approve:   false,
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if decided.Status != enums.BookingStatusRejected {
		t.Fatalf("status = %s, want rejected", decided.Status)
	}

	var reloaded models.CultivationSlot
	if err := conn.First(&reloaded, "id = ?", slot.ID).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	if !reloaded.AvailableAreaAcres.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("available acres = %s, want 8", reloaded.AvailableAreaAcres)
	}
}
