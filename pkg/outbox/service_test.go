package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox/payloads"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate outbox: %v", err)
	}
	return db
}

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)

	listingID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: "farmer"}
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventListingCreated,
			AggregateType: enums.AggregateListing,
			AggregateID:   listingID,
			Actor:         actor,
			Data:          payloads.ListingCreatedEvent{ListingID: listingID, CropType: "wheat", Quantity: 40},
			Version:       1,
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var row models.OutboxEvent
	if err := db.First(&row, "aggregate_id = ?", listingID).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if row.EventType != enums.EventListingCreated {
		t.Fatalf("unexpected event type %s", row.EventType)
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Version != 1 || envelope.EventID == "" {
		t.Fatalf("bad envelope: %+v", envelope)
	}
	if envelope.Actor == nil || envelope.Actor.Role != "farmer" {
		t.Fatalf("actor not preserved: %+v", envelope.Actor)
	}

	var data payloads.ListingCreatedEvent
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.CropType != "wheat" || data.Quantity != 40 {
		t.Fatalf("data not preserved: %+v", data)
	}
}

func TestEmitIfNotExistsDedupes(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)

	listingID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventListingClosed,
		AggregateType: enums.AggregateListing,
		AggregateID:   listingID,
		Data:          payloads.ListingClosedEvent{ListingID: listingID, Outcome: "unpaid"},
		Version:       1,
	}

	for i := 0; i < 3; i++ {
		if err := db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		}); err != nil {
			t.Fatalf("emit %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", listingID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single event, got %d", count)
	}
}
