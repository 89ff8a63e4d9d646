package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	"github.com/agrimandi/agrimandi-backend/pkg/logger"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox/payloads"
)

// Writer turns domain events into in-app notification rows inside the same
// transaction that produced the event. Failures are logged and swallowed so a
// notification problem never rolls back a marketplace write.
type Writer struct {
	logg *logger.Logger
}

// NewWriter builds a notification writer.
func NewWriter(logg *logger.Logger) *Writer {
	return &Writer{logg: logg}
}

// FromEvent fans a domain event out to the users who should see it.
func (w *Writer) FromEvent(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) {
	if tx == nil {
		return
	}

	switch data := event.Data.(type) {
	case payloads.BidPlacedEvent:
		farmerID, err := listingFarmer(ctx, tx, data.ListingID)
		if err != nil {
			w.warn(ctx, "lookup listing farmer", err)
			return
		}
		w.insert(ctx, tx, &models.Notification{
			UserID:      farmerID,
			Type:        enums.NotificationTypeBid,
			Title:       "New bid received",
			Message:     fmt.Sprintf("A bid of %s per unit was placed on your listing.", data.Amount),
			RelatedID:   refID(data.BidID),
			RelatedKind: refKind("bid"),
		})

	case payloads.BidWonEvent:
		w.insert(ctx, tx, &models.Notification{
			UserID:      data.BidderID,
			Type:        enums.NotificationTypeAuction,
			Title:       "You won the auction",
			Message:     fmt.Sprintf("Your bid of %s per unit won the auction.", data.Amount),
			RelatedID:   refID(data.BidID),
			RelatedKind: refKind("bid"),
		})

	case payloads.PurchaseCreatedEvent:
		w.insert(ctx, tx, &models.Notification{
			UserID:      data.BuyerID,
			Type:        enums.NotificationTypePurchase,
			Title:       "Purchase initiated",
			Message:     fmt.Sprintf("Your purchase of %d units for %s is awaiting payment.", data.Quantity, data.TotalPrice),
			RelatedID:   refID(data.PurchaseID),
			RelatedKind: refKind("purchase"),
		})

	case payloads.PaymentConfirmedEvent:
		w.insert(ctx, tx, &models.Notification{
			UserID:      data.BuyerID,
			Type:        enums.NotificationTypePayment,
			Title:       "Payment confirmed",
			Message:     fmt.Sprintf("Your payment of %s was confirmed.", data.Amount),
			RelatedID:   refID(data.PurchaseID),
			RelatedKind: refKind("purchase"),
		})
		farmerID, err := listingFarmer(ctx, tx, data.ListingID)
		if err != nil {
			w.warn(ctx, "lookup listing farmer", err)
			return
		}
		w.insert(ctx, tx, &models.Notification{
			UserID:      farmerID,
			Type:        enums.NotificationTypePayment,
			Title:       "Produce sold",
			Message:     fmt.Sprintf("A buyer paid %s for your listing.", data.Amount),
			RelatedID:   refID(data.PurchaseID),
			RelatedKind: refKind("purchase"),
		})

	case payloads.PaymentCancelledEvent:
		message := "Your payment was cancelled."
		if data.Reason != "" {
			message = fmt.Sprintf("Your payment was cancelled: %s.", data.Reason)
		}
		w.insert(ctx, tx, &models.Notification{
			UserID:      data.BuyerID,
			Type:        enums.NotificationTypePayment,
			Title:       "Payment cancelled",
			Message:     message,
			RelatedID:   refID(data.PurchaseID),
			RelatedKind: refKind("purchase"),
		})

	case payloads.ListingClosedEvent:
		w.insert(ctx, tx, &models.Notification{
			UserID:      data.FarmerID,
			Type:        enums.NotificationTypeAuction,
			Title:       "Auction closed",
			Message:     fmt.Sprintf("The auction on your listing closed %s.", data.Outcome),
			RelatedID:   refID(data.ListingID),
			RelatedKind: refKind("listing"),
		})

	case payloads.BookingRequestedEvent:
		w.insert(ctx, tx, &models.Notification{
			UserID:      data.UserID,
			Type:        enums.NotificationTypeBooking,
			Title:       "Booking request received",
			Message:     fmt.Sprintf("Your %s booking for %s is awaiting review.", data.Kind, data.TotalPrice),
			RelatedID:   refID(data.BookingID),
			RelatedKind: refKind("booking"),
		})

	case payloads.BookingDecidedEvent:
		w.insert(ctx, tx, &models.Notification{
			UserID:      data.UserID,
			Type:        enums.NotificationTypeBooking,
			Title:       "Booking " + data.Status.String(),
			Message:     fmt.Sprintf("Your %s booking was %s.", data.Kind, data.Status),
			RelatedID:   refID(data.BookingID),
			RelatedKind: refKind("booking"),
		})
	}
}

func (w *Writer) insert(ctx context.Context, tx *gorm.DB, notification *models.Notification) {
	if notification.UserID == uuid.Nil {
		return
	}
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if err := tx.WithContext(ctx).Create(notification).Error; err != nil {
		w.warn(ctx, "create notification", err)
	}
}

func (w *Writer) warn(ctx context.Context, msg string, err error) {
	if w.logg == nil {
		return
	}
	w.logg.Warn(ctx, msg+": "+err.Error())
}

func listingFarmer(ctx context.Context, tx *gorm.DB, listingID uuid.UUID) (uuid.UUID, error) {
	// Scanned as text so the lookup works on drivers without a native
	// uuid type.
	var raw string
	err := tx.WithContext(ctx).
		Model(&models.Listing{}).
		Select("farmer_id").
		Where("id = ?", listingID).
		Scan(&raw).Error
	if err != nil {
		return uuid.Nil, err
	}
	if raw == "" {
		return uuid.Nil, gorm.ErrRecordNotFound
	}
	return uuid.Parse(raw)
}

func refID(id uuid.UUID) *uuid.UUID {
	return &id
}

func refKind(kind string) *string {
	return &kind
}
