package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateListing  OutboxAggregateType = "listing"
	AggregateBid      OutboxAggregateType = "bid"
	AggregatePurchase OutboxAggregateType = "purchase"
	AggregateBooking  OutboxAggregateType = "booking"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateListing,
	AggregateBid,
	AggregatePurchase,
	AggregateBooking,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventListingCreated   OutboxEventType = "listing_created"
	EventListingClosed    OutboxEventType = "listing_closed"
	EventBidPlaced        OutboxEventType = "bid_placed"
	EventBidWon           OutboxEventType = "bid_won"
	EventPurchaseCreated  OutboxEventType = "purchase_created"
	EventPaymentConfirmed OutboxEventType = "payment_confirmed"
	EventPaymentCancelled OutboxEventType = "payment_cancelled"
	EventBookingRequested OutboxEventType = "booking_requested"
	EventBookingDecided   OutboxEventType = "booking_decided"
)

var validOutboxEventTypes = []OutboxEventType{
	EventListingCreated,
	EventListingClosed,
	EventBidPlaced,
	EventBidWon,
	EventPurchaseCreated,
	EventPaymentConfirmed,
	EventPaymentCancelled,
	EventBookingRequested,
	EventBookingDecided,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason classifies why an event was moved to the dead letter
// table.
type OutboxDLQErrorReason string

const (
	DLQReasonMaxAttempts      OutboxDLQErrorReason = "max_attempts_exceeded"
	DLQReasonPublishRejected  OutboxDLQErrorReason = "publish_rejected"
	DLQReasonMalformedPayload OutboxDLQErrorReason = "malformed_payload"
)

