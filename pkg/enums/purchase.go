package enums

import "fmt"

// PurchaseType distinguishes direct buys from purchases that settle a winning bid.
type PurchaseType string

const (
	PurchaseTypeRegular PurchaseType = "regular"
	PurchaseTypeBid     PurchaseType = "bid"
)

var validPurchaseTypes = []PurchaseType{
	PurchaseTypeRegular,
	PurchaseTypeBid,
}

// IsValid reports whether the value is a known PurchaseType.
func (p PurchaseType) IsValid() bool {
	for _, candidate := range validPurchaseTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// PurchaseStatus tracks a purchase from checkout intent to settlement.
// Purchases are never deleted; cancellation is a terminal status.
type PurchaseStatus string

const (
	PurchaseStatusPendingPayment   PurchaseStatus = "pending_payment"
	PurchaseStatusPaymentCompleted PurchaseStatus = "payment_completed"
	PurchaseStatusCancelled        PurchaseStatus = "cancelled"
)

var validPurchaseStatuses = []PurchaseStatus{
	PurchaseStatusPendingPayment,
	PurchaseStatusPaymentCompleted,
	PurchaseStatusCancelled,
}

// String implements fmt.Stringer.
func (p PurchaseStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchaseStatus.
func (p PurchaseStatus) IsValid() bool {
	for _, candidate := range validPurchaseStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePurchaseStatus converts raw input into a PurchaseStatus.
func ParsePurchaseStatus(value string) (PurchaseStatus, error) {
	for _, candidate := range validPurchaseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase status %q", value)
}

// BidPaymentStatus tracks whether the leading bidder has settled after the
// auction window closes.
type BidPaymentStatus string

const (
	BidPaymentStatusPending   BidPaymentStatus = "pending"
	BidPaymentStatusCompleted BidPaymentStatus = "completed"
)

// IsValid reports whether the value is a known BidPaymentStatus.
func (b BidPaymentStatus) IsValid() bool {
	return b == BidPaymentStatusPending || b == BidPaymentStatusCompleted
}
