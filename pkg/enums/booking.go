package enums

import "fmt"

// BookingStatus tracks slot bookings through admin review.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusCompleted BookingStatus = "completed"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusApproved,
	BookingStatusRejected,
	BookingStatusCompleted,
}

// String implements fmt.Stringer.
func (b BookingStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BookingStatus.
func (b BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBookingStatus converts raw input into a BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}

// StorageSlotType distinguishes plain warehousing from cold storage.
type StorageSlotType string

const (
	StorageSlotTypeWarehouse   StorageSlotType = "warehouse"
	StorageSlotTypeColdStorage StorageSlotType = "cold_storage"
)

// IsValid reports whether the value is a known StorageSlotType.
func (s StorageSlotType) IsValid() bool {
	return s == StorageSlotTypeWarehouse || s == StorageSlotTypeColdStorage
}

// ParseStorageSlotType converts raw input into a StorageSlotType.
func ParseStorageSlotType(value string) (StorageSlotType, error) {
	switch StorageSlotType(value) {
	case StorageSlotTypeWarehouse, StorageSlotTypeColdStorage:
		return StorageSlotType(value), nil
	}
	return "", fmt.Errorf("invalid storage slot type %q", value)
}
