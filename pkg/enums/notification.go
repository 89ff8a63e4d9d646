package enums

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationTypeBid      NotificationType = "bid"
	NotificationTypePurchase NotificationType = "purchase"
	NotificationTypePayment  NotificationType = "payment"
	NotificationTypeAuction  NotificationType = "auction"
	NotificationTypeBooking  NotificationType = "booking"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeBid,
	NotificationTypePurchase,
	NotificationTypePayment,
	NotificationTypeAuction,
	NotificationTypeBooking,
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}
