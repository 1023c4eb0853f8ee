package enums

import "fmt"

// NotificationType maps to the notification type column. The display
// casing is part of the stored value.
type NotificationType string

const (
	NotificationTypeLowStock NotificationType = "LOW STOCK"
	NotificationTypeSystem   NotificationType = "SYSTEM"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeLowStock,
	NotificationTypeSystem,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
