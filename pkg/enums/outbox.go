package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column on outbox_events.
type OutboxAggregateType string

const (
	AggregateInventoryItem  OutboxAggregateType = "inventory_item"
	AggregateInventoryUsage OutboxAggregateType = "inventory_usage"
	AggregateNotification   OutboxAggregateType = "notification"
	AggregateOrder          OutboxAggregateType = "order"
	AggregateVendor         OutboxAggregateType = "vendor"
	AggregateVendorItem     OutboxAggregateType = "vendor_item"
	AggregateUser           OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateInventoryItem,
	AggregateInventoryUsage,
	AggregateNotification,
	AggregateOrder,
	AggregateVendor,
	AggregateVendorItem,
	AggregateUser,
}

// AggregateTypes returns every aggregate the change feed follows.
func AggregateTypes() []OutboxAggregateType {
	out := make([]OutboxAggregateType, len(validAggregateTypes))
	copy(out, validAggregateTypes)
	return out
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

// Collection returns the watched collection an aggregate belongs to.
func (a OutboxAggregateType) Collection() Collection {
	switch a {
	case AggregateInventoryItem:
		return CollectionInventoryItems
	case AggregateInventoryUsage:
		return CollectionInventoryUsage
	case AggregateNotification:
		return CollectionNotifications
	case AggregateOrder:
		return CollectionOrders
	case AggregateVendor:
		return CollectionVendors
	case AggregateVendorItem:
		return CollectionVendorItems
	case AggregateUser:
		return CollectionUsers
	}
	return ""
}
