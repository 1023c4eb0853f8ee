package enums

import "fmt"

// Collection is the logical name of a watched data set. Realtime feed
// event names are derived from it ("inventory_items_insert" and so on).
type Collection string

const (
	CollectionInventoryItems Collection = "inventory_items"
	CollectionInventoryUsage Collection = "inventory_usage"
	CollectionNotifications  Collection = "notifications"
	CollectionOrders         Collection = "orders"
	CollectionVendors        Collection = "vendors"
	CollectionVendorItems    Collection = "vendor_items"
	CollectionUsers          Collection = "users"
)

var validCollections = []Collection{
	CollectionInventoryItems,
	CollectionInventoryUsage,
	CollectionNotifications,
	CollectionOrders,
	CollectionVendors,
	CollectionVendorItems,
	CollectionUsers,
}

// WatchedCollections returns every collection the change feed follows.
func WatchedCollections() []Collection {
	out := make([]Collection, len(validCollections))
	copy(out, validCollections)
	return out
}

// String implements fmt.Stringer.
func (c Collection) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Collection.
func (c Collection) IsValid() bool {
	for _, candidate := range validCollections {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCollection converts raw input into a Collection.
func ParseCollection(value string) (Collection, error) {
	for _, candidate := range validCollections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid collection %q", value)
}

// ChangeOp is the kind of mutation observed on a collection.
type ChangeOp string

const (
	ChangeOpInsert ChangeOp = "insert"
	ChangeOpUpdate ChangeOp = "update"
	ChangeOpDelete ChangeOp = "delete"
)

var validChangeOps = []ChangeOp{
	ChangeOpInsert,
	ChangeOpUpdate,
	ChangeOpDelete,
}

// IsValid reports whether the value is a known ChangeOp.
func (o ChangeOp) IsValid() bool {
	for _, candidate := range validChangeOps {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseChangeOp converts raw input into a ChangeOp.
func ParseChangeOp(value string) (ChangeOp, error) {
	for _, candidate := range validChangeOps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid change op %q", value)
}

// EventName composes the realtime event name subscribers listen on.
func EventName(c Collection, op ChangeOp) string {
	return string(c) + "_" + string(op)
}
