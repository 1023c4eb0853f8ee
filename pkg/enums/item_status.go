package enums

import "fmt"

// ItemStatus is the derived stock status for an inventory item.
type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "AVAILABLE"
	ItemStatusLowStock  ItemStatus = "LOW STOCK"
)

var validItemStatuses = []ItemStatus{
	ItemStatusAvailable,
	ItemStatusLowStock,
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}

// StatusForQuantity derives the stock status from the current quantity
// against the reorder threshold. Items below the threshold are low stock.
func StatusForQuantity(quantity, minQuantity int) ItemStatus {
	if quantity < minQuantity {
		return ItemStatusLowStock
	}
	return ItemStatusAvailable
}
