package enums

import "fmt"

// UsageAction labels an inventory usage ledger entry. The values mirror
// the action strings stored in the ledger collection.
type UsageAction string

const (
	UsageActionDamaged    UsageAction = "reportedDamaged"
	UsageActionStolen     UsageAction = "reportedStolen"
	UsageActionLost       UsageAction = "reportedLost"
	UsageActionCheckedOut UsageAction = "reportedCheckedOut"
	UsageActionReturned   UsageAction = "reportedReturned"
	UsageActionDailyUsage UsageAction = "daily-usages"
	UsageActionRestock    UsageAction = "restock"
)

var validUsageActions = []UsageAction{
	UsageActionDamaged,
	UsageActionStolen,
	UsageActionLost,
	UsageActionCheckedOut,
	UsageActionReturned,
	UsageActionDailyUsage,
	UsageActionRestock,
}

var decreaseUsageActions = []UsageAction{
	UsageActionDamaged,
	UsageActionStolen,
	UsageActionLost,
	UsageActionCheckedOut,
	UsageActionDailyUsage,
}

// String implements fmt.Stringer.
func (u UsageAction) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UsageAction.
func (u UsageAction) IsValid() bool {
	for _, candidate := range validUsageActions {
		if candidate == u {
			return true
		}
	}
	return false
}

// Decreases reports whether the action reduces the on-hand quantity.
// Returns and restocks increase it.
func (u UsageAction) Decreases() bool {
	for _, candidate := range decreaseUsageActions {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUsageAction converts raw input into a UsageAction.
func ParseUsageAction(value string) (UsageAction, error) {
	for _, candidate := range validUsageActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid usage action %q", value)
}

// ConsumeActionFor selects the ledger action for a stock consumption in
// the given category. Trackable categories record a checkout.
func ConsumeActionFor(category string) UsageAction {
	if IsTrackableCategory(category) {
		return UsageActionCheckedOut
	}
	return UsageActionDailyUsage
}

// RestockActionFor selects the ledger action for a stock restock in the
// given category. Trackable categories record a return.
func RestockActionFor(category string) UsageAction {
	if IsTrackableCategory(category) {
		return UsageActionReturned
	}
	return UsageActionRestock
}
