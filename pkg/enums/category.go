package enums

import "strings"

// Item categories are an open string set; only the trackable ones carry
// special behavior. Trackable items are checked out and returned rather
// than consumed, so their mutations use the checkout/return actions.
//
// "Office Equipement" is a misspelling that exists in production data
// and must keep matching.
var trackableCategories = []string{
	"Furniture",
	"Office Equipment",
	"Office Equipement",
}

// IsTrackableCategory reports whether items in the category are modeled
// as checkout/return rather than permanent consumption. Matching is
// case-insensitive.
func IsTrackableCategory(category string) bool {
	for _, candidate := range trackableCategories {
		if strings.EqualFold(candidate, category) {
			return true
		}
	}
	return false
}
