package enums

import "testing"

func TestConsumeActionFor(t *testing.T) {
	cases := []struct {
		category string
		want     UsageAction
	}{
		{"Furniture", UsageActionCheckedOut},
		{"furniture", UsageActionCheckedOut},
		{"Office Equipment", UsageActionCheckedOut},
		{"Office Equipement", UsageActionCheckedOut},
		{"Supplies", UsageActionDailyUsage},
		{"Food", UsageActionDailyUsage},
		{"", UsageActionDailyUsage},
	}

	for _, tc := range cases {
		if got := ConsumeActionFor(tc.category); got != tc.want {
			t.Errorf("ConsumeActionFor(%q) = %q, want %q", tc.category, got, tc.want)
		}
	}
}

func TestRestockActionFor(t *testing.T) {
	if got := RestockActionFor("Furniture"); got != UsageActionReturned {
		t.Fatalf("RestockActionFor(Furniture) = %q, want %q", got, UsageActionReturned)
	}
	if got := RestockActionFor("Supplies"); got != UsageActionRestock {
		t.Fatalf("RestockActionFor(Supplies) = %q, want %q", got, UsageActionRestock)
	}
}

func TestUsageActionDecreases(t *testing.T) {
	decreasing := []UsageAction{
		UsageActionDamaged,
		UsageActionStolen,
		UsageActionLost,
		UsageActionCheckedOut,
		UsageActionDailyUsage,
	}
	for _, action := range decreasing {
		if !action.Decreases() {
			t.Errorf("expected %q to decrease quantity", action)
		}
	}

	if UsageActionReturned.Decreases() {
		t.Error("reportedReturned must increase quantity")
	}
	if UsageActionRestock.Decreases() {
		t.Error("restock must increase quantity")
	}
}

func TestStatusForQuantity(t *testing.T) {
	if got := StatusForQuantity(5, 5); got != ItemStatusAvailable {
		t.Fatalf("quantity equal to threshold should be AVAILABLE, got %q", got)
	}
	if got := StatusForQuantity(4, 5); got != ItemStatusLowStock {
		t.Fatalf("quantity below threshold should be LOW STOCK, got %q", got)
	}
	if got := StatusForQuantity(0, 0); got != ItemStatusAvailable {
		t.Fatalf("zero threshold should never be low stock, got %q", got)
	}
}
