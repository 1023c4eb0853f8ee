package intent

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		ok       bool
		kind     Kind
		item     string
		quantity int
	}{
		{"digits consume", "3 toilet paper used", true, KindConsume, "toilet paper", 3},
		{"taken routes to consume", "2 x paper towels taken", true, KindConsume, "paper towels", 2},
		{"restocked with noise words", "10 bottles of hand soap restocked", true, KindRestock, "hand soap", 10},
		{"spelled out quantity", "two soap refilled", true, KindRestock, "soap", 2},
		{"replenished", "5 x paper towels replenished", true, KindRestock, "paper towels", 5},
		{"no verb", "3 toilet paper please", false, KindUnknown, "", 0},
		{"plain chatter", "how is everyone doing", false, KindUnknown, "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, ok := Parse(tc.text)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if !ok {
				return
			}
			if parsed.Kind != tc.kind {
				t.Fatalf("expected kind %s, got %s", tc.kind, parsed.Kind)
			}
			if parsed.ItemName != tc.item {
				t.Fatalf("expected item %q, got %q", tc.item, parsed.ItemName)
			}
			if parsed.Quantity != tc.quantity {
				t.Fatalf("expected quantity %d, got %d", tc.quantity, parsed.Quantity)
			}
		})
	}
}

func TestParseQuantity_WordsOutsideRangeFailClosed(t *testing.T) {
	// "eleven" is not in the one..ten table; it matches nothing and
	// produces no intent rather than a guessed quantity.
	if _, ok := Parse("eleven toilet paper used"); ok {
		t.Fatal("expected no match for unsupported number word")
	}
	if got := parseQuantity("eleven"); got != 0 {
		t.Fatalf("expected 0 for unsupported word, got %d", got)
	}
}

func TestIsCommand(t *testing.T) {
	if !IsCommand("!items") {
		t.Fatal("expected !items to be a command")
	}
	if !IsCommand("  !help  ") {
		t.Fatal("expected padded command to be detected")
	}
	if IsCommand("items!") {
		t.Fatal("trailing bang is not a command")
	}
	if got := StripCommand("  !use 3 soap "); got != "use 3 soap" {
		t.Fatalf("unexpected strip result %q", got)
	}
}
