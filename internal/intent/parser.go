package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies what a parsed message asks the system to do.
type Kind string

const (
	KindConsume Kind = "consume"
	KindRestock Kind = "restock"
	KindUnknown Kind = "unknown"
)

// Intent is a structured stock instruction extracted from free text,
// e.g. "3 toilet paper used" or "ten x hand soap restocked".
type Intent struct {
	Kind     Kind
	ItemName string
	Quantity int
	Verb     string
}

// CommandPrefix marks a chat message as an explicit command rather
// than a question for the assistant.
const CommandPrefix = "!"

// usagePattern matches "<count> [x] <item name> <verb>". The item name
// is captured lazily so the trailing verb is never swallowed into it.
var usagePattern = regexp.MustCompile(
	`(?i)(\d+|one|two|three|four|five|six|seven|eight|nine|ten) ?x? ([a-zA-Z ]+?) (replenished|refilled|restocked|used|taken)`,
)

var wordNumbers = map[string]int{
	"one":   1,
	"two":   2,
	"three": 3,
	"four":  4,
	"five":  5,
	"six":   6,
	"seven": 7,
	"eight": 8,
	"nine":  9,
	"ten":   10,
}

// IsCommand reports whether the message carries the command prefix.
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), CommandPrefix)
}

// StripCommand removes the prefix and surrounding whitespace.
func StripCommand(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), CommandPrefix))
}

// Parse extracts a stock instruction from free text. The second return
// is false when the text matches no known pattern.
func Parse(text string) (Intent, bool) {
	match := usagePattern.FindStringSubmatch(text)
	if match == nil {
		return Intent{Kind: KindUnknown}, false
	}

	quantity := parseQuantity(match[1])
	item := normalizeItemName(match[2])
	verb := strings.ToLower(match[3])

	intent := Intent{
		ItemName: item,
		Quantity: quantity,
		Verb:     verb,
	}
	switch verb {
	case "used", "taken":
		intent.Kind = KindConsume
	case "replenished", "refilled", "restocked":
		intent.Kind = KindRestock
	default:
		intent.Kind = KindUnknown
		return intent, false
	}
	return intent, true
}

func parseQuantity(raw string) int {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if n, ok := wordNumbers[raw]; ok {
		return n
	}
	return 0
}

// normalizeItemName trims noise words so "bottles of hand soap" and
// "hand soap" resolve to the same item.
func normalizeItemName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, prefix := range []string{"bottles of ", "bottle of ", "boxes of ", "box of ", "rolls of ", "roll of ", "packs of ", "pack of "} {
		if strings.HasPrefix(name, prefix) {
			name = strings.TrimPrefix(name, prefix)
			break
		}
	}
	return strings.TrimSpace(name)
}
