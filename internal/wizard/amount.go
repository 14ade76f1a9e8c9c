package wizard

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

var (
	// ErrBadAmount means the text does not follow the amount grammar.
	ErrBadAmount = errors.New("text is not an amount")
	// ErrAmountRange means the parsed amount is outside 1..MaxAmount.
	ErrAmountRange = errors.New("amount outside the allowed range")
)

// Digits with optional space or comma thousand separators, an optional
// decimal part and an optional k/к multiplier suffix.
var amountPattern = regexp.MustCompile(`^(?:\d{1,3}(?:[ ,]\d{3})+|\d+)(?:\.\d+)?[kKкК]?$`)

// ParseAmount turns free chat text into a whole tenge amount.
// "2 000" and "2,000" are 2000, "2.5k" is 2500, "2000.50" rounds half
// away from zero to 2001. Valid values are 1..MaxAmount.
func ParseAmount(text string) (int64, error) {
	s := strings.TrimSpace(text)
	if !amountPattern.MatchString(s) {
		return 0, ErrBadAmount
	}

	thousands := false
	switch {
	case strings.HasSuffix(s, "k"), strings.HasSuffix(s, "K"):
		thousands = true
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "к"), strings.HasSuffix(s, "К"):
		thousands = true
		s = s[:len(s)-2] // Cyrillic suffix is two bytes
	}
	s = strings.NewReplacer(" ", "", ",", "").Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrBadAmount
	}
	if thousands {
		d = d.Mul(decimal.NewFromInt(1000))
	}
	d = d.Round(0)

	// Range-check before IntPart so absurdly long inputs cannot wrap int64.
	if d.LessThan(decimal.NewFromInt(1)) || d.GreaterThan(decimal.NewFromInt(ledger.MaxAmount)) {
		return 0, ErrAmountRange
	}
	return d.IntPart(), nil
}
