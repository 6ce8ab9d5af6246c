package domain

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ayo6706/currency-widget/internal/models"
	"github.com/leekchan/accounting"
)

// amountPattern accepts optional digits, an optional single decimal point and
// at most two fractional digits. Partial input such as "12." or "." matches.
var amountPattern = regexp.MustCompile(`^(\d+)?([.]?\d{0,2})?$`)

// maxDisplayFraction mirrors en-US locale number formatting.
const maxDisplayFraction = 3

// NewAmountState builds the state for an already-validated raw value.
func NewAmountState(raw string) models.AmountState {
	return models.AmountState{Raw: raw, Display: FormatAmount(raw)}
}

// NormalizeAmount applies a keystroke to prev. Grouping separators are
// stripped before validation. When the input is rejected prev is returned
// unchanged together with false.
func NormalizeAmount(prev models.AmountState, input string) (models.AmountState, bool) {
	value := stripGrouping(input)
	if !amountPattern.MatchString(value) {
		return prev, false
	}
	return NewAmountState(value), true
}

// ParseAmount parses a raw or display amount. Empty input and a lone
// decimal point do not parse.
func ParseAmount(s string) (float64, bool) {
	value := stripGrouping(strings.TrimSpace(s))
	if value == "" || value == "." {
		return 0, false
	}
	if strings.HasSuffix(value, ".") {
		value += "0"
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}

// FormatAmount renders a raw amount with thousands grouping. Unparsable
// values render as the empty string; a trailing decimal point is dropped.
func FormatAmount(raw string) string {
	v, ok := ParseAmount(raw)
	if !ok {
		return ""
	}
	return FormatNumber(v)
}

// FormatNumber groups thousands and keeps up to three fraction digits without
// trailing zeros.
func FormatNumber(v float64) string {
	return accounting.FormatNumberFloat64(v, fractionDigits(v), ",", ".")
}

func fractionDigits(v float64) int {
	s := strconv.FormatFloat(v, 'f', maxDisplayFraction, 64)
	s = strings.TrimRight(s, "0")
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	return len(s) - dot - 1
}

func stripGrouping(s string) string {
	return strings.ReplaceAll(s, ",", "")
}
