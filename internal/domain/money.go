package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRate   = errors.New("invalid exchange rate")
	ErrInvalidAmount = errors.New("invalid amount")
)

// resultPlaces is the precision every conversion result is rounded to.
const resultPlaces = 2

// Convert multiplies amount by rate and rounds half away from zero to two
// decimal places. The product is computed in decimal so that inputs such as
// 100 * 1.0865 land on 108.65 rather than a binary neighbour.
func Convert(amount, rate float64) (float64, error) {
	if !isFinite(rate) || rate <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}
	if !isFinite(amount) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	product := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate))
	result, _ := product.Round(resultPlaces).Float64()
	return result, nil
}

// FormatFixed renders v with thousands grouping and exactly places fraction digits.
func FormatFixed(v float64, places int) string {
	return accounting.FormatNumberFloat64(v, places, ",", ".")
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
