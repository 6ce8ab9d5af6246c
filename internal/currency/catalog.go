package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayo6706/currency-widget/internal/models"
)

var ErrUnknownCurrency = errors.New("unknown currency code")

// catalog order is significant: target auto-selection walks it front to back.
var catalog = []models.Currency{
	{Code: "NPR", Name: "Nepalese Rupee", Flag: "🇳🇵"},
	{Code: "USD", Name: "US Dollar", Flag: "🇺🇸"},
	{Code: "EUR", Name: "Euro", Flag: "🇪🇺"},
	{Code: "JPY", Name: "Japanese Yen", Flag: "🇯🇵"},
	{Code: "GBP", Name: "British Pound", Flag: "🇬🇧"},
	{Code: "AUD", Name: "Australian Dollar", Flag: "🇦🇺"},
	{Code: "CAD", Name: "Canadian Dollar", Flag: "🇨🇦"},
	{Code: "CHF", Name: "Swiss Franc", Flag: "🇨🇭"},
	{Code: "CNY", Name: "Chinese Renminbi", Flag: "🇨🇳"},
	{Code: "SEK", Name: "Swedish Krona", Flag: "🇸🇪"},
	{Code: "MXN", Name: "Mexican Peso", Flag: "🇲🇽"},
	{Code: "NZD", Name: "New Zealand Dollar", Flag: "🇳🇿"},
	{Code: "SGD", Name: "Singapore Dollar", Flag: "🇸🇬"},
	{Code: "HKD", Name: "Hong Kong Dollar", Flag: "🇭🇰"},
	{Code: "NOK", Name: "Norwegian Krone", Flag: "🇳🇴"},
	{Code: "KRW", Name: "South Korean Won", Flag: "🇰🇷"},
	{Code: "TRY", Name: "Turkish Lira", Flag: "🇹🇷"},
	{Code: "INR", Name: "Indian Rupee", Flag: "🇮🇳"},
	{Code: "RUB", Name: "Russian Ruble", Flag: "🇷🇺"},
	{Code: "BRL", Name: "Brazilian Real", Flag: "🇧🇷"},
	{Code: "ZAR", Name: "South African Rand", Flag: "🇿🇦"},
	{Code: "DKK", Name: "Danish Krone", Flag: "🇩🇰"},
	{Code: "PLN", Name: "Polish Złoty", Flag: "🇵🇱"},
	{Code: "THB", Name: "Thai Baht", Flag: "🇹🇭"},
	{Code: "ILS", Name: "Israeli New Shekel", Flag: "🇮🇱"},
	{Code: "IDR", Name: "Indonesian Rupiah", Flag: "🇮🇩"},
}

var index = func() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, c := range catalog {
		idx[c.Code] = i
	}
	return idx
}()

// All returns a copy of the catalog in its fixed order.
func All() []models.Currency {
	out := make([]models.Currency, len(catalog))
	copy(out, catalog)
	return out
}

// Codes returns the catalog codes in order.
func Codes() []string {
	out := make([]string, len(catalog))
	for i, c := range catalog {
		out[i] = c.Code
	}
	return out
}

func IsValid(code string) bool {
	_, ok := index[code]
	return ok
}

// Normalize upper-cases code and checks it against the catalog.
func Normalize(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if !IsValid(c) {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return c, nil
}
