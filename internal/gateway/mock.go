package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/ayo6706/currency-widget/internal/models"
)

// RateSource represents the external rate provider.
type RateSource interface {
	// FetchRates returns every known rate for base. On failure no partial
	// map is returned.
	FetchRates(ctx context.Context, base string) (models.RateMap, error)
}

// usdRates are mid-market rates relative to USD used for offline runs.
var usdRates = models.RateMap{
	"NPR": 133.42,
	"USD": 1,
	"EUR": 0.92,
	"JPY": 149.87,
	"GBP": 0.79,
	"AUD": 1.52,
	"CAD": 1.36,
	"CHF": 0.88,
	"CNY": 7.19,
	"SEK": 10.61,
	"MXN": 17.05,
	"NZD": 1.64,
	"SGD": 1.34,
	"HKD": 7.82,
	"NOK": 10.74,
	"KRW": 1331.2,
	"TRY": 32.25,
	"INR": 83.31,
	"RUB": 91.5,
	"BRL": 4.97,
	"ZAR": 18.62,
	"DKK": 6.87,
	"PLN": 3.98,
	"THB": 35.9,
	"ILS": 3.71,
	"IDR": 15712,
}

// MockRateSource serves static USD-relative rates cross-computed for any
// catalog base. It counts calls so tests can assert cache behaviour.
type MockRateSource struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func NewMockRateSource() *MockRateSource {
	return &MockRateSource{calls: make(map[string]int)}
}

func (m *MockRateSource) FetchRates(ctx context.Context, base string) (models.RateMap, error) {
	m.mu.Lock()
	m.calls[base]++
	err := m.err
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Base: base, Err: err}
	}
	if err != nil {
		return nil, &FetchError{Base: base, Err: err}
	}

	baseRate, ok := usdRates[base]
	if !ok {
		return nil, &FetchError{Base: base, Err: fmt.Errorf("unsupported base currency %q", base)}
	}
	out := make(models.RateMap, len(usdRates))
	for code, rate := range usdRates {
		out[code] = rate / baseRate
	}
	return out, nil
}

// SetErr makes subsequent fetches fail with err; nil restores success.
func (m *MockRateSource) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many fetches were issued for base.
func (m *MockRateSource) Calls(base string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[base]
}
