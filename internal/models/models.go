package models

import "time"

// Currency is an immutable catalog entry.
type Currency struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// RateMap maps a currency code to its rate against one base currency.
// A missing key means the rate is unknown for that code.
type RateMap map[string]float64

// Clone returns an independent copy of the map.
func (m RateMap) Clone() RateMap {
	if m == nil {
		return nil
	}
	out := make(RateMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Rate looks up the rate for code.
func (m RateMap) Rate(code string) (float64, bool) {
	rate, ok := m[code]
	return rate, ok
}

// ConversionHistoryEntry is one recorded conversion. The JSON layout matches
// the widget's persisted conversionHistory document.
type ConversionHistoryEntry struct {
	ID           string    `json:"id"`
	FromCurrency string    `json:"fromCurrency"`
	ToCurrency   string    `json:"toCurrency"`
	Amount       float64   `json:"amount"`
	Result       float64   `json:"result"`
	Timestamp    time.Time `json:"timestamp"`
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is one of the supported themes.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// AmountState pairs the raw typing buffer with its grouped rendering.
type AmountState struct {
	Raw     string `json:"raw"`
	Display string `json:"display"`
}

// RateState is a read-only view of the rate cache for the active base currency.
type RateState struct {
	Base       string    `json:"base"`
	Status     string    `json:"status"`
	Rates      RateMap   `json:"rates,omitempty"`
	IsLoading  bool      `json:"is_loading"`
	IsFetching bool      `json:"is_fetching"`
	IsError    bool      `json:"is_error"`
	LastError  string    `json:"last_error,omitempty"`
	FetchedAt  time.Time `json:"fetched_at,omitzero"`
}

// WidgetSnapshot is the immutable state handed to renderers.
type WidgetSnapshot struct {
	Amount            AmountState              `json:"amount"`
	SourceCurrency    string                   `json:"source_currency"`
	TargetCurrencies  []string                 `json:"target_currencies"`
	AddCandidates     []string                 `json:"add_candidates"`
	ReplaceCandidates []string                 `json:"replace_candidates"`
	Rates             RateState                `json:"rates"`
	History           []ConversionHistoryEntry `json:"history"`
	Theme             Theme                    `json:"theme"`
	CanConvert        bool                     `json:"can_convert"`
	CanAddTarget      bool                     `json:"can_add_target"`
	CanRefetch        bool                     `json:"can_refetch"`
	Version           uint64                   `json:"version"`
}
