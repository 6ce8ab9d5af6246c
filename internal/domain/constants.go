package domain

import "time"

// Storage keys shared with the browser build of the widget.
const (
	StorageKeyTheme             = "theme"
	StorageKeyConversionHistory = "conversionHistory"
)

const (
	MaxHistoryEntries   = 10
	MaxTargetCurrencies = 3

	DefaultSourceCurrency = "USD"
	DefaultAmount         = "1"

	// DefaultStaleTime is both the freshness window and the auto-refresh interval.
	DefaultStaleTime = 600_000 * time.Millisecond
)

// Rate cache statuses.
const (
	RateStatusIdle       = "IDLE"
	RateStatusLoading    = "LOADING"
	RateStatusReady      = "READY"
	RateStatusError      = "ERROR"
	RateStatusRefreshing = "REFRESHING"
)
