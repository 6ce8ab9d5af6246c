package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayo6706/currency-widget/internal/currency"
	"github.com/ayo6706/currency-widget/internal/domain"
	"github.com/ayo6706/currency-widget/internal/models"
	"github.com/ayo6706/currency-widget/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrConvertUnavailable = errors.New("conversion unavailable")
	ErrRatesUnavailable   = errors.New("rates are not available for the source currency")
	ErrAmountInvalid      = errors.New("amount is not a number")
	ErrNoTargets          = errors.New("no target currencies selected")
	ErrTargetNotOffered   = errors.New("currency is not offered for this target")
	ErrTargetIndex        = errors.New("target index out of range")
)

// ConvertResult is the outcome of one convert action.
type ConvertResult struct {
	Entries []models.ConversionHistoryEntry `json:"entries"`
	Skipped []string                        `json:"skipped"`
}

type WidgetOption func(*WidgetService)

// WithNow replaces the clock used for history timestamps.
func WithNow(now func() time.Time) WidgetOption {
	return func(w *WidgetService) {
		if now != nil {
			w.now = now
		}
	}
}

// WithIDGenerator replaces the history entry id generator.
func WithIDGenerator(newID func() string) WidgetOption {
	return func(w *WidgetService) {
		if newID != nil {
			w.newID = newID
		}
	}
}

// WidgetService is the widget's state core. It owns the amount, source and
// target selection, and coordinates the rate cache, history and preferences.
type WidgetService struct {
	rates   *RateCache
	history *HistoryService
	prefs   *PreferenceService
	now     func() time.Time
	newID   func() string

	// actionMu serializes user actions; mu guards the fields below it.
	actionMu sync.Mutex
	mu       sync.Mutex
	amount   models.AmountState
	source   string
	targets  TargetList

	version atomic.Uint64
	subMu   sync.Mutex
	subs    map[chan models.WidgetSnapshot]struct{}
}

func NewWidgetService(rates *RateCache, history *HistoryService, prefs *PreferenceService, source string, opts ...WidgetOption) *WidgetService {
	code, err := currency.Normalize(source)
	if err != nil {
		code = domain.DefaultSourceCurrency
	}
	w := &WidgetService{
		rates:   rates,
		history: history,
		prefs:   prefs,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
		amount:  domain.NewAmountState(domain.DefaultAmount),
		source:  code,
		targets: NewTargetList(),
		subs:    make(map[chan models.WidgetSnapshot]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	rates.OnChange(w.publish)
	return w
}

// Start restores persisted history and theme, then begins loading rates for
// the source currency. The returned channel closes when that first fetch
// settles.
func (w *WidgetService) Start(ctx context.Context) (<-chan struct{}, error) {
	if err := w.history.Load(ctx); err != nil {
		return nil, err
	}
	if err := w.prefs.Load(ctx); err != nil {
		return nil, err
	}

	w.actionMu.Lock()
	defer w.actionMu.Unlock()
	return w.rates.Select(w.currentSource()), nil
}

// SetAmount applies one edit of the amount field. Rejected input leaves the
// state unchanged and reports false.
func (w *WidgetService) SetAmount(input string) (models.AmountState, bool) {
	w.actionMu.Lock()
	defer w.actionMu.Unlock()

	w.mu.Lock()
	next, ok := domain.NormalizeAmount(w.amount, input)
	w.amount = next
	w.mu.Unlock()

	if ok {
		w.publish()
	}
	return next, ok
}

// SetSource switches the base currency and selects its rates.
func (w *WidgetService) SetSource(code string) error {
	code, err := currency.Normalize(code)
	if err != nil {
		return err
	}

	w.actionMu.Lock()
	defer w.actionMu.Unlock()

	w.mu.Lock()
	w.source = code
	w.mu.Unlock()

	w.rates.Select(code)
	return nil
}

// AddTarget appends the first available currency. At the cap it is a no-op.
func (w *WidgetService) AddTarget() []string {
	w.actionMu.Lock()
	defer w.actionMu.Unlock()

	w.mu.Lock()
	before := w.targets.Len()
	w.targets = w.targets.Add(w.source)
	codes := w.targets.Codes()
	changed := w.targets.Len() != before
	w.mu.Unlock()

	if changed {
		w.publish()
	}
	return codes
}

// ReplaceTarget switches the target at index to code. Only currencies offered
// for a target slot are accepted, which excludes the source currency.
func (w *WidgetService) ReplaceTarget(index int, code string) ([]string, error) {
	code, err := currency.Normalize(code)
	if err != nil {
		return nil, err
	}

	w.actionMu.Lock()
	defer w.actionMu.Unlock()

	w.mu.Lock()
	if index < 0 || index >= w.targets.Len() {
		codes := w.targets.Codes()
		w.mu.Unlock()
		return codes, fmt.Errorf("%w: %d", ErrTargetIndex, index)
	}
	if code == w.source {
		codes := w.targets.Codes()
		w.mu.Unlock()
		return codes, fmt.Errorf("%w: %s", ErrTargetNotOffered, code)
	}
	w.targets = w.targets.Replace(index, code)
	codes := w.targets.Codes()
	w.mu.Unlock()

	w.publish()
	return codes, nil
}

// RemoveTarget deletes the target at index. The list is unchanged when index
// is out of range.
func (w *WidgetService) RemoveTarget(index int) ([]string, error) {
	w.actionMu.Lock()
	defer w.actionMu.Unlock()

	w.mu.Lock()
	if index < 0 || index >= w.targets.Len() {
		codes := w.targets.Codes()
		w.mu.Unlock()
		return codes, fmt.Errorf("%w: %d", ErrTargetIndex, index)
	}
	w.targets = w.targets.Remove(index)
	codes := w.targets.Codes()
	w.mu.Unlock()

	w.publish()
	return codes, nil
}

// Convert converts the current amount into every target currency and records
// the batch in history. Targets without a rate are skipped.
func (w *WidgetService) Convert(ctx context.Context) (ConvertResult, error) {
	w.actionMu.Lock()
	defer w.actionMu.Unlock()

	w.mu.Lock()
	raw := w.amount.Raw
	source := w.source
	targets := w.targets.Codes()
	w.mu.Unlock()

	rates := w.rates.Snapshot()
	if err := convertPrecondition(rates, source, raw, targets); err != nil {
		observability.IncrementConversion("unavailable")
		return ConvertResult{}, err
	}
	amount, _ := domain.ParseAmount(raw)

	result := ConvertResult{
		Entries: make([]models.ConversionHistoryEntry, 0, len(targets)),
		Skipped: []string{},
	}
	now := w.now()
	for _, target := range targets {
		rate, ok := rates.Rates.Rate(target)
		if !ok {
			result.Skipped = append(result.Skipped, target)
			observability.IncrementConversion("skipped")
			zap.L().Warn("no rate for target currency", zap.String("from", source), zap.String("to", target))
			continue
		}
		converted, err := domain.Convert(amount, rate)
		if err != nil {
			result.Skipped = append(result.Skipped, target)
			observability.IncrementConversion("skipped")
			zap.L().Warn("invalid rate for target currency", zap.String("to", target), zap.Error(err))
			continue
		}
		zap.L().Debug("converted",
			zap.String("from", source),
			zap.String("to", target),
			zap.String("result", domain.FormatFixed(converted, 2)),
		)
		result.Entries = append(result.Entries, models.ConversionHistoryEntry{
			ID:           w.newID(),
			FromCurrency: source,
			ToCurrency:   target,
			Amount:       amount,
			Result:       converted,
			Timestamp:    now,
		})
	}

	if len(result.Entries) > 0 {
		if _, err := w.history.Record(ctx, result.Entries); err != nil {
			observability.IncrementConversion("failed")
			return ConvertResult{}, err
		}
		observability.IncrementConversion("success")
		w.publish()
	}
	return result, nil
}

// ClearHistory empties the conversion log.
func (w *WidgetService) ClearHistory(ctx context.Context) error {
	w.actionMu.Lock()
	defer w.actionMu.Unlock()

	if err := w.history.Clear(ctx); err != nil {
		return err
	}
	w.publish()
	return nil
}

// Refetch asks for fresh rates for the source currency. It is coalesced
// with any fetch already in flight.
func (w *WidgetService) Refetch() <-chan struct{} {
	w.actionMu.Lock()
	defer w.actionMu.Unlock()
	return w.rates.Refetch()
}

// ToggleTheme flips the persisted theme preference.
func (w *WidgetService) ToggleTheme(ctx context.Context) (models.Theme, error) {
	w.actionMu.Lock()
	defer w.actionMu.Unlock()

	theme, err := w.prefs.Toggle(ctx)
	if err != nil {
		return theme, err
	}
	w.publish()
	return theme, nil
}

// Snapshot returns an immutable copy of the whole widget state.
func (w *WidgetService) Snapshot() models.WidgetSnapshot {
	w.mu.Lock()
	amount := w.amount
	source := w.source
	targets := w.targets
	w.mu.Unlock()

	rates := w.rates.Snapshot()
	addCandidates := []string{}
	if !targets.Full() {
		addCandidates = targets.AddCandidates(source)
	}
	codes := targets.Codes()

	return models.WidgetSnapshot{
		Amount:           amount,
		SourceCurrency:   source,
		TargetCurrencies: codes,
		AddCandidates:    addCandidates,
		ReplaceCandidates: ReplaceCandidates(source),
		Rates:            rates,
		History:          w.history.Entries(),
		Theme:            w.prefs.Theme(),
		CanConvert:       convertPrecondition(rates, source, amount.Raw, codes) == nil,
		CanAddTarget:     len(addCandidates) > 0,
		CanRefetch:       !rates.IsLoading && !rates.IsFetching,
		Version:          w.version.Load(),
	}
}

// RateState returns the rate cache state for the source currency.
func (w *WidgetService) RateState() models.RateState {
	return w.rates.Snapshot()
}

// Subscribe returns a channel that receives the latest snapshot after each
// state change. A slow reader only ever sees the most recent snapshot.
// Call the returned func to unsubscribe.
func (w *WidgetService) Subscribe() (<-chan models.WidgetSnapshot, func()) {
	ch := make(chan models.WidgetSnapshot, 1)

	w.subMu.Lock()
	w.subs[ch] = struct{}{}
	w.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.subMu.Lock()
			delete(w.subs, ch)
			w.subMu.Unlock()
		})
	}
}

// publish bumps the version and delivers a snapshot to every subscriber.
// Both happen under subMu so concurrent publishers deliver in version order.
func (w *WidgetService) publish() {
	w.subMu.Lock()
	defer w.subMu.Unlock()

	w.version.Add(1)
	snap := w.Snapshot()
	for ch := range w.subs {
		select {
		case ch <- snap:
		default:
			// replace the unread snapshot with the newer one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (w *WidgetService) currentSource() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.source
}

func convertPrecondition(rates models.RateState, source, raw string, targets []string) error {
	if rates.Base != source || len(rates.Rates) == 0 || rates.IsError || rates.IsLoading {
		return fmt.Errorf("%w: %w", ErrConvertUnavailable, ErrRatesUnavailable)
	}
	if _, ok := domain.ParseAmount(raw); !ok {
		return fmt.Errorf("%w: %w", ErrConvertUnavailable, ErrAmountInvalid)
	}
	if len(targets) == 0 {
		return fmt.Errorf("%w: %w", ErrConvertUnavailable, ErrNoTargets)
	}
	return nil
}
