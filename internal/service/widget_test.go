package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ayo6706/currency-widget/internal/domain"
	"github.com/ayo6706/currency-widget/internal/gateway"
	"github.com/ayo6706/currency-widget/internal/models"
	"github.com/ayo6706/currency-widget/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widgetFixture struct {
	widget *WidgetService
	store  *flakyStore
	source *gatedSource
	clock  *fakeClock
}

func newWidgetFixture(t *testing.T) *widgetFixture {
	t.Helper()

	src := newGatedSource()
	src.set("USD", models.RateMap{"EUR": 0.92, "GBP": 0.79, "JPY": 149.87}, nil)
	src.set("EUR", models.RateMap{"USD": 1.0865, "GBP": 0.86}, nil)

	store := newFlakyStore()
	clock := newFakeClock()
	cache := NewRateCache(src).WithClock(clock.Now)
	t.Cleanup(cache.Close)

	seq := 0
	widget := NewWidgetService(
		cache,
		NewHistoryService(store),
		NewPreferenceService(store, models.ThemeLight),
		"usd",
		WithNow(clock.Now),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	return &widgetFixture{widget: widget, store: store, source: src, clock: clock}
}

func (f *widgetFixture) start(t *testing.T) {
	t.Helper()
	done, err := f.widget.Start(context.Background())
	require.NoError(t, err)
	waitDone(t, done)
}

func TestWidgetInitialState(t *testing.T) {
	f := newWidgetFixture(t)
	f.start(t)

	snap := f.widget.Snapshot()
	assert.Equal(t, "USD", snap.SourceCurrency)
	assert.Equal(t, models.AmountState{Raw: "1", Display: "1"}, snap.Amount)
	assert.Empty(t, snap.TargetCurrencies)
	assert.Empty(t, snap.History)
	assert.Equal(t, models.ThemeLight, snap.Theme)
	assert.Equal(t, domain.RateStatusReady, snap.Rates.Status)
	assert.False(t, snap.CanConvert, "no targets yet")
	assert.True(t, snap.CanAddTarget)
	assert.True(t, snap.CanRefetch)
	assert.Len(t, snap.ReplaceCandidates, 25)
	assert.NotContains(t, snap.ReplaceCandidates, "USD")
}

func TestWidgetConvertScenario(t *testing.T) {
	f := newWidgetFixture(t)
	f.start(t)

	f.widget.AddTarget()
	codes, err := f.widget.ReplaceTarget(0, "EUR")
	require.NoError(t, err)
	require.Equal(t, []string{"EUR"}, codes)

	amount, ok := f.widget.SetAmount("1,234.5")
	require.True(t, ok)
	assert.Equal(t, "1234.5", amount.Raw)
	assert.Equal(t, "1,234.5", amount.Display)

	result, err := f.widget.Convert(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Empty(t, result.Skipped)

	entry := result.Entries[0]
	assert.Equal(t, "id-1", entry.ID)
	assert.Equal(t, "USD", entry.FromCurrency)
	assert.Equal(t, "EUR", entry.ToCurrency)
	assert.Equal(t, 1234.5, entry.Amount)
	assert.Equal(t, 1135.74, entry.Result)
	assert.Equal(t, f.clock.Now(), entry.Timestamp)

	assert.Equal(t, result.Entries, f.widget.Snapshot().History)
}

func TestWidgetConvertBatchOrderAndSkips(t *testing.T) {
	f := newWidgetFixture(t)
	f.start(t)

	// NPR, EUR, JPY; the USD rate map has no NPR entry
	f.widget.AddTarget()
	f.widget.AddTarget()
	f.widget.AddTarget()

	result, err := f.widget.Convert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"NPR"}, result.Skipped)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "EUR", result.Entries[0].ToCurrency)
	assert.Equal(t, "JPY", result.Entries[1].ToCurrency)
	assert.Equal(t, 149.87, result.Entries[1].Result)

	history := f.widget.Snapshot().History
	require.Len(t, history, 2)
	assert.Equal(t, "EUR", history[0].ToCurrency)
}

func TestWidgetConvertUnavailable(t *testing.T) {
	t.Run("no targets", func(t *testing.T) {
		f := newWidgetFixture(t)
		f.start(t)
		_, err := f.widget.Convert(context.Background())
		require.ErrorIs(t, err, ErrConvertUnavailable)
		require.ErrorIs(t, err, ErrNoTargets)
	})

	t.Run("amount does not parse", func(t *testing.T) {
		f := newWidgetFixture(t)
		f.start(t)
		f.widget.AddTarget()
		_, ok := f.widget.SetAmount("")
		require.True(t, ok)
		_, err := f.widget.Convert(context.Background())
		require.ErrorIs(t, err, ErrAmountInvalid)
		assert.False(t, f.widget.Snapshot().CanConvert)
	})

	t.Run("rates still loading", func(t *testing.T) {
		f := newWidgetFixture(t)
		f.source.hold("USD")
		done, err := f.widget.Start(context.Background())
		require.NoError(t, err)
		f.widget.AddTarget()

		_, err = f.widget.Convert(context.Background())
		require.ErrorIs(t, err, ErrRatesUnavailable)
		snap := f.widget.Snapshot()
		assert.True(t, snap.Rates.IsLoading)
		assert.False(t, snap.CanRefetch)

		f.source.release("USD")
		waitDone(t, done)
		assert.True(t, f.widget.Snapshot().CanConvert)
	})

	t.Run("rates in error", func(t *testing.T) {
		f := newWidgetFixture(t)
		f.start(t)
		f.widget.AddTarget()
		f.source.set("USD", nil, fmt.Errorf("boom"))
		waitDone(t, f.widget.Refetch())

		_, err := f.widget.Convert(context.Background())
		require.ErrorIs(t, err, ErrRatesUnavailable)
		snap := f.widget.Snapshot()
		assert.True(t, snap.Rates.IsError)
		assert.NotEmpty(t, snap.Rates.Rates, "last known rates stay visible")
	})
}

func TestWidgetConvertHistoryWriteFailure(t *testing.T) {
	f := newWidgetFixture(t)
	f.start(t)
	f.widget.AddTarget()

	f.store.FailWrites(true)
	_, err := f.widget.Convert(context.Background())
	require.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, f.widget.Snapshot().History)
}

func TestWidgetHistoryCapAcrossConversions(t *testing.T) {
	f := newWidgetFixture(t)
	f.start(t)
	f.widget.AddTarget()
	f.widget.AddTarget()
	f.widget.AddTarget()

	for i := 0; i < 5; i++ {
		f.clock.Advance(time.Second)
		_, err := f.widget.Convert(context.Background())
		require.NoError(t, err)
	}

	// five batches of two (NPR has no rate), newest batch first
	history := f.widget.Snapshot().History
	require.Len(t, history, domain.MaxHistoryEntries)
	assert.Equal(t, "id-9", history[0].ID)
	assert.Equal(t, "id-10", history[1].ID)
	assert.Equal(t, "id-2", history[9].ID)

	_, err := f.widget.Convert(context.Background())
	require.NoError(t, err)
	history = f.widget.Snapshot().History
	require.Len(t, history, domain.MaxHistoryEntries)
	assert.Equal(t, "id-11", history[0].ID)
	assert.Equal(t, "id-4", history[9].ID)
}

func TestWidgetSetSourceSwitchesRates(t *testing.T) {
	f := newWidgetFixture(t)
	f.start(t)
	f.widget.AddTarget()

	f.source.hold("EUR")
	require.NoError(t, f.widget.SetSource("eur"))

	snap := f.widget.Snapshot()
	assert.Equal(t, "EUR", snap.SourceCurrency)
	assert.True(t, snap.Rates.IsLoading)
	assert.False(t, snap.CanConvert)
	assert.Equal(t, []string{"NPR"}, snap.TargetCurrencies, "targets survive a source change")

	f.source.release("EUR")
	require.Eventually(t, func() bool {
		return f.widget.Snapshot().Rates.Status == domain.RateStatusReady
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "EUR", f.widget.Snapshot().Rates.Base)

	require.Error(t, f.widget.SetSource("XYZ"))
	assert.Equal(t, "EUR", f.widget.Snapshot().SourceCurrency)
}

func TestWidgetTargetActions(t *testing.T) {
	f := newWidgetFixture(t)
	f.start(t)

	f.widget.AddTarget()
	f.widget.AddTarget()
	codes := f.widget.AddTarget()
	assert.Equal(t, []string{"NPR", "EUR", "JPY"}, codes)

	snap := f.widget.Snapshot()
	assert.False(t, snap.CanAddTarget)
	assert.Empty(t, snap.AddCandidates)
	assert.Equal(t, codes, f.widget.AddTarget(), "add at cap is a no-op")

	_, err := f.widget.ReplaceTarget(0, "USD")
	require.ErrorIs(t, err, ErrTargetNotOffered)

	_, err = f.widget.ReplaceTarget(5, "GBP")
	require.ErrorIs(t, err, ErrTargetIndex)

	codes, err = f.widget.ReplaceTarget(2, "eur")
	require.NoError(t, err)
	assert.Equal(t, []string{"NPR", "EUR", "EUR"}, codes)

	codes, err = f.widget.RemoveTarget(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"EUR", "EUR"}, codes)

	codes, err = f.widget.RemoveTarget(7)
	require.ErrorIs(t, err, ErrTargetIndex)
	assert.Equal(t, []string{"EUR", "EUR"}, codes)
}

func TestWidgetRejectedAmountKeepsState(t *testing.T) {
	f := newWidgetFixture(t)
	f.start(t)

	_, ok := f.widget.SetAmount("12.5")
	require.True(t, ok)
	before := f.widget.Snapshot().Version

	got, ok := f.widget.SetAmount("12.555")
	assert.False(t, ok)
	assert.Equal(t, "12.5", got.Raw)
	assert.Equal(t, before, f.widget.Snapshot().Version)
}

func TestWidgetClearHistoryAndTheme(t *testing.T) {
	f := newWidgetFixture(t)
	f.start(t)
	f.widget.AddTarget()
	f.widget.AddTarget()

	_, err := f.widget.Convert(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.widget.ClearHistory(context.Background()))
	assert.Empty(t, f.widget.Snapshot().History)

	theme, err := f.widget.ToggleTheme(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, theme)
	assert.Equal(t, models.ThemeDark, f.widget.Snapshot().Theme)
}

func TestWidgetRestoresPersistedState(t *testing.T) {
	f := newWidgetFixture(t)
	f.start(t)
	f.widget.AddTarget()
	f.widget.AddTarget()
	_, err := f.widget.Convert(context.Background())
	require.NoError(t, err)
	_, err = f.widget.ToggleTheme(context.Background())
	require.NoError(t, err)

	cache := NewRateCache(gateway.NewMockRateSource())
	defer cache.Close()
	restored := NewWidgetService(
		cache,
		NewHistoryService(f.store),
		NewPreferenceService(f.store, models.ThemeLight),
		"USD",
	)
	done, err := restored.Start(context.Background())
	require.NoError(t, err)
	waitDone(t, done)

	snap := restored.Snapshot()
	assert.Len(t, snap.History, 1)
	assert.Equal(t, models.ThemeDark, snap.Theme)
}

func TestWidgetSubscribeDeliversLatest(t *testing.T) {
	f := newWidgetFixture(t)
	f.start(t)

	updates, cancel := f.widget.Subscribe()
	defer cancel()

	f.widget.AddTarget()
	f.widget.SetAmount("5")
	f.widget.SetAmount("50")

	select {
	case snap := <-updates:
		assert.Equal(t, "50", snap.Amount.Raw)
		assert.Equal(t, []string{"NPR"}, snap.TargetCurrencies)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	select {
	case <-updates:
		t.Fatal("intermediate snapshots must be dropped")
	default:
	}

	cancel()
	f.widget.SetAmount("7")
	select {
	case <-updates:
		t.Fatal("unsubscribed channel received a snapshot")
	default:
	}
}

func TestWidgetSubscribeSeesBackgroundFetch(t *testing.T) {
	f := newWidgetFixture(t)
	f.start(t)

	updates, cancel := f.widget.Subscribe()
	defer cancel()

	f.source.set("USD", models.RateMap{"EUR": 0.95}, nil)
	waitDone(t, f.widget.Refetch())

	select {
	case snap := <-updates:
		assert.Equal(t, models.RateMap{"EUR": 0.95}, snap.Rates.Rates)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestWidgetSubscribeConcurrentPublishKeepsNewestVersion(t *testing.T) {
	f := newWidgetFixture(t)
	f.start(t)

	updates, cancel := f.widget.Subscribe()
	defer cancel()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.widget.SetAmount(fmt.Sprint(i + 2))
		}()
		go func() {
			defer wg.Done()
			<-f.widget.Refetch()
		}()
	}
	wg.Wait()

	var last models.WidgetSnapshot
	assert.Eventually(t, func() bool {
		select {
		case last = <-updates:
		default:
		}
		return last.Version == f.widget.Snapshot().Version
	}, time.Second, 5*time.Millisecond)

	select {
	case snap := <-updates:
		assert.Greater(t, snap.Version, last.Version, "older snapshot delivered after newer one")
	default:
	}
}

var _ repository.Store = (*flakyStore)(nil)
