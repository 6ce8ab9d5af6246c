package service

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/currency-widget/internal/domain"
	"github.com/ayo6706/currency-widget/internal/gateway"
	"github.com/ayo6706/currency-widget/internal/models"
	"github.com/ayo6706/currency-widget/internal/observability"
	"go.uber.org/zap"
)

const defaultFetchTimeout = 10 * time.Second

// rateEntry is the cached state for one base currency.
type rateEntry struct {
	base      string
	status    string
	rates     models.RateMap
	fetchedAt time.Time
	lastErr   error
	// inflight is non-nil while a fetch for this base is running and is
	// closed once its result has been applied.
	inflight chan struct{}
}

// RateCache owns fetched rate maps keyed by base currency, tracks their
// loading/error/staleness state and coalesces concurrent fetches per key.
type RateCache struct {
	source       gateway.RateSource
	staleTime    time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	active   string
	entries  map[string]*rateEntry
	onChange func()
}

// NewRateCache creates a cache with the default ten minute staleness window.
func NewRateCache(source gateway.RateSource) *RateCache {
	ctx, cancel := context.WithCancel(context.Background())
	return &RateCache{
		source:       source,
		staleTime:    domain.DefaultStaleTime,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
		entries:      make(map[string]*rateEntry),
	}
}

// WithStaleTime sets how long fetched rates are served without refetching.
func (c *RateCache) WithStaleTime(d time.Duration) *RateCache {
	if d > 0 {
		c.staleTime = d
	}
	return c
}

// WithFetchTimeout bounds each provider call.
func (c *RateCache) WithFetchTimeout(d time.Duration) *RateCache {
	if d > 0 {
		c.fetchTimeout = d
	}
	return c
}

// WithClock replaces the time source used for staleness decisions.
func (c *RateCache) WithClock(now func() time.Time) *RateCache {
	if now != nil {
		c.now = now
	}
	return c
}

// OnChange registers fn to be called after every state change of the
// active base. fn runs outside the cache lock.
func (c *RateCache) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Select makes base the active key. A fetch is issued only when no fresh
// rates are cached for it; stale rates stay visible while they refresh.
// The returned channel is closed once no fetch for base is pending.
func (c *RateCache) Select(base string) <-chan struct{} {
	c.mu.Lock()
	c.active = base
	done := c.ensureLocked(c.entryLocked(base))
	c.mu.Unlock()

	c.notify()
	return done
}

// Refetch forces a fetch of the active base. A fetch already in flight is
// reused instead of starting a second one.
func (c *RateCache) Refetch() <-chan struct{} {
	c.mu.Lock()
	if c.active == "" {
		c.mu.Unlock()
		return closedChan()
	}
	e := c.entryLocked(c.active)
	var done <-chan struct{}
	if e.inflight != nil {
		observability.IncrementRateCacheEvent("coalesced")
		done = e.inflight
	} else {
		zap.L().Debug("refetching rates", zap.String("base", e.base))
		done = c.startFetchLocked(e)
	}
	c.mu.Unlock()

	c.notify()
	return done
}

// Refresh is the periodic background refetch of the active base. It only
// fetches once the cached rates are stale; fresh rates are left alone.
func (c *RateCache) Refresh() <-chan struct{} {
	c.mu.Lock()
	if c.active == "" {
		c.mu.Unlock()
		return closedChan()
	}
	done := c.ensureLocked(c.entryLocked(c.active))
	c.mu.Unlock()

	c.notify()
	return done
}

// Snapshot returns the state of the active base.
func (c *RateCache) Snapshot() models.RateState {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[c.active]
	if !ok {
		return models.RateState{Base: c.active, Status: domain.RateStatusIdle}
	}
	state := models.RateState{
		Base:       e.base,
		Status:     e.status,
		Rates:      e.rates.Clone(),
		IsLoading:  e.status == domain.RateStatusLoading,
		IsFetching: e.inflight != nil,
		IsError:    e.status == domain.RateStatusError,
		FetchedAt:  e.fetchedAt,
	}
	if e.lastErr != nil {
		state.LastError = e.lastErr.Error()
	}
	return state
}

// Close cancels in-flight fetches. The cache must not be used afterwards.
func (c *RateCache) Close() {
	c.cancel()
}

func (c *RateCache) ensureLocked(e *rateEntry) <-chan struct{} {
	if e.inflight != nil {
		observability.IncrementRateCacheEvent("coalesced")
		return e.inflight
	}
	if e.rates != nil && c.now().Sub(e.fetchedAt) < c.staleTime {
		observability.IncrementRateCacheEvent("hit")
		return closedChan()
	}
	if e.rates == nil {
		observability.IncrementRateCacheEvent("miss")
	} else {
		observability.IncrementRateCacheEvent("stale")
	}
	return c.startFetchLocked(e)
}

func (c *RateCache) startFetchLocked(e *rateEntry) <-chan struct{} {
	if e.rates == nil {
		e.status = domain.RateStatusLoading
	} else {
		e.status = domain.RateStatusRefreshing
	}
	done := make(chan struct{})
	e.inflight = done
	go c.fetch(e.base, done)
	return done
}

func (c *RateCache) fetch(base string, done chan struct{}) {
	ctx, cancel := context.WithTimeout(c.ctx, c.fetchTimeout)
	start := time.Now()
	rates, err := c.source.FetchRates(ctx, base)
	cancel()

	c.mu.Lock()
	e := c.entries[base]
	e.inflight = nil
	if err != nil {
		// last-known-good rates stay in place
		e.status = domain.RateStatusError
		e.lastErr = err
		observability.ObserveRateFetch(base, "failed", time.Since(start))
		zap.L().Warn("rate fetch failed", zap.String("base", base), zap.Error(err))
	} else {
		e.status = domain.RateStatusReady
		e.rates = rates.Clone()
		e.fetchedAt = c.now()
		e.lastErr = nil
		observability.ObserveRateFetch(base, "success", time.Since(start))
		zap.L().Info("rates updated", zap.String("base", base), zap.Int("count", len(rates)))
	}
	active := c.active == base
	c.mu.Unlock()

	if active {
		c.notify()
	} else {
		// kept under its own key; the active snapshot is untouched
		observability.IncrementRateCacheEvent("inactive_result")
	}
	close(done)
}

func (c *RateCache) entryLocked(base string) *rateEntry {
	e, ok := c.entries[base]
	if !ok {
		e = &rateEntry{base: base, status: domain.RateStatusIdle}
		c.entries[base] = e
	}
	return e
}

func (c *RateCache) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
