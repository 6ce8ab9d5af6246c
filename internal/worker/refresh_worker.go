package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/currency-widget/internal/domain"
	"github.com/ayo6706/currency-widget/internal/models"
	"github.com/ayo6706/currency-widget/internal/observability"
	"go.uber.org/zap"
)

// RateRefresher is the part of the rate cache the worker drives.
type RateRefresher interface {
	Refresh() <-chan struct{}
	Snapshot() models.RateState
}

// RefreshWorker periodically refetches rates for the active base currency.
type RefreshWorker struct {
	rates    RateRefresher
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRefreshWorker constructs a worker with the default ten minute interval.
func NewRefreshWorker(rates RateRefresher) *RefreshWorker {
	return &RefreshWorker{
		rates:    rates,
		interval: domain.DefaultStaleTime,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the refresh interval.
func (w *RefreshWorker) WithInterval(interval time.Duration) *RefreshWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and refreshes rates at the configured interval. The first
// refresh happens one interval after start; the initial load is driven by
// source selection.
func (w *RefreshWorker) Start(ctx context.Context) {
	zap.L().Info("rate refresh worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("rate refresh worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("rate refresh worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *RefreshWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *RefreshWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *RefreshWorker) runOnce(ctx context.Context) {
	done := w.rates.Refresh()
	select {
	case <-done:
	case <-ctx.Done():
		return
	case <-w.stopCh:
		return
	}

	state := w.rates.Snapshot()
	if state.Status == domain.RateStatusIdle {
		observability.IncrementWorkerRun("rate_refresh", "skipped")
		return
	}
	if state.IsError {
		observability.IncrementWorkerRun("rate_refresh", "failed")
		zap.L().Warn("scheduled rate refresh failed", zap.String("base", state.Base), zap.String("error", state.LastError))
		return
	}
	observability.IncrementWorkerRun("rate_refresh", "success")
}
