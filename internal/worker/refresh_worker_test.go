package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ayo6706/currency-widget/internal/domain"
	"github.com/ayo6706/currency-widget/internal/models"
	"github.com/ayo6706/currency-widget/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRefresher struct {
	mu    sync.Mutex
	calls int
	state models.RateState
}

func (s *stubRefresher) Refresh() <-chan struct{} {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (s *stubRefresher) Snapshot() models.RateState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *stubRefresher) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestRefreshWorkerRefreshesOnInterval(t *testing.T) {
	rates := &stubRefresher{state: models.RateState{Base: "USD", Status: domain.RateStatusReady}}
	stop := NewRefreshWorker(rates).WithInterval(10 * time.Millisecond).Run(context.Background())
	defer stop()

	require.Eventually(t, func() bool { return rates.Calls() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestRefreshWorkerStopsOnContextCancel(t *testing.T) {
	rates := &stubRefresher{}
	ctx, cancel := context.WithCancel(context.Background())
	w := NewRefreshWorker(rates).WithInterval(time.Hour)

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 0, rates.Calls())
}

func TestRefreshWorkerStopIsIdempotent(t *testing.T) {
	w := NewRefreshWorker(&stubRefresher{})
	w.Stop()
	assert.NotPanics(t, w.Stop)
}

func TestRefreshWorkerRunOnceHandlesEveryState(t *testing.T) {
	observability.Init()

	states := []models.RateState{
		{Status: domain.RateStatusIdle},
		{Base: "USD", Status: domain.RateStatusReady},
		{Base: "USD", Status: domain.RateStatusError, IsError: true, LastError: "boom"},
	}
	for _, state := range states {
		rates := &stubRefresher{state: state}
		NewRefreshWorker(rates).runOnce(context.Background())
		assert.Equal(t, 1, rates.Calls(), state.Status)
	}
}
