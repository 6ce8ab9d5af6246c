package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayo6706/currency-widget/internal/gateway"
	"github.com/ayo6706/currency-widget/internal/models"
	"github.com/ayo6706/currency-widget/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// gatedSource blocks each base on its gate channel until the test releases it.
type gatedSource struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	results map[string]models.RateMap
	errs    map[string]error
	calls   map[string]int
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		gates:   map[string]chan struct{}{},
		results: map[string]models.RateMap{},
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

func (s *gatedSource) FetchRates(ctx context.Context, base string) (models.RateMap, error) {
	s.mu.Lock()
	s.calls[base]++
	gate := s.gates[base]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[base]; err != nil {
		return nil, err
	}
	return s.results[base].Clone(), nil
}

func (s *gatedSource) hold(base string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gates[base] = make(chan struct{})
}

func (s *gatedSource) release(base string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g := s.gates[base]; g != nil {
		close(g)
		delete(s.gates, base)
	}
}

func (s *gatedSource) set(base string, rates models.RateMap, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[base] = rates
	s.errs[base] = err
}

func (s *gatedSource) callCount(base string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[base]
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rate fetch")
	}
}


var _ gateway.RateSource = (*gatedSource)(nil)

var errStoreDown = errors.New("store unavailable")

// flakyStore is a memory store whose writes can be switched to fail.
type flakyStore struct {
	*repository.MemoryStore

	mu      sync.Mutex
	failSet bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: repository.NewMemoryStore()}
}

func (s *flakyStore) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSet = fail
}

func (s *flakyStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	fail := s.failSet
	s.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	fail := s.failSet
	s.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return s.MemoryStore.Delete(ctx, key)
}
