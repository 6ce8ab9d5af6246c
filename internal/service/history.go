package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ayo6706/currency-widget/internal/currency"
	"github.com/ayo6706/currency-widget/internal/domain"
	"github.com/ayo6706/currency-widget/internal/models"
	"github.com/ayo6706/currency-widget/internal/observability"
	"github.com/ayo6706/currency-widget/internal/repository"
	"go.uber.org/zap"
)

// HistoryService keeps the newest-first, capped conversion log and writes
// every mutation through to storage before returning.
type HistoryService struct {
	store repository.Store
	limit int

	mu      sync.Mutex
	entries []models.ConversionHistoryEntry
}

func NewHistoryService(store repository.Store) *HistoryService {
	return &HistoryService{
		store:   store,
		limit:   domain.MaxHistoryEntries,
		entries: []models.ConversionHistoryEntry{},
	}
}

// Load rehydrates the log from storage. Unreadable documents and malformed
// entries degrade to what can be salvaged; only a storage failure is returned.
func (s *HistoryService) Load(ctx context.Context) error {
	raw, err := s.store.Get(ctx, domain.StorageKeyConversionHistory)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = []models.ConversionHistoryEntry{}

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			observability.SetHistoryEntries(0)
			return nil
		}
		return fmt.Errorf("load conversion history: %w", err)
	}

	entries, dropped, err := decodeHistory(raw)
	if err != nil {
		zap.L().Warn("discarding unreadable conversion history", zap.Error(err))
	}
	if dropped > 0 {
		zap.L().Warn("dropped malformed history entries", zap.Int("dropped", dropped))
	}
	if len(entries) > s.limit {
		entries = entries[:s.limit]
	}
	s.entries = entries
	observability.SetHistoryEntries(len(entries))
	return nil
}

// Record prepends batch in the given order and truncates to the cap.
func (s *HistoryService) Record(ctx context.Context, batch []models.ConversionHistoryEntry) ([]models.ConversionHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.ConversionHistoryEntry, 0, len(batch)+len(s.entries))
	next = append(next, batch...)
	next = append(next, s.entries...)
	if len(next) > s.limit {
		next = next[:s.limit]
	}

	if err := s.persistLocked(ctx, next); err != nil {
		return s.copyLocked(), err
	}
	s.entries = next
	observability.SetHistoryEntries(len(next))
	return s.copyLocked(), nil
}

// Clear empties the log unconditionally.
func (s *HistoryService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, domain.StorageKeyConversionHistory); err != nil {
		return fmt.Errorf("clear conversion history: %w", err)
	}
	s.entries = []models.ConversionHistoryEntry{}
	observability.SetHistoryEntries(0)
	return nil
}

// Entries returns a copy of the log, newest first.
func (s *HistoryService) Entries() []models.ConversionHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *HistoryService) persistLocked(ctx context.Context, entries []models.ConversionHistoryEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal conversion history: %w", err)
	}
	if err := s.store.Set(ctx, domain.StorageKeyConversionHistory, string(payload)); err != nil {
		return fmt.Errorf("persist conversion history: %w", err)
	}
	return nil
}

func (s *HistoryService) copyLocked() []models.ConversionHistoryEntry {
	out := make([]models.ConversionHistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func decodeHistory(raw string) ([]models.ConversionHistoryEntry, int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []models.ConversionHistoryEntry{}, 0, err
	}

	entries := make([]models.ConversionHistoryEntry, 0, len(items))
	dropped := 0
	for _, item := range items {
		var e models.ConversionHistoryEntry
		if err := json.Unmarshal(item, &e); err != nil || !validEntry(e) {
			dropped++
			continue
		}
		entries = append(entries, e)
	}
	return entries, dropped, nil
}

func validEntry(e models.ConversionHistoryEntry) bool {
	return e.ID != "" &&
		currency.IsValid(e.FromCurrency) &&
		currency.IsValid(e.ToCurrency) &&
		!e.Timestamp.IsZero()
}
