package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayo6706/currency-widget/internal/domain"
	"github.com/ayo6706/currency-widget/internal/models"
	"github.com/ayo6706/currency-widget/internal/repository"
	"go.uber.org/zap"
)

// PreferenceService holds the persisted theme preference.
type PreferenceService struct {
	store    repository.Store
	fallback models.Theme

	mu    sync.Mutex
	theme models.Theme
}

func NewPreferenceService(store repository.Store, fallback models.Theme) *PreferenceService {
	if !fallback.Valid() {
		fallback = models.ThemeLight
	}
	return &PreferenceService{store: store, fallback: fallback, theme: fallback}
}

// Load reads the stored theme, falling back to the default when it is
// absent or unrecognised.
func (s *PreferenceService) Load(ctx context.Context) error {
	raw, err := s.store.Get(ctx, domain.StorageKeyTheme)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = s.fallback

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load theme: %w", err)
	}
	if t := models.Theme(raw); t.Valid() {
		s.theme = t
	} else {
		zap.L().Warn("ignoring unknown stored theme", zap.String("theme", raw))
	}
	return nil
}

func (s *PreferenceService) Theme() models.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// Toggle flips between dark and light and persists the result.
func (s *PreferenceService) Toggle(ctx context.Context) (models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.theme.Toggle()
	if err := s.store.Set(ctx, domain.StorageKeyTheme, string(next)); err != nil {
		return s.theme, fmt.Errorf("persist theme: %w", err)
	}
	s.theme = next
	return next, nil
}
