package service

import (
	"context"
	"testing"

	"github.com/ayo6706/currency-widget/internal/domain"
	"github.com/ayo6706/currency-widget/internal/models"
	"github.com/ayo6706/currency-widget/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferencesDefaultAndToggle(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	prefs := NewPreferenceService(store, models.ThemeLight)
	require.NoError(t, prefs.Load(ctx))
	assert.Equal(t, models.ThemeLight, prefs.Theme())

	theme, err := prefs.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, theme)

	raw, err := store.Get(ctx, domain.StorageKeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", raw)

	reloaded := NewPreferenceService(store, models.ThemeLight)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, models.ThemeDark, reloaded.Theme())
}

func TestPreferencesIgnoresUnknownTheme(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	require.NoError(t, store.Set(ctx, domain.StorageKeyTheme, "sepia"))

	prefs := NewPreferenceService(store, models.ThemeDark)
	require.NoError(t, prefs.Load(ctx))
	assert.Equal(t, models.ThemeDark, prefs.Theme())
}

func TestPreferencesInvalidFallback(t *testing.T) {
	prefs := NewPreferenceService(repository.NewMemoryStore(), models.Theme("blue"))
	assert.Equal(t, models.ThemeLight, prefs.Theme())
}

func TestPreferencesToggleWriteFailure(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	prefs := NewPreferenceService(store, models.ThemeLight)

	store.FailWrites(true)
	theme, err := prefs.Toggle(ctx)
	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, models.ThemeLight, theme)
	assert.Equal(t, models.ThemeLight, prefs.Theme())
}
