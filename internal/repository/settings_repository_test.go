package repository

import (
	"context"
	"testing"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepository_TPOSConfig(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepository(db.DB)
	ctx := context.Background()

	_, err := repo.ActiveTPOSConfig(ctx)
	assert.ErrorIs(t, err, ErrSettingsNotFound)

	require.NoError(t, repo.SaveTPOSConfig(ctx, &model.TPOSConfig{BaseURL: "https://old", BearerToken: "a"}))
	require.NoError(t, repo.SaveTPOSConfig(ctx, &model.TPOSConfig{BaseURL: "https://new", BearerToken: "b"}))

	got, err := repo.ActiveTPOSConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://new", got.BaseURL)
	assert.Equal(t, "b", got.BearerToken)

	var active int64
	require.NoError(t, db.rawDB.Model(&TPOSConfigEntity{}).Where("is_active = ?", true).Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

func TestSettingsRepository_Printer(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepository(db.DB)
	ctx := context.Background()

	_, err := repo.ActivePrinter(ctx)
	assert.ErrorIs(t, err, ErrSettingsNotFound)

	require.NoError(t, repo.SavePrinter(ctx, &model.PrinterSettings{Name: "counter", IP: "10.0.0.5", Port: 9100}, true))
	require.NoError(t, repo.SavePrinter(ctx, &model.PrinterSettings{Name: "back", IP: "10.0.0.6", Port: 9100}, true))

	got, err := repo.ActivePrinter(ctx)
	require.NoError(t, err)
	assert.Equal(t, "back", got.Name)

	require.NoError(t, repo.SavePrinter(ctx, &model.PrinterSettings{Name: "counter", IP: "10.0.0.9", Port: 9101, Codepage: 16}, true))
	got, err = repo.ActivePrinter(ctx)
	require.NoError(t, err)
	assert.Equal(t, "counter", got.Name)
	assert.Equal(t, "10.0.0.9", got.IP)
	assert.Equal(t, 9101, got.Port)

	var count int64
	require.NoError(t, db.rawDB.Model(&PrinterSettingsEntity{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
