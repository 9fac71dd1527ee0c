package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSettingsNotFound = errors.New("settings not found")

type SettingsRepository struct {
	*pg.DB
}

func NewSettingsRepository(db *pg.DB) *SettingsRepository {
	return &SettingsRepository{
		db,
	}
}

// ActiveTPOSConfig returns the most recently updated active credential row.
func (r *SettingsRepository) ActiveTPOSConfig(ctx context.Context) (*model.TPOSConfig, error) {
	var entity TPOSConfigEntity
	err := r.Read(ctx).
		Where("is_active = ?", true).
		Order("updated_at DESC").
		Order("id DESC").
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return toTPOSConfigModel(&entity), nil
}

// SaveTPOSConfig stores a new active credential row and deactivates the previous ones.
func (r *SettingsRepository) SaveTPOSConfig(ctx context.Context, cfg *model.TPOSConfig) error {
	return r.WithinTransaction(ctx, func(txCtx context.Context) error {
		err := r.Write(txCtx).
			Model(&TPOSConfigEntity{}).
			Where("is_active = ?", true).
			Update("is_active", false).
			Error
		if err != nil {
			return err
		}
		return r.Write(txCtx).Create(&TPOSConfigEntity{
			BaseURL:     cfg.BaseURL,
			BearerToken: cfg.BearerToken,
			IsActive:    true,
		}).Error
	})
}

func (r *SettingsRepository) ActivePrinter(ctx context.Context) (*model.PrinterSettings, error) {
	var entity PrinterSettingsEntity
	err := r.Read(ctx).
		Where("is_active = ?", true).
		Order("updated_at DESC").
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return toPrinterSettingsModel(&entity), nil
}

// SavePrinter upserts a printer by name. An active printer becomes the only active one.
func (r *SettingsRepository) SavePrinter(ctx context.Context, p *model.PrinterSettings, active bool) error {
	return r.WithinTransaction(ctx, func(txCtx context.Context) error {
		if active {
			err := r.Write(txCtx).
				Model(&PrinterSettingsEntity{}).
				Where("is_active = ? AND name <> ?", true, p.Name).
				Update("is_active", false).
				Error
			if err != nil {
				return err
			}
		}
		return r.Write(txCtx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"ip", "port", "codepage", "is_active", "updated_at"}),
			}).
			Create(&PrinterSettingsEntity{
				Name:     p.Name,
				IP:       p.IP,
				Port:     p.Port,
				Codepage: p.Codepage,
				IsActive: active,
			}).
			Error
	})
}
