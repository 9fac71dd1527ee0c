package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/repository"
	"github.com/nimasrn/live-commerce/pkg/logger"
)

type SettingsRepository interface {
	ActiveTPOSConfig(ctx context.Context) (*model.TPOSConfig, error)
	SaveTPOSConfig(ctx context.Context, cfg *model.TPOSConfig) error
	ActivePrinter(ctx context.Context) (*model.PrinterSettings, error)
	SavePrinter(ctx context.Context, p *model.PrinterSettings, active bool) error
}

// SettingsDefaults come from the environment and apply while no row is stored.
type SettingsDefaults struct {
	TPOS    model.TPOSConfig
	Printer model.PrinterSettings
}

var ErrInvalidSettings = errors.New("invalid settings")

// SettingsService resolves TPOS credentials and the active printer. Stored rows take
// precedence over the environment.
type SettingsService struct {
	repo     SettingsRepository
	defaults SettingsDefaults
}

func NewSettingsService(repo SettingsRepository, defaults SettingsDefaults) *SettingsService {
	return &SettingsService{repo: repo, defaults: defaults}
}

// TPOSCredentials has the gateway.CredentialsFunc signature.
func (s *SettingsService) TPOSCredentials(ctx context.Context) (model.TPOSConfig, error) {
	cfg, err := s.repo.ActiveTPOSConfig(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrSettingsNotFound) {
			logger.Warn("failed to read tpos settings, using environment", "error", err)
		}
		return s.defaults.TPOS, nil
	}
	return *cfg, nil
}

func (s *SettingsService) SaveTPOS(ctx context.Context, cfg model.TPOSConfig) error {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.BearerToken = strings.TrimSpace(cfg.BearerToken)
	if cfg.BaseURL == "" || cfg.BearerToken == "" {
		return fmt.Errorf("%w: base_url and bearer_token are required", ErrInvalidSettings)
	}
	if err := s.repo.SaveTPOSConfig(ctx, &cfg); err != nil {
		return fmt.Errorf("save tpos settings: %w", err)
	}
	logger.Info("tpos settings updated", "base_url", cfg.BaseURL)
	return nil
}

func (s *SettingsService) Printer(ctx context.Context) (model.PrinterSettings, error) {
	p, err := s.repo.ActivePrinter(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrSettingsNotFound) {
			logger.Warn("failed to read printer settings, using environment", "error", err)
		}
		return s.defaults.Printer, nil
	}
	return *p, nil
}

// SavePrinter stores p and makes it the active printer.
func (s *SettingsService) SavePrinter(ctx context.Context, p model.PrinterSettings) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = s.defaults.Printer.Name
	}
	if p.Name == "" {
		return fmt.Errorf("%w: printer name is required", ErrInvalidSettings)
	}
	if _, err := p.Addr(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := s.repo.SavePrinter(ctx, &p, true); err != nil {
		return fmt.Errorf("save printer settings: %w", err)
	}
	logger.Info("printer settings updated", "name", p.Name, "ip", p.IP, "port", p.Port)
	return nil
}
