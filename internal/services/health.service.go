package services

import (
	"context"
	"errors"
	"fmt"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	checks map[string]Pinger
}

func NewHealthService(checks map[string]Pinger) *HealthService {
	return &HealthService{checks: checks}
}

// Check pings every dependency and reports each one as "ok" or its error text.
func (s *HealthService) Check(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s.checks))
	var errs []error
	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			out[name] = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		out[name] = "ok"
	}
	return out, errors.Join(errs...)
}
