package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/repository"
	"github.com/nimasrn/live-commerce/internal/status"
)

var (
	ErrNotFound      = errors.New("error notfound")
	ErrInvalidStatus = errors.New("unknown customer status")
)

type CustomerRepository interface {
	Get(ctx context.Context, facebookID string) (*model.Customer, error)
	List(ctx context.Context, f model.CustomerFilter) ([]*model.Customer, int64, error)
}

type CustomerService struct {
	repo CustomerRepository
}

func NewCustomerService(repo CustomerRepository) *CustomerService {
	return &CustomerService{repo: repo}
}

// List validates the filter and maps status keys to their display label, so "vip" and
// "VIP" select the same rows.
func (s *CustomerService) List(ctx context.Context, f model.CustomerFilter) ([]*model.Customer, int64, error) {
	if f.Status != nil {
		label := strings.TrimSpace(*f.Status)
		switch {
		case label == "":
			f.Status = nil
		case label == status.Stranger || label == status.NeedsInfo:
			f.Status = &label
		case status.IsKnown(label):
			display := status.Normalize(label)
			f.Status = &display
		default:
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, label)
		}
	}
	if f.InfoStatus != nil {
		switch *f.InfoStatus {
		case "":
			f.InfoStatus = nil
		case model.InfoStatusComplete, model.InfoStatusIncomplete:
		default:
			return nil, 0, model.ErrInvalidInfoStatus
		}
	}

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	return items, total, nil
}

func (s *CustomerService) Get(ctx context.Context, facebookID string) (*model.Customer, error) {
	c, err := s.repo.Get(ctx, strings.TrimSpace(facebookID))
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}
