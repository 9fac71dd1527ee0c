package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvalidCustomer  = errors.New("invalid customer row")
)

// lookupChunk bounds the size of a single IN (...) list.
const lookupChunk = 500

type CustomerRepository struct {
	*pg.DB
}

func NewCustomerRepository(db *pg.DB) *CustomerRepository {
	return &CustomerRepository{
		db,
	}
}

// FindByFacebookIDs loads every row whose facebook_id is in ids.
func (r *CustomerRepository) FindByFacebookIDs(ctx context.Context, ids []string) ([]*model.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var out []*CustomerEntity
	for start := 0; start < len(ids); start += lookupChunk {
		end := start + lookupChunk
		if end > len(ids) {
			end = len(ids)
		}

		var chunk []*CustomerEntity
		err := r.Read(ctx).
			Where("facebook_id IN ?", ids[start:end]).
			Find(&chunk).
			Error
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}

	return toCustomerModels(out), nil
}

// UpsertCustomers writes all rows in one statement, keyed on facebook_id. Duplicate ids in
// the batch collapse to the last one, postgres refuses to touch a row twice per statement.
func (r *CustomerRepository) UpsertCustomers(ctx context.Context, customers []*model.Customer) error {
	rows := model.DedupeCustomers(customers)
	if len(rows) == 0 {
		return nil
	}

	entities := make([]*CustomerEntity, 0, len(rows))
	for _, c := range rows {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: facebook_id=%s: %v", ErrInvalidCustomer, c.FacebookID, err)
		}
		entities = append(entities, toCustomerEntity(c))
	}

	return r.Write(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "facebook_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"customer_name",
				"phone",
				"customer_status",
				"info_status",
				"updated_at",
			}),
		}).
		CreateInBatches(&entities, lookupChunk).
		Error
}

func (r *CustomerRepository) Get(ctx context.Context, facebookID string) (*model.Customer, error) {
	var entity CustomerEntity
	err := r.Read(ctx).
		Where("facebook_id = ?", facebookID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return toCustomerModel(&entity), nil
}

func (r *CustomerRepository) List(ctx context.Context, f model.CustomerFilter) ([]*model.Customer, int64, error) {
	q := r.Read(ctx).Model(&CustomerEntity{})

	if f.Status != nil && *f.Status != "" {
		q = q.Where("customer_status = ?", *f.Status)
	}
	if f.InfoStatus != nil && *f.InfoStatus != "" {
		q = q.Where("info_status = ?", string(*f.InfoStatus))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(customer_name) LIKE ? OR phone LIKE ?)", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*CustomerEntity
	if err := q.Order("updated_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toCustomerModels(entities), total, nil
}
