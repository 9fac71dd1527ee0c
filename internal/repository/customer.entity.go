package repository

import (
	"time"

	"github.com/nimasrn/live-commerce/internal/model"
)

type CustomerEntity struct {
	ID             int64     `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	FacebookID     string    `db:"facebook_id"     gorm:"column:facebook_id;not null;uniqueIndex"`
	CustomerName   string    `db:"customer_name"   gorm:"column:customer_name;not null;default:''"`
	Phone          *string   `db:"phone"           gorm:"column:phone"`
	CustomerStatus string    `db:"customer_status" gorm:"column:customer_status;not null;default:''"`
	InfoStatus     string    `db:"info_status"     gorm:"column:info_status;not null;default:'incomplete'"`
	CreatedAt      time.Time `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `db:"updated_at"      gorm:"column:updated_at;autoUpdateTime"`
}

func (CustomerEntity) TableName() string {
	return "customers"
}

func toCustomerEntity(m *model.Customer) *CustomerEntity {
	if m == nil {
		return nil
	}
	return &CustomerEntity{
		FacebookID:     m.FacebookID,
		CustomerName:   m.CustomerName,
		Phone:          m.Phone,
		CustomerStatus: m.CustomerStatus,
		InfoStatus:     string(m.InfoStatus),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toCustomerModel(e *CustomerEntity) *model.Customer {
	if e == nil {
		return nil
	}
	return &model.Customer{
		FacebookID:     e.FacebookID,
		CustomerName:   e.CustomerName,
		Phone:          e.Phone,
		CustomerStatus: e.CustomerStatus,
		InfoStatus:     model.InfoStatus(e.InfoStatus),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func toCustomerModels(entities []*CustomerEntity) []*model.Customer {
	if entities == nil {
		return nil
	}
	models := make([]*model.Customer, len(entities))
	for i, e := range entities {
		models[i] = toCustomerModel(e)
	}
	return models
}
