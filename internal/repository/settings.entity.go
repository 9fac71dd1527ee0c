package repository

import (
	"time"

	"github.com/nimasrn/live-commerce/internal/model"
)

type TPOSConfigEntity struct {
	ID          int64     `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	BaseURL     string    `db:"base_url"     gorm:"column:base_url;not null"`
	BearerToken string    `db:"bearer_token" gorm:"column:bearer_token;not null"`
	IsActive    bool      `db:"is_active"    gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `db:"created_at"   gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `db:"updated_at"   gorm:"column:updated_at;autoUpdateTime"`
}

func (TPOSConfigEntity) TableName() string {
	return "tpos_config"
}

type PrinterSettingsEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Name      string    `db:"name"       gorm:"column:name;not null;uniqueIndex"`
	IP        string    `db:"ip"         gorm:"column:ip;not null"`
	Port      int       `db:"port"       gorm:"column:port;not null;default:9100"`
	Codepage  int       `db:"codepage"   gorm:"column:codepage;not null;default:0"`
	IsActive  bool      `db:"is_active"  gorm:"column:is_active;not null;default:false"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `db:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (PrinterSettingsEntity) TableName() string {
	return "printer_settings"
}

func toTPOSConfigModel(e *TPOSConfigEntity) *model.TPOSConfig {
	if e == nil {
		return nil
	}
	return &model.TPOSConfig{
		BaseURL:     e.BaseURL,
		BearerToken: e.BearerToken,
	}
}

func toPrinterSettingsModel(e *PrinterSettingsEntity) *model.PrinterSettings {
	if e == nil {
		return nil
	}
	return &model.PrinterSettings{
		Name:     e.Name,
		IP:       e.IP,
		Port:     e.Port,
		Codepage: e.Codepage,
	}
}
