package repository

import (
	"testing"

	"github.com/nimasrn/live-commerce/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testDB struct {
	*pg.DB
	rawDB *gorm.DB
}

func setupTestDB(t *testing.T) *testDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// a single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&CustomerEntity{}, &TPOSConfigEntity{}, &PrinterSettingsEntity{})
	require.NoError(t, err)

	return &testDB{
		DB:    pg.New(db, db),
		rawDB: db,
	}
}
