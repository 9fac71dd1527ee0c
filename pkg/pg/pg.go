package pg

import (
	"context"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type txContextKey string

const txKey txContextKey = "trx"

type DB struct {
	read  *gorm.DB
	write *gorm.DB
}

func Create(config Config, withDebug bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(config.DSN()),
		&gorm.Config{
			NamingStrategy: schema.NamingStrategy{
				SingularTable: true,
			},
		})
	if err != nil {
		return nil, err
	}

	if withDebug {
		db = db.Debug()
	}
	return db, nil
}

func CreateReadWrite(readConfig Config, writeConfig Config, withDebug bool) (*DB, error) {
	read, err := Create(readConfig, withDebug)
	if err != nil {
		return nil, err
	}
	write, err := Create(writeConfig, withDebug)
	if err != nil {
		return nil, err
	}
	return &DB{read, write}, nil
}

// New wraps already opened handles. Tests pass the same sqlite handle twice.
func New(read, write *gorm.DB) *DB {
	return &DB{read: read, write: write}
}

func (r *DB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.write.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ctx = context.WithValue(ctx, txKey, tx)
		return fn(ctx)
	})
}

func (r *DB) Write(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if ok {
		return tx
	}

	tx = r.write.WithContext(ctx)

	return tx
}

func (r *DB) Read(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if ok {
		return tx
	}

	tx = r.read.WithContext(ctx)

	return tx
}

// Ping checks both connections.
func (r *DB) Ping(ctx context.Context) error {
	for _, g := range []*gorm.DB{r.read, r.write} {
		sqlDB, err := g.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
	}
	return nil
}
