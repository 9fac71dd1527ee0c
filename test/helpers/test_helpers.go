package helpers

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gateway "github.com/nimasrn/live-commerce/internal/gateways"
	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/repository"
	"github.com/nimasrn/live-commerce/pkg/pg"
	"github.com/nimasrn/live-commerce/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// one connection, otherwise every pool member gets its own in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&repository.CustomerEntity{},
		&repository.TPOSConfigEntity{},
		&repository.PrinterSettingsEntity{},
	)
	require.NoError(t, err)

	return pg.New(db, db)
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	// Use unique connection name per test to avoid global adapter caching issues
	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

// StartUpstream serves handler on an in-memory listener. The returned client config dials
// it whatever host the gateway asks for.
func StartUpstream(t *testing.T, handler fasthttp.RequestHandler) gateway.ClientConfig {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() {
		_ = srv.Serve(ln)
	}()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	return gateway.ClientConfig{
		Timeout: 2 * time.Second,
		Dial: func(addr string) (net.Conn, error) {
			return ln.Dial()
		},
	}
}

func CreateTestCustomer(t *testing.T, db *pg.DB, facebookID, name, phone, customerStatus string) *model.Customer {
	repo := repository.NewCustomerRepository(db)
	c := &model.Customer{
		FacebookID:     facebookID,
		CustomerName:   name,
		CustomerStatus: customerStatus,
		InfoStatus:     model.InfoStatusIncomplete,
	}
	if phone != "" {
		c.Phone = model.StringPtr(phone)
		c.InfoStatus = model.InfoStatusComplete
	}
	require.NoError(t, repo.UpsertCustomers(context.Background(), []*model.Customer{c}))

	saved, err := repo.Get(context.Background(), facebookID)
	require.NoError(t, err)
	return saved
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
