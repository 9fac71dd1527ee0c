package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	gateway "github.com/nimasrn/live-commerce/internal/gateways"
	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/reconciler"
	"github.com/nimasrn/live-commerce/pkg/redis"
	"github.com/stretchr/testify/mock"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)
	return mr, redis.Wrap(redis.NewClient(mr.Addr()), "")
}

type MockCommentSource struct {
	mock.Mock
}

func (m *MockCommentSource) GetVideo(ctx context.Context, videoID string) (*gateway.Video, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Video), args.Error(1)
}

func (m *MockCommentSource) FetchAllComments(ctx context.Context, q gateway.CommentQuery, maxPages int) ([]model.Comment, error) {
	args := m.Called(ctx, q, maxPages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Comment), args.Error(1)
}

type MockOrderSource struct {
	mock.Mock
}

func (m *MockOrderSource) FetchOrders(ctx context.Context, postID string, top int) ([]model.Order, error) {
	args := m.Called(ctx, postID, top)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, videoID string, comments []model.Comment, orders []model.Order, known reconciler.Known) (*reconciler.Result, error) {
	args := m.Called(ctx, videoID, comments, orders, known)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciler.Result), args.Error(1)
}

type MockJobPublisher struct {
	mock.Mock
}

func (m *MockJobPublisher) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	args := m.Called(ctx, data, metadata)
	return args.String(0), args.Error(1)
}

// recordingNotifier keeps every notification in memory.
type recordingNotifier struct {
	sent []model.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n model.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Get(ctx context.Context, facebookID string) (*model.Customer, error) {
	args := m.Called(ctx, facebookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockCustomerRepository) List(ctx context.Context, f model.CustomerFilter) ([]*model.Customer, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Customer), args.Get(1).(int64), args.Error(2)
}

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) ActiveTPOSConfig(ctx context.Context) (*model.TPOSConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TPOSConfig), args.Error(1)
}

func (m *MockSettingsRepository) SaveTPOSConfig(ctx context.Context, cfg *model.TPOSConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockSettingsRepository) ActivePrinter(ctx context.Context) (*model.PrinterSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PrinterSettings), args.Error(1)
}

func (m *MockSettingsRepository) SavePrinter(ctx context.Context, p *model.PrinterSettings, active bool) error {
	args := m.Called(ctx, p, active)
	return args.Error(0)
}
