package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/printer"
	"github.com/nimasrn/live-commerce/internal/services"
	"github.com/nimasrn/live-commerce/internal/status"
	xhttp "github.com/nimasrn/live-commerce/pkg/http"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func decodeBody(t *testing.T, ctx *xhttp.RequestCtx, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), dst))
}

/* ---------------------------------- live ------------------------------------ */

type MockLiveService struct {
	mock.Mock
}

func (m *MockLiveService) Watch(ctx context.Context, pageID, videoID string) (*model.LiveWatch, error) {
	args := m.Called(ctx, pageID, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LiveWatch), args.Error(1)
}

func (m *MockLiveService) Pause(ctx context.Context, videoID string) (*model.LiveWatch, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LiveWatch), args.Error(1)
}

func (m *MockLiveService) Resume(ctx context.Context, videoID string) (*model.LiveWatch, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LiveWatch), args.Error(1)
}

func (m *MockLiveService) Unwatch(ctx context.Context, videoID string) error {
	return m.Called(ctx, videoID).Error(0)
}

func (m *MockLiveService) Watches(ctx context.Context) ([]model.LiveWatch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LiveWatch), args.Error(1)
}

func (m *MockLiveService) Enqueue(ctx context.Context, videoID string) (string, error) {
	args := m.Called(ctx, videoID)
	return args.String(0), args.Error(1)
}

func (m *MockLiveService) Snapshot(ctx context.Context, videoID string) (*model.LiveSnapshot, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LiveSnapshot), args.Error(1)
}

func TestLiveHandler_Watch(t *testing.T) {
	t.Run("creates watch", func(t *testing.T) {
		svc := new(MockLiveService)
		h := NewLiveHandler(svc)
		svc.On("Watch", mock.Anything, "page1", "vid1").Return(&model.LiveWatch{PageID: "page1", VideoID: "vid1", IsLive: true}, nil)

		ctx := setupTestContext("POST", "/api/v1/live/watch", []byte(`{"page_id":"page1","video_id":"vid1"}`))
		h.Watch(ctx)

		assert.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())
		var w model.LiveWatch
		decodeBody(t, ctx, &w)
		assert.Equal(t, "vid1", w.VideoID)
		svc.AssertExpectations(t)
	})

	t.Run("missing video id", func(t *testing.T) {
		svc := new(MockLiveService)
		h := NewLiveHandler(svc)

		ctx := setupTestContext("POST", "/api/v1/live/watch", []byte(`{"page_id":"page1"}`))
		h.Watch(ctx)

		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), "video_id is required")
		svc.AssertNotCalled(t, "Watch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid json", func(t *testing.T) {
		h := NewLiveHandler(new(MockLiveService))

		ctx := setupTestContext("POST", "/api/v1/live/watch", []byte(`{`))
		h.Watch(ctx)

		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestLiveHandler_PauseUnknownVideo(t *testing.T) {
	svc := new(MockLiveService)
	h := NewLiveHandler(svc)
	svc.On("Pause", mock.Anything, "vid1").Return(nil, services.ErrWatchNotFound)

	ctx := setupTestContext("POST", "/api/v1/live/vid1/pause", nil)
	ctx.SetUserValue("video_id", "vid1")
	h.Pause(ctx)

	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestLiveHandler_Reconcile(t *testing.T) {
	svc := new(MockLiveService)
	h := NewLiveHandler(svc)
	svc.On("Enqueue", mock.Anything, "vid1").Return("1700000000000-0", nil)

	ctx := setupTestContext("POST", "/api/v1/live/vid1/reconcile", nil)
	ctx.SetUserValue("video_id", "vid1")
	h.Reconcile(ctx)

	assert.Equal(t, fasthttp.StatusAccepted, ctx.Response.StatusCode())
	var resp reconcileResponse
	decodeBody(t, ctx, &resp)
	assert.Equal(t, "1700000000000-0", resp.JobID)
}

func TestLiveHandler_Unwatch(t *testing.T) {
	svc := new(MockLiveService)
	h := NewLiveHandler(svc)
	svc.On("Unwatch", mock.Anything, "vid1").Return(nil)

	ctx := setupTestContext("DELETE", "/api/v1/live/vid1", nil)
	ctx.SetUserValue("video_id", "vid1")
	h.Unwatch(ctx)

	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
}

func TestLiveHandler_Comments(t *testing.T) {
	svc := new(MockLiveService)
	h := NewLiveHandler(svc)
	snap := &model.LiveSnapshot{
		VideoID: "vid1",
		Comments: []model.CommentWithStatus{
			{Comment: model.Comment{ID: "c1"}, PartnerStatus: status.VIP},
			{Comment: model.Comment{ID: "c2"}, PartnerStatus: status.Stranger},
		},
	}

	t.Run("all comments", func(t *testing.T) {
		cp := *snap
		svc.On("Snapshot", mock.Anything, "vid1").Return(&cp, nil).Once()

		ctx := setupTestContext("GET", "/api/v1/live/vid1/comments", nil)
		ctx.SetUserValue("video_id", "vid1")
		h.Comments(ctx)

		assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
		var resp struct {
			Comments []model.CommentWithStatus `json:"comments"`
			Total    int                       `json:"total"`
		}
		decodeBody(t, ctx, &resp)
		assert.Equal(t, 2, resp.Total)
	})

	t.Run("filtered by status", func(t *testing.T) {
		cp := *snap
		svc.On("Snapshot", mock.Anything, "vid1").Return(&cp, nil).Once()

		ctx := setupTestContext("GET", "/api/v1/live/vid1/comments?status=VIP", nil)
		ctx.SetUserValue("video_id", "vid1")
		h.Comments(ctx)

		var resp struct {
			Comments []model.CommentWithStatus `json:"comments"`
			Total    int                       `json:"total"`
		}
		decodeBody(t, ctx, &resp)
		require.Len(t, resp.Comments, 1)
		assert.Equal(t, "c1", resp.Comments[0].ID)
	})

	t.Run("no snapshot yet", func(t *testing.T) {
		svc.On("Snapshot", mock.Anything, "vid2").Return(nil, services.ErrSnapshotNotFound).Once()

		ctx := setupTestContext("GET", "/api/v1/live/vid2/comments", nil)
		ctx.SetUserValue("video_id", "vid2")
		h.Comments(ctx)

		assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	})
}

/* -------------------------------- customers --------------------------------- */

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) List(ctx context.Context, f model.CustomerFilter) ([]*model.Customer, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Customer), args.Get(1).(int64), args.Error(2)
}

func (m *MockCustomerService) Get(ctx context.Context, facebookID string) (*model.Customer, error) {
	args := m.Called(ctx, facebookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func TestCustomerHandler_List(t *testing.T) {
	svc := new(MockCustomerService)
	h := NewCustomerHandler(svc)

	rows := []*model.Customer{{FacebookID: "u1", CustomerName: "Lan", InfoStatus: model.InfoStatusComplete}}
	svc.On("List", mock.Anything, mock.MatchedBy(func(f model.CustomerFilter) bool {
		return f.Status != nil && *f.Status == "vip" &&
			f.InfoStatus != nil && *f.InfoStatus == model.InfoStatusComplete &&
			f.Search == "lan" && f.Limit == 10 && f.Offset == 20
	})).Return(rows, int64(21), nil)

	ctx := setupTestContext("GET", "/api/v1/customers?status=vip&info_status=complete&q=lan&limit=10&offset=20", nil)
	h.ListCustomers(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var resp listResponse[*model.Customer]
	decodeBody(t, ctx, &resp)
	assert.Equal(t, int64(21), resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "u1", resp.Items[0].FacebookID)
}

func TestCustomerHandler_ListInvalidStatus(t *testing.T) {
	svc := new(MockCustomerService)
	h := NewCustomerHandler(svc)
	svc.On("List", mock.Anything, mock.Anything).Return(nil, int64(0), fmt.Errorf("%w: %q", services.ErrInvalidStatus, "gold"))

	ctx := setupTestContext("GET", "/api/v1/customers?status=gold", nil)
	h.ListCustomers(ctx)

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestCustomerHandler_Get(t *testing.T) {
	svc := new(MockCustomerService)
	h := NewCustomerHandler(svc)
	svc.On("Get", mock.Anything, "u1").Return(&model.Customer{FacebookID: "u1"}, nil)
	svc.On("Get", mock.Anything, "u2").Return(nil, services.ErrNotFound)

	ctx := setupTestContext("GET", "/api/v1/customers/u1", nil)
	ctx.SetUserValue("facebook_id", "u1")
	h.GetCustomer(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = setupTestContext("GET", "/api/v1/customers/u2", nil)
	ctx.SetUserValue("facebook_id", "u2")
	h.GetCustomer(ctx)
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

/* ---------------------------------- bills ----------------------------------- */

type MockPrintService struct {
	mock.Mock
}

func (m *MockPrintService) Print(ctx context.Context, bill model.Bill) error {
	return m.Called(ctx, bill).Error(0)
}

func TestBillHandler_PrintBill(t *testing.T) {
	body, _ := json.Marshal(model.Bill{
		SessionIndex: 3,
		OrderCode:    "SO3",
		CustomerName: "Lan",
		ProductName:  "Áo thun",
		Quantity:     1,
		Amount:       decimal.NewFromInt(120000),
	})

	t.Run("printed", func(t *testing.T) {
		svc := new(MockPrintService)
		svc.On("Print", mock.Anything, mock.MatchedBy(func(b model.Bill) bool {
			return b.OrderCode == "SO3" && b.Amount.Equal(decimal.NewFromInt(120000))
		})).Return(nil)

		ctx := setupTestContext("POST", "/api/v1/bills/print", body)
		NewBillHandler(svc).PrintBill(ctx)

		assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("printer unreachable", func(t *testing.T) {
		svc := new(MockPrintService)
		svc.On("Print", mock.Anything, mock.Anything).Return(fmt.Errorf("%w: cannot connect", printer.ErrPrinterUnreachable))

		ctx := setupTestContext("POST", "/api/v1/bills/print", body)
		NewBillHandler(svc).PrintBill(ctx)

		assert.Equal(t, fasthttp.StatusBadGateway, ctx.Response.StatusCode())
	})

	t.Run("printer not configured", func(t *testing.T) {
		svc := new(MockPrintService)
		svc.On("Print", mock.Anything, mock.Anything).Return(model.ErrPrinterNotConfigured)

		ctx := setupTestContext("POST", "/api/v1/bills/print", body)
		NewBillHandler(svc).PrintBill(ctx)

		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("validation", func(t *testing.T) {
		svc := new(MockPrintService)

		ctx := setupTestContext("POST", "/api/v1/bills/print", []byte(`{"order_code":"SO3","quantity":0}`))
		NewBillHandler(svc).PrintBill(ctx)

		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), "customer_name is required")
		svc.AssertNotCalled(t, "Print", mock.Anything, mock.Anything)
	})
}

/* --------------------------------- uploads ---------------------------------- */

type stubUploadService struct {
	folder, name, contentType string
	body                      string
	err                       error
}

func (s *stubUploadService) UploadImage(_ context.Context, folder, fileName, contentType string, _ int64, body io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	b, _ := io.ReadAll(body)
	s.folder, s.name, s.contentType, s.body = folder, fileName, contentType, string(b)
	return "https://cdn.example.com/" + folder + "/" + fileName, nil
}

func multipartContext(t *testing.T, folder, fileName, contentType, content string) *xhttp.RequestCtx {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if folder != "" {
		require.NoError(t, w.WriteField("folder", folder))
	}
	if fileName != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
		hdr.Set("Content-Type", contentType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	ctx := setupTestContext("POST", "/api/v1/uploads", buf.Bytes())
	ctx.Request.Header.SetContentType(w.FormDataContentType())
	return ctx
}

func TestUploadHandler_Upload(t *testing.T) {
	t.Run("uploaded", func(t *testing.T) {
		svc := &stubUploadService{}
		ctx := multipartContext(t, "banners", "ao.png", "image/png", "png-bytes")
		NewUploadHandler(svc).Upload(ctx)

		assert.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())
		assert.Equal(t, "banners", svc.folder)
		assert.Equal(t, "image/png", svc.contentType)
		assert.Equal(t, "png-bytes", svc.body)
		assert.Contains(t, string(ctx.Response.Body()), "https://cdn.example.com/banners/ao.png")
	})

	t.Run("default folder", func(t *testing.T) {
		svc := &stubUploadService{}
		ctx := multipartContext(t, "", "ao.png", "image/png", "png-bytes")
		NewUploadHandler(svc).Upload(ctx)

		assert.Equal(t, defaultUploadFolder, svc.folder)
	})

	t.Run("missing file", func(t *testing.T) {
		ctx := multipartContext(t, "banners", "", "", "")
		NewUploadHandler(&stubUploadService{}).Upload(ctx)

		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("not an image", func(t *testing.T) {
		ctx := multipartContext(t, "", "notes.txt", "text/plain", "hello")
		NewUploadHandler(&stubUploadService{err: services.ErrUnsupportedType}).Upload(ctx)

		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("storage disabled", func(t *testing.T) {
		ctx := multipartContext(t, "", "ao.png", "image/png", "x")
		NewUploadHandler(&stubUploadService{err: services.ErrStorageDisabled}).Upload(ctx)

		assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())
	})
}

/* ------------------------------ notifications ------------------------------- */

type stubNotificationService struct {
	limit int
	items []model.Notification
}

func (s *stubNotificationService) Latest(_ context.Context, limit int) ([]model.Notification, error) {
	s.limit = limit
	return s.items, nil
}

func TestNotificationHandler_List(t *testing.T) {
	svc := &stubNotificationService{items: []model.Notification{{ID: "1-0", Title: "Không tải được đơn hàng", Level: model.NotificationWarn}}}

	ctx := setupTestContext("GET", "/api/v1/notifications?limit=5", nil)
	NewNotificationHandler(svc).ListNotifications(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, 5, svc.limit)
	var resp struct {
		Items []model.Notification `json:"items"`
	}
	decodeBody(t, ctx, &resp)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, model.NotificationWarn, resp.Items[0].Level)
}

/* --------------------------------- settings --------------------------------- */

type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) TPOSCredentials(ctx context.Context) (model.TPOSConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.TPOSConfig), args.Error(1)
}

func (m *MockSettingsService) SaveTPOS(ctx context.Context, cfg model.TPOSConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *MockSettingsService) Printer(ctx context.Context) (model.PrinterSettings, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.PrinterSettings), args.Error(1)
}

func (m *MockSettingsService) SavePrinter(ctx context.Context, p model.PrinterSettings) error {
	return m.Called(ctx, p).Error(0)
}

func TestSettingsHandler_TPOSMasksToken(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("TPOSCredentials", mock.Anything).Return(model.TPOSConfig{BaseURL: "https://tomato.tpos.vn", BearerToken: "secret-token-1234"}, nil)

	ctx := setupTestContext("GET", "/api/v1/settings/tpos", nil)
	NewSettingsHandler(svc).GetTPOS(ctx)

	var cfg model.TPOSConfig
	decodeBody(t, ctx, &cfg)
	assert.Equal(t, "https://tomato.tpos.vn", cfg.BaseURL)
	assert.Equal(t, "*************1234", cfg.BearerToken)
	assert.NotContains(t, string(ctx.Response.Body()), "secret")
}

func TestSettingsHandler_PutTPOS(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("SaveTPOS", mock.Anything, model.TPOSConfig{BaseURL: "https://tomato.tpos.vn", BearerToken: "abcdef"}).Return(nil)

	ctx := setupTestContext("PUT", "/api/v1/settings/tpos", []byte(`{"base_url":"https://tomato.tpos.vn","bearer_token":"abcdef"}`))
	NewSettingsHandler(svc).PutTPOS(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = setupTestContext("PUT", "/api/v1/settings/tpos", []byte(`{"base_url":"not a url","bearer_token":"abcdef"}`))
	NewSettingsHandler(svc).PutTPOS(ctx)
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	svc.AssertNumberOfCalls(t, "SaveTPOS", 1)
}

func TestSettingsHandler_PutPrinter(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("SavePrinter", mock.Anything, model.PrinterSettings{Name: "counter", IP: "192.168.1.50", Port: 9100}).Return(nil)

	ctx := setupTestContext("PUT", "/api/v1/settings/printer", []byte(`{"name":"counter","ip":"192.168.1.50","port":9100}`))
	NewSettingsHandler(svc).PutPrinter(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = setupTestContext("PUT", "/api/v1/settings/printer", []byte(`{"ip":"printer.local","port":9100}`))
	NewSettingsHandler(svc).PutPrinter(ctx)
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "ip must be an IP address")
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", maskToken(""))
	assert.Equal(t, "***", maskToken("abc"))
	assert.Equal(t, "**cdef", maskToken("abcdef"))
}

/* ---------------------------------- health ---------------------------------- */

type stubHealthService struct {
	checks map[string]string
	err    error
}

func (s stubHealthService) Check(context.Context) (map[string]string, error) {
	return s.checks, s.err
}

func TestHealthHandler(t *testing.T) {
	ctx := setupTestContext("GET", "/api/v1/health", nil)
	NewHealthHandler(stubHealthService{checks: map[string]string{"redis": "ok"}}).GetHealth(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = setupTestContext("GET", "/api/v1/health", nil)
	NewHealthHandler(stubHealthService{checks: map[string]string{"redis": "down"}, err: errors.New("redis: down")}).GetHealth(ctx)
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "degraded")
}
