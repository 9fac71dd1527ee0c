package e2e

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gateway "github.com/nimasrn/live-commerce/internal/gateways"
	"github.com/nimasrn/live-commerce/internal/handlers"
	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/processor"
	"github.com/nimasrn/live-commerce/internal/queue"
	"github.com/nimasrn/live-commerce/internal/reconciler"
	"github.com/nimasrn/live-commerce/internal/repository"
	"github.com/nimasrn/live-commerce/internal/services"
	"github.com/nimasrn/live-commerce/internal/status"
	"github.com/nimasrn/live-commerce/pkg/pg"
	"github.com/nimasrn/live-commerce/pkg/redis"
	"github.com/nimasrn/live-commerce/test/fixtures"
	"github.com/nimasrn/live-commerce/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type TestEnvironment struct {
	DB                  *pg.DB
	Redis               *miniredis.Miniredis
	RedisAdapter        redis.RedisAdapter
	Upstream            *fixtures.Upstream
	QueueConfig         queue.QueueConfig
	CustomerRepo        *repository.CustomerRepository
	LiveService         *services.LiveService
	NotificationService *services.NotificationService
	Processor           *processor.ProcessorService
	LiveHandler         *handlers.LiveHandler
	CustomerHandler     *handlers.CustomerHandler
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	db := helpers.SetupTestDB(t)
	mr, redisAdapter := helpers.SetupTestRedis(t)

	upstream := fixtures.NewUpstream()
	clientConf := helpers.StartUpstream(t, upstream.Handler)

	queueConfig := queue.QueueConfig{
		Name:              "test:live:jobs",
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      20 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
	jobs, err := queue.NewQueue(redisAdapter, queueConfig)
	require.NoError(t, err)

	customerRepo := repository.NewCustomerRepository(db)
	settingsService := services.NewSettingsService(repository.NewSettingsRepository(db), services.SettingsDefaults{
		TPOS: model.TPOSConfig{BaseURL: fixtures.TPOSURL, BearerToken: fixtures.TPOSToken},
	})
	notificationService := services.NewNotificationService(redisAdapter, "test:notifications", 100)

	facebook := gateway.NewFacebookClient(gateway.FacebookConfig{
		BaseURL:     fixtures.GraphURL,
		Version:     fixtures.GraphVersion,
		AccessToken: "page-token",
		Client:      clientConf,
	})
	tpos := gateway.NewTPOSClient(settingsService.TPOSCredentials, clientConf)

	liveService := services.NewLiveService(
		redisAdapter,
		facebook,
		tpos,
		reconciler.New(customerRepo, tpos, notificationService),
		reconciler.NewRedisCache(redisAdapter, time.Hour),
		notificationService,
		jobs,
		services.LiveConfig{CommentPageLimit: 100, MaxCommentPages: 3, OrdersTop: 500, SnapshotTTL: time.Hour},
	)

	proc := processor.NewProcessorService(redisAdapter, liveService,
		processor.NewLeaseService(redisAdapter, processor.DefaultLeaseConfig()),
		processor.Config{
			Queue:     queueConfig,
			Consumers: 1,
			Workers:   2,
			// passes in these tests come from jobs or explicit triggers only
			PollInterval: time.Hour,
			PassTimeout:  5 * time.Second,
		})
	proc.RegisterProcessor(processor.NewReconcileProcessor(proc.Trigger))

	return &TestEnvironment{
		DB:                  db,
		Redis:               mr,
		RedisAdapter:        redisAdapter,
		Upstream:            upstream,
		QueueConfig:         queueConfig,
		CustomerRepo:        customerRepo,
		LiveService:         liveService,
		NotificationService: notificationService,
		Processor:           proc,
		LiveHandler:         handlers.NewLiveHandler(liveService),
		CustomerHandler:     handlers.NewCustomerHandler(services.NewCustomerService(customerRepo)),
	}
}

func newRequest(method, uri string, body []byte) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

type commentsBody struct {
	model.LiveSnapshot
	Total int `json:"total"`
}

func (env *TestEnvironment) comments(t *testing.T, statusFilter string) (int, commentsBody) {
	uri := "/api/v1/live/" + fixtures.VideoID + "/comments"
	if statusFilter != "" {
		uri += "?status=" + url.QueryEscape(statusFilter)
	}
	ctx := newRequest(fasthttp.MethodGet, uri, nil)
	ctx.SetUserValue("video_id", fixtures.VideoID)
	env.LiveHandler.Comments(ctx)

	var body commentsBody
	if ctx.Response.StatusCode() == fasthttp.StatusOK {
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	}
	return ctx.Response.StatusCode(), body
}

func statusByComment(snap model.LiveSnapshot) map[string]string {
	out := make(map[string]string, len(snap.Comments))
	for _, c := range snap.Comments {
		out[c.ID] = c.PartnerStatus
	}
	return out
}

func (env *TestEnvironment) watch(t *testing.T) {
	_, err := env.LiveService.Watch(context.Background(), fixtures.PageID, fixtures.VideoID)
	require.NoError(t, err)
}

func TestE2E_WatchThroughQueueProducesSnapshot(t *testing.T) {
	env := setupE2EEnvironment(t)
	helpers.CreateTestCustomer(t, env.DB, fixtures.Lan.ID, "Lan Nguyen", "0901234567", status.VIP)

	code, _ := env.comments(t, "")
	assert.Equal(t, fasthttp.StatusNotFound, code)

	ctx := newRequest(fasthttp.MethodPost, "/api/v1/live/watch",
		[]byte(`{"page_id":"`+fixtures.PageID+`","video_id":"`+fixtures.VideoID+`"}`))
	env.LiveHandler.Watch(ctx)
	require.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())

	require.NoError(t, env.Processor.Start())
	defer env.Processor.Stop()

	helpers.AssertEventually(t, 5*time.Second, func() bool {
		code, _ := env.comments(t, "")
		return code == fasthttp.StatusOK
	}, "snapshot was never computed")

	_, body := env.comments(t, "")
	assert.Equal(t, 5, body.Total)
	assert.Equal(t, 2, body.Orders)
	assert.Equal(t, map[string]string{
		"c1": status.VIP,
		"c2": status.Bomb,
		"c3": status.NeedsInfo,
		"c4": status.Stranger,
		"c5": status.Bomb,
	}, statusByComment(body.LiveSnapshot))

	assert.Equal(t, 5, body.Stats.Comments)
	assert.Equal(t, 4, body.Stats.Looked)
	assert.Equal(t, 1, body.Stats.FromRecords)
	assert.Equal(t, 1, body.Stats.FromOrders)
	assert.Equal(t, 1, body.Stats.NeedsInfo)
	assert.Equal(t, 1, body.Stats.Strangers)
	assert.Equal(t, 3, body.Stats.Upserted)

	// the queue drains, the job is acked
	q, err := queue.NewQueue(env.RedisAdapter, env.QueueConfig)
	require.NoError(t, err)
	helpers.AssertEventually(t, 2*time.Second, func() bool {
		stats, err := q.GetStats(context.Background())
		return err == nil && stats.PendingMessages == 0
	}, "reconcile job was not acked")
}

func TestE2E_PassRepairsCustomersTable(t *testing.T) {
	env := setupE2EEnvironment(t)
	helpers.CreateTestCustomer(t, env.DB, fixtures.Lan.ID, "Lan Nguyen", "0901234567", status.VIP)
	env.watch(t)

	require.NoError(t, env.Processor.Trigger(context.Background(), fixtures.VideoID, "test"))

	ctx := context.Background()
	minh, err := env.CustomerRepo.Get(ctx, fixtures.Minh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InfoStatusComplete, minh.InfoStatus)
	require.NotNil(t, minh.Phone)
	assert.Equal(t, "0912345678", *minh.Phone)
	assert.Equal(t, status.Bomb, minh.CustomerStatus)

	hoa, err := env.CustomerRepo.Get(ctx, fixtures.Hoa.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InfoStatusIncomplete, hoa.InfoStatus)
	assert.Equal(t, status.NeedsInfo, hoa.CustomerStatus)
	assert.Nil(t, hoa.Phone)

	tuan, err := env.CustomerRepo.Get(ctx, fixtures.Tuan.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Stranger, tuan.CustomerStatus)
	assert.Equal(t, "Tuan", tuan.CustomerName)

	// the persisted complete row is left alone
	lan, err := env.CustomerRepo.Get(ctx, fixtures.Lan.ID)
	require.NoError(t, err)
	assert.Equal(t, status.VIP, lan.CustomerStatus)
	assert.Equal(t, "Lan Nguyen", lan.CustomerName)
}

func TestE2E_SecondPassServesKnownCommentersFromCache(t *testing.T) {
	env := setupE2EEnvironment(t)
	helpers.CreateTestCustomer(t, env.DB, fixtures.Lan.ID, "Lan Nguyen", "0901234567", status.VIP)
	env.watch(t)

	require.NoError(t, env.Processor.Trigger(context.Background(), fixtures.VideoID, "test"))
	assert.Equal(t, 1, env.Upstream.Calls("partners"))

	require.NoError(t, env.Processor.Trigger(context.Background(), fixtures.VideoID, "test"))

	_, body := env.comments(t, "")
	// c1, c2 and c5 come from complete rows
	assert.Equal(t, 3, body.Stats.CacheHits)
	assert.Equal(t, 2, body.Stats.Looked)
	assert.Equal(t, 0, body.Stats.Upserted)
	assert.Equal(t, 1, env.Upstream.Calls("partners"))
	assert.Equal(t, status.Bomb, statusByComment(body.LiveSnapshot)["c5"])
}

func TestE2E_OrderFeedDownStillServesComments(t *testing.T) {
	env := setupE2EEnvironment(t)
	env.Upstream.SetFailOrders(true)
	env.watch(t)

	require.NoError(t, env.Processor.Trigger(context.Background(), fixtures.VideoID, "test"))

	code, body := env.comments(t, "")
	require.Equal(t, fasthttp.StatusOK, code)
	assert.Equal(t, 0, body.Orders)
	for id, st := range statusByComment(body.LiveSnapshot) {
		assert.Equal(t, status.Stranger, st, id)
	}

	notes, err := env.NotificationService.Latest(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, notes)
	assert.Equal(t, model.NotificationWarn, notes[0].Level)
	assert.Equal(t, fixtures.VideoID, notes[0].VideoID)

	// strangers are written, the next pass with orders upgrades them
	env.Upstream.SetFailOrders(false)
	require.NoError(t, env.Processor.Trigger(context.Background(), fixtures.VideoID, "test"))
	_, body = env.comments(t, "")
	assert.Equal(t, status.Bomb, statusByComment(body.LiveSnapshot)["c2"])
}

func TestE2E_FilterCommentsAndCustomers(t *testing.T) {
	env := setupE2EEnvironment(t)
	env.watch(t)
	require.NoError(t, env.Processor.Trigger(context.Background(), fixtures.VideoID, "test"))

	_, body := env.comments(t, status.Bomb)
	assert.Equal(t, 2, body.Total)
	for _, c := range body.Comments {
		assert.Equal(t, fixtures.Minh.ID, c.From.ID)
	}

	ctx := newRequest(fasthttp.MethodGet, "/api/v1/customers?info_status=incomplete", nil)
	env.CustomerHandler.ListCustomers(ctx)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var list struct {
		Items []model.Customer `json:"items"`
		Total int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &list))
	// Hoa needs info, Lan and Tuan are strangers
	assert.Equal(t, int64(3), list.Total)
}

func TestE2E_UnwatchedVideoIsSkipped(t *testing.T) {
	env := setupE2EEnvironment(t)
	env.watch(t)
	require.NoError(t, env.LiveService.Unwatch(context.Background(), fixtures.VideoID))

	require.NoError(t, env.Processor.Trigger(context.Background(), fixtures.VideoID, "test"))
	assert.Equal(t, 0, env.Upstream.Calls("comments"))

	ctx := newRequest(fasthttp.MethodPost, "/api/v1/live/"+fixtures.VideoID+"/reconcile", nil)
	ctx.SetUserValue("video_id", fixtures.VideoID)
	env.LiveHandler.Reconcile(ctx)
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}
