package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/status"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// viewer is a recurring commenter. Viewers without a phone never get a partner record.
type viewer struct {
	ID    string
	Name  string
	Phone string
}

var roster = []viewer{
	{ID: "100001", Name: "Lan Nguyen", Phone: "0901234567"},
	{ID: "100002", Name: "Minh Tran", Phone: "0912345678"},
	{ID: "100003", Name: "Hoa Le", Phone: "0987654321"},
	{ID: "100004", Name: "Tuan Pham", Phone: ""},
	{ID: "100005", Name: "Mai Vo", Phone: "0933111222"},
	{ID: "100006", Name: "Khoa Do", Phone: ""},
	{ID: "100007", Name: "Thu Bui", Phone: "0977888999"},
}

var phrases = []string{
	"chốt áo trắng size M",
	"còn màu đen không shop",
	"lấy 2 cái nha",
	"giá bao nhiêu vậy",
	"chốt váy hoa size S",
	"ship về Đà Nẵng được không",
}

var partnerStatuses = []string{
	status.Normal, status.Normal, status.Normal,
	status.Bomb, status.Warning, status.Wholesale, status.Danger, status.Close, status.VIP,
}

type videoFeed struct {
	status   string
	comments []model.Comment
	orders   []model.Order
	created  time.Time
}

// MockFeed simulates the Graph comment stream and the TPOS order book of a live shop.
type MockFeed struct {
	mu        sync.RWMutex
	videos    map[string]*videoFeed
	partners  map[string]model.Partner
	orderRate float64
	session   int
	rng       *rand.Rand
}

func NewMockFeed(orderRate float64) *MockFeed {
	f := &MockFeed{
		videos:    make(map[string]*videoFeed),
		partners:  make(map[string]model.Partner),
		orderRate: orderRate,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, v := range roster {
		if v.Phone == "" {
			continue
		}
		f.partners[v.Phone] = model.Partner{
			Name:       v.Name,
			Phone:      v.Phone,
			StatusText: partnerStatuses[f.rng.Intn(len(partnerStatuses))],
		}
	}
	return f
}

// videoKey strips the page prefix of a page_video object id.
func videoKey(object string) string {
	if i := strings.LastIndex(object, "_"); i >= 0 {
		return object[i+1:]
	}
	return object
}

func (f *MockFeed) video(id string) *videoFeed {
	v, ok := f.videos[id]
	if !ok {
		v = &videoFeed{status: "LIVE", created: time.Now()}
		f.videos[id] = v
	}
	return v
}

// addComment appends a comment from a random viewer and, with orderRate probability,
// an order for it. Caller holds the lock.
func (f *MockFeed) addComment(videoID string, who viewer, message string) model.Comment {
	v := f.video(videoID)
	now := time.Now().UTC()
	c := model.Comment{
		ID:          fmt.Sprintf("%s_%s", videoID, uuid.New().String()[:12]),
		Message:     message,
		From:        model.Commenter{ID: who.ID, Name: who.Name},
		CreatedTime: model.Timestamp{Time: now},
		LikeCount:   f.rng.Intn(5),
	}
	v.comments = append(v.comments, c)

	if f.rng.Float64() < f.orderRate {
		f.session++
		qty := 1 + f.rng.Intn(3)
		v.orders = append(v.orders, model.Order{
			ID:                uuid.New().String(),
			FacebookCommentID: c.ID,
			FacebookASUserID:  who.ID,
			FacebookUserName:  who.Name,
			FacebookPostID:    videoID,
			Name:              who.Name,
			Telephone:         who.Phone,
			Code:              fmt.Sprintf("SO%04d", f.session),
			SessionIndex:      f.session,
			PartnerStatusText: f.partners[who.Phone].StatusText,
			TotalAmount:       decimal.NewFromInt(int64(150000 * qty)),
			TotalQuantity:     qty,
			Note:              message,
			DateCreated:       model.Timestamp{Time: now},
		})
	}
	return c
}

func (f *MockFeed) generate(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.Lock()
			for id, v := range f.videos {
				if v.status != "LIVE" {
					continue
				}
				who := roster[f.rng.Intn(len(roster))]
				c := f.addComment(id, who, phrases[f.rng.Intn(len(phrases))])
				log.Debug().Str("video_id", id).Str("comment_id", c.ID).Str("from", who.Name).Msg("Generated comment")
			}
			f.mu.Unlock()
		}
	}
}

type Handler struct {
	feed *MockFeed
}

func NewHandler(feed *MockFeed) *Handler {
	return &Handler{feed: feed}
}

func graphError(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{"error": gin.H{"message": msg, "type": "OAuthException", "code": code}})
}

func (h *Handler) requireToken(c *gin.Context) bool {
	if c.Query("access_token") == "" {
		graphError(c, http.StatusBadRequest, 190, "An access token is required to request this resource.")
		return false
	}
	return true
}

// GetVideo answers GET /graph/:version/:object.
func (h *Handler) GetVideo(c *gin.Context) {
	if !h.requireToken(c) {
		return
	}
	id := videoKey(c.Param("object"))

	h.feed.mu.Lock()
	v := h.feed.video(id)
	st, created := v.status, v.created
	h.feed.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"id":            id,
		"title":         "Live sale " + created.Format("02/01 15:04"),
		"status":        st,
		"permalink_url": "/videos/" + id,
	})
}

// GetComments answers GET /graph/:version/:object/comments with cursor paging.
func (h *Handler) GetComments(c *gin.Context) {
	if !h.requireToken(c) {
		return
	}
	id := videoKey(c.Param("object"))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "25"))
	if err != nil || limit <= 0 {
		limit = 25
	}
	start := 0
	if after := c.Query("after"); after != "" {
		start, err = strconv.Atoi(after)
		if err != nil || start < 0 {
			graphError(c, http.StatusBadRequest, 100, "Invalid cursor")
			return
		}
	}

	h.feed.mu.Lock()
	all := append([]model.Comment(nil), h.feed.video(id).comments...)
	h.feed.mu.Unlock()

	if c.Query("order") == "reverse_chronological" {
		for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
			all[i], all[j] = all[j], all[i]
		}
	}
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	paging := gin.H{"cursors": gin.H{"before": strconv.Itoa(start), "after": strconv.Itoa(end)}}
	if end < len(all) {
		q := c.Request.URL.Query()
		q.Set("after", strconv.Itoa(end))
		paging["next"] = c.Request.URL.Path + "?" + q.Encode()
	}
	c.JSON(http.StatusOK, gin.H{"data": all[start:end], "paging": paging})
}

// GetOrders answers the TPOS GetOrdersByPostId OData function.
func (h *Handler) GetOrders(c *gin.Context) {
	postID := videoKey(c.Query("PostId"))
	if postID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "PostId is required"}})
		return
	}
	top, err := strconv.Atoi(c.DefaultQuery("$top", "500"))
	if err != nil || top <= 0 {
		top = 500
	}

	h.feed.mu.RLock()
	var orders []model.Order
	if v, ok := h.feed.videos[postID]; ok {
		orders = append(orders, v.orders...)
	}
	h.feed.mu.RUnlock()

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].DateCreated.After(orders[j].DateCreated.Time)
	})
	if len(orders) > top {
		orders = orders[:top]
	}
	if orders == nil {
		orders = []model.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"@odata.count": len(orders), "value": orders})
}

// GetPartners answers the TPOS partner lookup for a comma separated phone list.
func (h *Handler) GetPartners(c *gin.Context) {
	phones := strings.Split(c.Query("Phone"), ",")

	h.feed.mu.RLock()
	partners := make([]model.Partner, 0, len(phones))
	for _, p := range phones {
		if partner, ok := h.feed.partners[strings.TrimSpace(p)]; ok {
			partners = append(partners, partner)
		}
	}
	h.feed.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{"value": partners})
}

// AddComment injects a scripted comment, POST /admin/videos/:video_id/comments.
func (h *Handler) AddComment(c *gin.Context) {
	var req struct {
		ViewerID string `json:"viewer_id" binding:"required"`
		Message  string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	who := viewer{ID: req.ViewerID, Name: "Viewer " + req.ViewerID}
	for _, v := range roster {
		if v.ID == req.ViewerID {
			who = v
		}
	}

	h.feed.mu.Lock()
	comment := h.feed.addComment(videoKey(c.Param("video_id")), who, req.Message)
	h.feed.mu.Unlock()

	log.Info().Str("comment_id", comment.ID).Str("viewer_id", who.ID).Msg("Injected comment")
	c.JSON(http.StatusCreated, comment)
}

// EndVideo flips a video to VOD so the poller sees the stream end.
func (h *Handler) EndVideo(c *gin.Context) {
	id := videoKey(c.Param("video_id"))
	h.feed.mu.Lock()
	h.feed.video(id).status = "VOD"
	h.feed.mu.Unlock()

	log.Info().Str("video_id", id).Msg("Live ended")
	c.JSON(http.StatusOK, gin.H{"video_id": id, "status": "VOD"})
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		OrderRate *float64 `json:"order_rate"`
	}
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	h.feed.mu.Lock()
	if config.OrderRate != nil && *config.OrderRate >= 0 && *config.OrderRate <= 1.0 {
		h.feed.orderRate = *config.OrderRate
		log.Info().Float64("rate", *config.OrderRate).Msg("Updated order rate")
	}
	rate := h.feed.orderRate
	h.feed.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"order_rate": rate})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	h.feed.mu.RLock()
	videos := len(h.feed.videos)
	h.feed.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "videos": videos, "timestamp": time.Now()})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})

	graph := router.Group("/graph/:version")
	{
		graph.GET("/:object", handler.GetVideo)
		graph.GET("/:object/comments", handler.GetComments)
	}

	tpos := router.Group("/tpos/odata")
	{
		tpos.GET("/SaleOnline_Order/ODataService.GetOrdersByPostId", handler.GetOrders)
		tpos.GET("/Partner/ODataService.GetViewV2", handler.GetPartners)
	}

	admin := router.Group("/admin")
	{
		admin.POST("/videos/:video_id/comments", handler.AddComment)
		admin.POST("/videos/:video_id/end", handler.EndVideo)
		admin.PUT("/config", handler.UpdateConfig)
	}

	router.GET("/health", handler.HealthCheck)
	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8082")
	orderRate := getEnvFloat("ORDER_RATE", 0.4)
	every := getEnvDuration("COMMENT_INTERVAL", 2*time.Second)

	log.Info().
		Str("port", port).
		Float64("order_rate", orderRate).
		Dur("comment_interval", every).
		Msg("Starting mock live feed")

	feed := NewMockFeed(orderRate)
	router := SetupRouter(NewHandler(feed))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go feed.generate(ctx, every)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
