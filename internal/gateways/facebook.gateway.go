package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/valyala/fasthttp"
)

const platformFacebook = "facebook"

const (
	OrderChronological        = "chronological"
	OrderReverseChronological = "reverse_chronological"
)

const commentFields = "id,message,from{id,name},created_time,like_count"

var ErrMissingVideoID = errors.New("video id is required")

type FacebookConfig struct {
	BaseURL     string
	Version     string
	AccessToken string
	Client      ClientConfig
}

// Video is the subset of a Graph live video the poller needs.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	PermalinkURL string `json:"permalink_url"`
}

// IsLive is true while the broadcast is running.
func (v *Video) IsLive() bool {
	return strings.EqualFold(v.Status, "LIVE")
}

type CommentQuery struct {
	PageID  string
	VideoID string
	Limit   int
	Order   string
	After   string
}

// OrderFor picks the read order: newest first while live, oldest first for a replay.
func OrderFor(isLive bool) string {
	if isLive {
		return OrderReverseChronological
	}
	return OrderChronological
}

type CommentsPage struct {
	Data   []model.Comment `json:"data"`
	Paging struct {
		Cursors struct {
			Before string `json:"before"`
			After  string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

// GraphError is the error envelope of the Graph API.
type GraphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph error %d (%s): %s", e.Code, e.Type, e.Message)
}

type FacebookClient struct {
	http   *httpClient
	config FacebookConfig
}

func NewFacebookClient(cfg FacebookConfig) *FacebookClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com"
	}
	logger.Info("Facebook client initialized", "base_url", cfg.BaseURL, "version", cfg.Version)
	return &FacebookClient{
		http:   newHTTPClient(platformFacebook, cfg.Client),
		config: cfg,
	}
}

func (c *FacebookClient) endpoint(object, edge string, params url.Values) string {
	params.Set("access_token", c.config.AccessToken)
	path := c.config.BaseURL
	if c.config.Version != "" {
		path += "/" + c.config.Version
	}
	path += "/" + url.PathEscape(object)
	if edge != "" {
		path += "/" + edge
	}
	return path + "?" + params.Encode()
}

func (c *FacebookClient) GetVideo(ctx context.Context, videoID string) (*Video, error) {
	if videoID == "" {
		return nil, ErrMissingVideoID
	}
	params := url.Values{}
	params.Set("fields", "id,title,status,permalink_url")

	body, err := c.get(ctx, "get_video", c.endpoint(videoID, "", params))
	if err != nil {
		return nil, err
	}

	var v Video
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal video: %w", err)
	}
	return &v, nil
}

// FetchCommentsPage reads one page of comments. The object is the page post
// (page_video) when a page id is given, the bare video otherwise.
func (c *FacebookClient) FetchCommentsPage(ctx context.Context, q CommentQuery) (*CommentsPage, error) {
	if q.VideoID == "" {
		return nil, ErrMissingVideoID
	}
	object := q.VideoID
	if q.PageID != "" && !strings.Contains(q.VideoID, "_") {
		object = q.PageID + "_" + q.VideoID
	}

	params := url.Values{}
	params.Set("fields", commentFields)
	params.Set("filter", "stream")
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Order != "" {
		params.Set("order", q.Order)
	}
	if q.After != "" {
		params.Set("after", q.After)
	}

	body, err := c.get(ctx, "fetch_comments", c.endpoint(object, "comments", params))
	if err != nil {
		return nil, err
	}

	var page CommentsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comments: %w", err)
	}
	return &page, nil
}

// FetchAllComments follows the after cursor for at most maxPages pages. Repeated ids across
// pages keep their first position with the latest content. When a page fails the comments
// read so far are returned with the error.
func (c *FacebookClient) FetchAllComments(ctx context.Context, q CommentQuery, maxPages int) ([]model.Comment, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	var all []model.Comment
	for i := 0; i < maxPages; i++ {
		page, err := c.FetchCommentsPage(ctx, q)
		if err != nil {
			return all, err
		}
		all = model.MergeComments(all, page.Data)

		after := page.Paging.Cursors.After
		if page.Paging.Next == "" || after == "" || after == q.After {
			break
		}
		q.After = after
	}
	return all, nil
}

func (c *FacebookClient) get(ctx context.Context, operation, endpoint string) ([]byte, error) {
	body, err := c.http.doRequest(ctx, operation, fasthttp.MethodGet, endpoint, nil, nil)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			var envelope struct {
				Error *GraphError `json:"error"`
			}
			if json.Unmarshal([]byte(httpErr.Body), &envelope) == nil && envelope.Error != nil {
				return nil, fmt.Errorf("%w: %w", err, envelope.Error)
			}
		}
		return nil, err
	}
	return body, nil
}
