package fixtures

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/status"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
)

const (
	PageID       = "page1"
	VideoID      = "vid1"
	GraphURL     = "http://graph.test"
	GraphVersion = "v18.0"
	TPOSURL      = "http://tpos.test"
	TPOSToken    = "tpos-token"
)

var (
	// Lan has a complete customers row.
	Lan = model.Commenter{ID: "u1", Name: "Lan"}
	// Minh ordered with a phone.
	Minh = model.Commenter{ID: "u2", Name: "Minh"}
	// Hoa ordered without a phone.
	Hoa = model.Commenter{ID: "u3", Name: "Hoa"}
	// Tuan never ordered.
	Tuan = model.Commenter{ID: "u4", Name: "Tuan"}
)

var base = time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)

func NewTestComment(id string, from model.Commenter, message string, offset time.Duration) model.Comment {
	return model.Comment{
		ID:          id,
		Message:     message,
		From:        from,
		CreatedTime: model.Timestamp{Time: base.Add(offset)},
	}
}

func NewTestOrder(commentID string, from model.Commenter, phone, code, partnerStatus string) model.Order {
	return model.Order{
		ID:                "o-" + code,
		FacebookCommentID: commentID,
		FacebookASUserID:  from.ID,
		FacebookUserName:  from.Name,
		Name:              from.Name,
		Telephone:         phone,
		Code:              code,
		PartnerStatusText: partnerStatus,
		TotalAmount:       decimal.NewFromInt(250000),
		TotalQuantity:     1,
		DateCreated:       model.Timestamp{Time: base},
	}
}

// LiveComments is a live where every kind of commenter shows up; Minh comments twice.
func LiveComments() []model.Comment {
	return []model.Comment{
		NewTestComment("c1", Lan, "chốt áo trắng", 0),
		NewTestComment("c2", Minh, "chốt váy hoa size S", time.Second),
		NewTestComment("c3", Hoa, "lấy 2 cái", 2*time.Second),
		NewTestComment("c4", Tuan, "giá bao nhiêu", 3*time.Second),
		NewTestComment("c5", Minh, "thêm 1 cái nữa", 4*time.Second),
	}
}

func LiveOrders() []model.Order {
	return []model.Order{
		NewTestOrder("c2", Minh, "0912345678", "SO0002", status.Normal),
		// matched by user, the order was created from another comment
		NewTestOrder("c-old", Hoa, "", "SO0003", ""),
	}
}

func LivePartners() []model.Partner {
	return []model.Partner{
		{Name: "Minh", Phone: "0912345678", StatusText: "bom hàng"},
	}
}

// Upstream fakes the Graph API and TPOS behind a single fasthttp handler.
type Upstream struct {
	mu          sync.Mutex
	VideoStatus string
	Comments    []model.Comment
	Orders      []model.Order
	Partners    []model.Partner
	FailOrders  bool

	calls map[string]int
}

func NewUpstream() *Upstream {
	return &Upstream{
		VideoStatus: "LIVE",
		Comments:    LiveComments(),
		Orders:      LiveOrders(),
		Partners:    LivePartners(),
		calls:       make(map[string]int),
	}
}

func (u *Upstream) Calls(name string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[name]
}

func (u *Upstream) SetFailOrders(fail bool) {
	u.mu.Lock()
	u.FailOrders = fail
	u.mu.Unlock()
}

func (u *Upstream) Handler(ctx *fasthttp.RequestCtx) {
	u.mu.Lock()
	defer u.mu.Unlock()

	path := string(ctx.Path())
	switch {
	case strings.HasSuffix(path, "/comments"):
		u.calls["comments"]++
		writeJSON(ctx, map[string]any{"data": u.Comments, "paging": map[string]any{}})
	case strings.HasPrefix(path, "/"+GraphVersion+"/"):
		u.calls["video"]++
		writeJSON(ctx, map[string]any{"id": VideoID, "status": u.VideoStatus})
	case strings.HasSuffix(path, "GetOrdersByPostId"):
		u.calls["orders"]++
		if u.FailOrders {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString(`{"error":{"message":"tpos down"}}`)
			return
		}
		writeJSON(ctx, map[string]any{"value": u.Orders})
	case strings.HasSuffix(path, "GetViewV2"):
		u.calls["partners"]++
		wanted := strings.Split(string(ctx.QueryArgs().Peek("Phone")), ",")
		out := []model.Partner{}
		for _, p := range u.Partners {
			for _, w := range wanted {
				if p.Phone == w {
					out = append(out, p)
				}
			}
		}
		writeJSON(ctx, map[string]any{"value": out})
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	b, _ := json.Marshal(v)
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}
