package reconciler

import (
	"strings"

	"github.com/nimasrn/live-commerce/internal/model"
)

type orderIndex struct {
	byComment map[string]*model.Order
	byUser    map[string][]*model.Order
}

func indexOrders(orders []model.Order) *orderIndex {
	idx := &orderIndex{
		byComment: make(map[string]*model.Order, len(orders)),
		byUser:    make(map[string][]*model.Order, len(orders)),
	}
	for i := range orders {
		o := &orders[i]
		if o.FacebookCommentID != "" {
			idx.byComment[o.FacebookCommentID] = better(idx.byComment[o.FacebookCommentID], o)
		}
		if o.FacebookASUserID != "" {
			idx.byUser[o.FacebookASUserID] = append(idx.byUser[o.FacebookASUserID], o)
		}
	}
	return idx
}

// match finds the order for a comment. An exact comment id match wins; otherwise the
// commenter's orders whose Facebook user name equals the comment author, case-insensitively.
func (idx *orderIndex) match(c model.Comment) *model.Order {
	if o, ok := idx.byComment[c.ID]; ok {
		return o
	}

	var found *model.Order
	for _, o := range idx.byUser[c.From.ID] {
		if !sameName(o.FacebookUserName, c.From.Name) {
			continue
		}
		found = better(found, o)
	}
	return found
}

// better prefers an order with a phone, then the newest one.
func better(cur, cand *model.Order) *model.Order {
	if cur == nil {
		return cand
	}
	curPhone, candPhone := cur.Phone() != "", cand.Phone() != ""
	if curPhone != candPhone {
		if candPhone {
			return cand
		}
		return cur
	}
	if cand.DateCreated.After(cur.DateCreated.Time) {
		return cand
	}
	return cur
}

func sameName(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// Decorate pairs every comment with the status of its author and its matched order.
// Commenters missing from the result are flagged as still loading.
func Decorate(comments []model.Comment, statuses map[string]model.StatusEntry, orders []model.Order) []model.CommentWithStatus {
	idx := indexOrders(orders)
	out := make([]model.CommentWithStatus, 0, len(comments))
	for _, c := range comments {
		cs := model.CommentWithStatus{Comment: c}
		if entry, ok := statuses[c.From.ID]; ok {
			cs.PartnerStatus = entry.Status
		} else {
			cs.IsLoadingStatus = true
		}
		if o := idx.match(c); o != nil {
			cp := *o
			cs.OrderInfo = &cp
		}
		out = append(out, cs)
	}
	return out
}
