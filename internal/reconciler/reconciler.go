// Package reconciler resolves the status of every commenter on a live video by
// cross-referencing persisted customers, the TPOS order feed and the TPOS partner lookup,
// and repairs the customers table along the way.
package reconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/status"
	"github.com/nimasrn/live-commerce/pkg/logger"
)

// CustomerStore is the persisted side of the pass.
type CustomerStore interface {
	FindByFacebookIDs(ctx context.Context, ids []string) ([]*model.Customer, error)
	UpsertCustomers(ctx context.Context, customers []*model.Customer) error
}

// PartnerLookup resolves phones to TPOS partner records. Implementations fail open: a
// missing phone in the result only means nothing is known about it.
type PartnerLookup interface {
	LookupPartners(ctx context.Context, phones []string) (map[string]model.Partner, error)
}

type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Known is the per-video known-status cache content.
type Known map[string]model.StatusEntry

// Result of one pass.
type Result struct {
	// Statuses covers every commenter of the input, cached or resolved in this pass.
	Statuses map[string]model.StatusEntry
	// Upserted is the deduplicated batch sent to the store.
	Upserted []*model.Customer
	// Cacheable holds the entries backed by a persisted complete row.
	Cacheable map[string]model.StatusEntry
	Stats     model.ReconcileStats
	// PersistErr is set when the customer query or the upsert failed. It has already been
	// logged and notified.
	PersistErr error
}

type Reconciler struct {
	store    CustomerStore
	partners PartnerLookup
	notifier Notifier
	now      func() time.Time
}

func New(store CustomerStore, partners PartnerLookup, notifier Notifier) *Reconciler {
	return &Reconciler{
		store:    store,
		partners: partners,
		notifier: notifier,
		now:      time.Now,
	}
}

// resolution ranks. A higher rank is never replaced by a lower one within a pass.
const (
	rankStranger = iota
	rankNeedsInfo
	rankComplete
)

type resolution struct {
	rank     int
	entry    model.StatusEntry
	order    *model.Order
	upsert   *model.Customer
	fromRow  bool
	fallback string
}

// Reconcile runs one pass. It only returns an error when ctx is done; persistence and
// partner failures degrade the result instead.
func (r *Reconciler) Reconcile(ctx context.Context, videoID string, comments []model.Comment, orders []model.Order, known Known) (*Result, error) {
	res := &Result{
		Statuses:  make(map[string]model.StatusEntry),
		Cacheable: make(map[string]model.StatusEntry),
	}
	res.Stats.Comments = len(comments)

	var needsLookup []model.Comment
	for _, c := range comments {
		if c.From.ID == "" {
			continue
		}
		if entry, ok := known[c.From.ID]; ok {
			res.Statuses[c.From.ID] = entry
			res.Stats.CacheHits++
			continue
		}
		needsLookup = append(needsLookup, c)
	}

	ids := model.CommenterIDs(needsLookup)
	res.Stats.Looked = len(ids)
	if len(ids) == 0 {
		return res, ctx.Err()
	}

	rows, findErr := r.store.FindByFacebookIDs(ctx, ids)
	if findErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res.PersistErr = fmt.Errorf("load customers: %w", findErr)
		r.report(ctx, videoID, "Không tải được khách hàng", res.PersistErr)
	}
	existing := make(map[string]*model.Customer, len(rows))
	for _, row := range rows {
		existing[row.FacebookID] = row
	}

	idx := indexOrders(orders)
	resolved := make(map[string]*resolution, len(ids))
	var phones []string
	seenPhone := make(map[string]struct{})

	for _, c := range needsLookup {
		next := r.resolve(c, existing[c.From.ID], idx)
		if prev, ok := resolved[c.From.ID]; ok && prev.rank > next.rank {
			continue
		}
		resolved[c.From.ID] = next
	}

	for _, id := range ids {
		rs := resolved[id]
		if rs.fromRow || rs.order == nil {
			continue
		}
		if p := rs.order.Phone(); p != "" {
			if _, ok := seenPhone[p]; !ok {
				seenPhone[p] = struct{}{}
				phones = append(phones, p)
			}
		}
	}

	partners := r.lookupPartners(ctx, phones)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var batch []*model.Customer
	for _, id := range ids {
		rs := resolved[id]
		if rs.rank == rankComplete && !rs.fromRow {
			phone := rs.order.Phone()
			label := rs.order.PartnerStatusText
			if p, ok := partners[phone]; ok && strings.TrimSpace(p.StatusText) != "" {
				label = p.StatusText
			}
			rs.entry.Status = status.Normalize(label)
			rs.upsert.CustomerStatus = rs.entry.Status
		}

		switch {
		case rs.fromRow:
			res.Stats.FromRecords++
		case rs.rank == rankComplete:
			res.Stats.FromOrders++
		case rs.rank == rankNeedsInfo:
			res.Stats.NeedsInfo++
		default:
			res.Stats.Strangers++
		}

		res.Statuses[id] = rs.entry
		if rs.fromRow {
			res.Cacheable[id] = rs.entry
		}
		if rs.upsert == nil {
			continue
		}
		batch = append(batch, rs.upsert)
	}

	// Without the existing rows any upsert could overwrite a persisted complete record, so
	// the pass keeps its statuses in memory only.
	if findErr != nil {
		return res, nil
	}

	batch = model.DedupeCustomers(batch)
	if len(batch) == 0 {
		return res, nil
	}

	now := r.now()
	for _, c := range batch {
		c.UpdatedAt = now
	}

	if err := r.store.UpsertCustomers(ctx, batch); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		upsertErr := fmt.Errorf("upsert %d customers: %w", len(batch), err)
		if res.PersistErr == nil {
			res.PersistErr = upsertErr
		}
		r.report(ctx, videoID, "Không lưu được khách hàng", upsertErr)
		return res, nil
	}

	res.Upserted = batch
	res.Stats.Upserted = len(batch)
	for _, c := range batch {
		if c.InfoStatus == model.InfoStatusComplete {
			res.Cacheable[c.FacebookID] = res.Statuses[c.FacebookID]
		}
	}

	return res, nil
}

func (r *Reconciler) resolve(c model.Comment, row *model.Customer, idx *orderIndex) *resolution {
	if row != nil && row.IsComplete() {
		return &resolution{
			rank:    rankComplete,
			fromRow: true,
			entry: model.StatusEntry{
				Status:     status.Normalize(row.CustomerStatus),
				Name:       row.CustomerName,
				Phone:      strings.TrimSpace(*row.Phone),
				InfoStatus: model.InfoStatusComplete,
			},
		}
	}

	order := idx.match(c)
	if order == nil {
		rs := &resolution{
			rank: rankStranger,
			entry: model.StatusEntry{
				Status:     status.Stranger,
				Name:       c.From.Name,
				InfoStatus: model.InfoStatusIncomplete,
			},
		}
		if row == nil {
			rs.upsert = &model.Customer{
				FacebookID:     c.From.ID,
				CustomerName:   c.From.Name,
				CustomerStatus: status.Stranger,
				InfoStatus:     model.InfoStatusIncomplete,
			}
		} else {
			rs.entry.Name = row.CustomerName
		}
		return rs
	}

	name := order.DisplayName()
	if name == "" {
		name = c.From.Name
	}

	if phone := order.Phone(); phone != "" {
		return &resolution{
			rank:  rankComplete,
			order: order,
			entry: model.StatusEntry{
				Name:       name,
				Phone:      phone,
				InfoStatus: model.InfoStatusComplete,
				OrderCode:  order.Code,
			},
			upsert: &model.Customer{
				FacebookID:   c.From.ID,
				CustomerName: name,
				Phone:        model.StringPtr(phone),
				InfoStatus:   model.InfoStatusComplete,
			},
		}
	}

	rs := &resolution{
		rank:  rankNeedsInfo,
		order: order,
		entry: model.StatusEntry{
			Status:     status.NeedsInfo,
			Name:       name,
			InfoStatus: model.InfoStatusIncomplete,
			OrderCode:  order.Code,
		},
	}
	if row == nil || row.CustomerName != name || row.CustomerStatus != status.NeedsInfo {
		rs.upsert = &model.Customer{
			FacebookID:     c.From.ID,
			CustomerName:   name,
			CustomerStatus: status.NeedsInfo,
			InfoStatus:     model.InfoStatusIncomplete,
		}
	}
	return rs
}

func (r *Reconciler) lookupPartners(ctx context.Context, phones []string) map[string]model.Partner {
	if len(phones) == 0 || r.partners == nil {
		return nil
	}
	partners, err := r.partners.LookupPartners(ctx, phones)
	if err != nil {
		logger.Warn("partner lookup failed, using order status", "phones", len(phones), "error", err)
	}
	return partners
}

func (r *Reconciler) report(ctx context.Context, videoID, title string, err error) {
	logger.Error(title, "video_id", videoID, "error", err)
	if r.notifier == nil {
		return
	}
	nerr := r.notifier.Notify(ctx, model.Notification{
		Level:     model.NotificationError,
		Title:     title,
		Message:   err.Error(),
		VideoID:   videoID,
		CreatedAt: r.now(),
	})
	if nerr != nil {
		logger.Warn("failed to publish notification", "video_id", videoID, "error", nerr)
	}
}
