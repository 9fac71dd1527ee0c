// Package status holds the customer status vocabulary shared by the reconciler, the API
// and the bill printer.
package status

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Display labels.
const (
	Normal    = "Bình thường"
	Bomb      = "Bom hàng"
	Warning   = "Cảnh báo"
	Wholesale = "Khách sỉ"
	Danger    = "Nguy hiểm"
	Close     = "Thân thiết"
	VIP       = "VIP"

	// Stranger is used for a commenter with no customer row and no order.
	Stranger = "Khách lạ"
	// NeedsInfo is used when an order exists but carries no phone yet.
	NeedsInfo = "Cần thêm TT"
)

// Default is returned for unknown or empty labels.
const Default = Normal

var table = map[string]string{
	"normal":    Normal,
	"bomb":      Bomb,
	"warning":   Warning,
	"wholesale": Wholesale,
	"danger":    Danger,
	"close":     Close,
	"vip":       VIP,
}

func init() {
	// Display labels map to themselves so persisted values round trip.
	for _, display := range []string{Normal, Bomb, Warning, Wholesale, Danger, Close, VIP} {
		table[key(display)] = display
	}
}

func key(label string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(label)))
}

// Normalize maps an English key or a Vietnamese label from TPOS to its display label.
func Normalize(label string) string {
	if display, ok := table[key(label)]; ok {
		return display
	}
	return Default
}

// IsKnown reports whether label is part of the status table.
func IsKnown(label string) bool {
	_, ok := table[key(label)]
	return ok
}

// Labels lists the display labels in table order, used for filter validation and docs.
func Labels() []string {
	return []string{Normal, Bomb, Warning, Wholesale, Danger, Close, VIP}
}
