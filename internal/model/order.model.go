package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Order is a TPOS SaleOnline order. Field names follow the TPOS OData payload.
type Order struct {
	ID                string          `json:"Id,omitempty"`
	FacebookCommentID string          `json:"Facebook_CommentId"`
	FacebookASUserID  string          `json:"Facebook_ASUserId"`
	FacebookUserName  string          `json:"Facebook_UserName"`
	FacebookPostID    string          `json:"Facebook_PostId,omitempty"`
	Name              string          `json:"Name"`
	Telephone         string          `json:"Telephone"`
	Code              string          `json:"Code"`
	SessionIndex      int             `json:"SessionIndex"`
	PartnerStatusText string          `json:"PartnerStatusText"`
	TotalAmount       decimal.Decimal `json:"TotalAmount"`
	TotalQuantity     int             `json:"TotalQuantity"`
	Note              string          `json:"Note"`
	DateCreated       Timestamp       `json:"DateCreated"`
}

// Phone returns the trimmed telephone, empty when the order carries none.
func (o *Order) Phone() string {
	return strings.TrimSpace(o.Telephone)
}

// DisplayName prefers the order's customer name over the Facebook user name.
func (o *Order) DisplayName() string {
	if n := strings.TrimSpace(o.Name); n != "" {
		return n
	}
	return strings.TrimSpace(o.FacebookUserName)
}

// Partner is a TPOS customer record returned by the phone lookup.
type Partner struct {
	Name       string `json:"Name"`
	Phone      string `json:"Phone"`
	StatusText string `json:"StatusText"`
}
