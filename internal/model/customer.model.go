package model

import (
	"errors"
	"strings"
	"time"
)

type InfoStatus string

const (
	InfoStatusComplete   InfoStatus = "complete"
	InfoStatusIncomplete InfoStatus = "incomplete"
)

var (
	ErrMissingFacebookID = errors.New("facebook_id is required")
	ErrCompleteNoPhone   = errors.New("complete customer must have a phone")
	ErrInvalidInfoStatus = errors.New("info_status must be complete or incomplete")
)

type Customer struct {
	FacebookID     string     `json:"facebook_id"`
	CustomerName   string     `json:"customer_name"`
	Phone          *string    `json:"phone"`
	CustomerStatus string     `json:"customer_status"`
	InfoStatus     InfoStatus `json:"info_status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

// HasPhone reports whether a non blank phone is recorded.
func (c *Customer) HasPhone() bool {
	return c.Phone != nil && strings.TrimSpace(*c.Phone) != ""
}

// IsComplete is true only when the row can be trusted without further lookups.
func (c *Customer) IsComplete() bool {
	return c.InfoStatus == InfoStatusComplete && c.HasPhone()
}

func (c *Customer) Validate() error {
	if strings.TrimSpace(c.FacebookID) == "" {
		return ErrMissingFacebookID
	}
	switch c.InfoStatus {
	case InfoStatusComplete:
		if !c.HasPhone() {
			return ErrCompleteNoPhone
		}
	case InfoStatusIncomplete:
	default:
		return ErrInvalidInfoStatus
	}
	return nil
}

// CustomerFilter controls List queries.
type CustomerFilter struct {
	Status     *string     // equals customer_status
	InfoStatus *InfoStatus // equals
	Search     string      // name or phone contains
	Limit      int         // default 50
	Offset     int
}

// StringPtr is a small helper for optional columns.
func StringPtr(s string) *string {
	return &s
}

// DedupeCustomers keeps one row per facebook_id. The last row for an id wins and takes the
// slot of the first occurrence.
func DedupeCustomers(rows []*Customer) []*Customer {
	out := make([]*Customer, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, c := range rows {
		if c == nil {
			continue
		}
		if i, ok := index[c.FacebookID]; ok {
			out[i] = c
			continue
		}
		index[c.FacebookID] = len(out)
		out = append(out, c)
	}
	return out
}
