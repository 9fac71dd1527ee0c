package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bill is the payload sent to the thermal printer.
type Bill struct {
	SessionIndex int             `json:"session_index" validate:"gte=0"`
	OrderCode    string          `json:"order_code"`
	CustomerName string          `json:"customer_name" validate:"required"`
	Phone        string          `json:"phone"`
	ProductCode  string          `json:"product_code"`
	ProductName  string          `json:"product_name" validate:"required"`
	Quantity     int             `json:"quantity" validate:"gte=1"`
	Amount       decimal.Decimal `json:"amount"`
	Comment      string          `json:"comment"`
	CreatedAt    time.Time       `json:"created_at"`
}

// BillFromOrder fills a bill from the order a comment resolved to.
func BillFromOrder(o *Order, productCode, productName, comment string, at time.Time) Bill {
	qty := o.TotalQuantity
	if qty <= 0 {
		qty = 1
	}
	return Bill{
		SessionIndex: o.SessionIndex,
		OrderCode:    o.Code,
		CustomerName: o.DisplayName(),
		Phone:        o.Phone(),
		ProductCode:  productCode,
		ProductName:  productName,
		Quantity:     qty,
		Amount:       o.TotalAmount,
		Comment:      comment,
		CreatedAt:    at,
	}
}
